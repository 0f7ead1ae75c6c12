package ingest

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-mirrormind/internal/log"
	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/face"
	"github.com/teslashibe/go-mirrormind/pkg/face/facetest"
	"github.com/teslashibe/go-mirrormind/pkg/pipeline"
	"github.com/teslashibe/go-mirrormind/pkg/protocol"
	"github.com/teslashibe/go-mirrormind/pkg/tuning"
)

func newTestHub(t *testing.T, minInterval time.Duration) *Hub {
	t.Helper()
	p, err := pipeline.New(tuning.DefaultConfig(), log.Discard())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return NewHub(p, minInterval, log.Discard())
}

func startServer(t *testing.T, hub *Hub, addr string) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	hub.RegisterRoutes(app)
	hub.RegisterAPIRoutes(app.Group("/api"))

	go app.Listen(addr)
	t.Cleanup(func() { app.Shutdown() })
	time.Sleep(100 * time.Millisecond)
	return app
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	// Wait for connection to be registered
	time.Sleep(50 * time.Millisecond)
	return ws
}

func smileLandmarks(frameID uint64) protocol.LandmarksData {
	return protocol.LandmarksData{
		FrameID: frameID,
		Width:   640,
		Height:  480,
		Faces: []protocol.FaceData{{
			Landmarks: facetest.Neutral(),
			Blendshapes: []face.Category{
				{Name: "mouthSmileLeft", Score: 0.6},
				{Name: "mouthSmileRight", Score: 0.6},
			},
			Confidence: 0.95,
		}},
	}
}

func must(msg *protocol.Message, err error) *protocol.Message {
	if err != nil {
		panic(err)
	}
	return msg
}

func send(t *testing.T, ws *websocket.Conn, msg *protocol.Message) {
	t.Helper()
	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, ws *websocket.Conn) *protocol.Message {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	return msg
}

func TestNewHub(t *testing.T) {
	hub := newTestHub(t, DefaultMinInterval)

	if hub.DetectorCount() != 0 {
		t.Error("DetectorCount should be 0 initially")
	}
	if hub.Pipeline() == nil {
		t.Error("Pipeline should be set")
	}
	if len(hub.GetDetectors()) != 0 || len(hub.GetDetectorInfos()) != 0 {
		t.Error("GetDetectors should return empty slices initially")
	}

	stats := hub.GetStats()
	if stats.MessagesReceived != 0 || stats.FramesReceived != 0 {
		t.Errorf("stats = %+v, want zeroes", stats)
	}
}

func TestGenerateDetectorID(t *testing.T) {
	a, b := generateDetectorID(), generateDetectorID()
	if a == "" || a == b {
		t.Errorf("ids %q and %q should be unique and non-empty", a, b)
	}
}

func TestSessionControl_UnknownDetector(t *testing.T) {
	hub := newTestHub(t, 0)

	if err := hub.BeginSession("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("BeginSession err = %v, want ErrSessionNotFound", err)
	}
	if err := hub.EndSession("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("EndSession err = %v, want ErrSessionNotFound", err)
	}
	if err := hub.SendPong("nope", "", 0); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("SendPong err = %v, want ErrSessionNotFound", err)
	}

	// Broadcast to empty hub should not panic
	msg, _ := protocol.NewMessage(protocol.TypePing, nil)
	hub.Broadcast(msg)
}

func TestWebSocketConnection(t *testing.T) {
	hub := newTestHub(t, 0)

	var mu sync.Mutex
	var events []bool
	hub.OnSession(func(id string, active bool) {
		mu.Lock()
		events = append(events, active)
		mu.Unlock()
	})

	startServer(t, hub, ":18090")
	ws := dial(t, "ws://localhost:18090/ws/detector/kitchen")

	if hub.DetectorCount() != 1 {
		t.Errorf("DetectorCount = %d, want 1", hub.DetectorCount())
	}
	d := hub.GetDetector("kitchen")
	if d == nil {
		t.Fatal("GetDetector should return the connected detector")
	}
	if d.Session() == nil || d.Session().Ended() {
		t.Error("a connected detector should have an open session")
	}

	// Close and verify disconnect
	ws.Close()
	time.Sleep(100 * time.Millisecond)

	if hub.DetectorCount() != 0 {
		t.Errorf("DetectorCount = %d, want 0 after disconnect", hub.DetectorCount())
	}
	if !d.Session().Ended() {
		t.Error("session should end on disconnect")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || !events[0] || events[1] {
		t.Errorf("session events = %v, want [true false]", events)
	}
}

func TestLandmarksProduceResult(t *testing.T) {
	hub := newTestHub(t, 0)

	var called atomic.Bool
	var gotID atomic.Value
	hub.OnResult(func(detectorID string, frameID uint64, res affect.Result) {
		gotID.Store(detectorID)
		called.Store(true)
	})

	startServer(t, hub, ":18091")
	ws := dial(t, "ws://localhost:18091/ws/detector/smile")

	send(t, ws, must(protocol.NewLandmarksMessage(smileLandmarks(7))))

	msg := read(t, ws)
	if msg.Type != protocol.TypeResult {
		t.Fatalf("Type = %s, want result", msg.Type)
	}
	data, err := msg.GetResultData()
	if err != nil {
		t.Fatalf("GetResultData: %v", err)
	}
	if data.SessionID != "smile" || data.FrameID != 7 {
		t.Errorf("header = %+v", data)
	}
	if data.Result.State != affect.StateClear {
		t.Errorf("State = %s, want clear", data.Result.State)
	}
	if len(data.Result.Emotions) == 0 {
		t.Error("Emotions should never be empty")
	}

	time.Sleep(50 * time.Millisecond)
	if !called.Load() {
		t.Error("result callback should have been called")
	}
	if gotID.Load() != "smile" {
		t.Errorf("detector ID = %v, want smile", gotID.Load())
	}

	stats := hub.GetStats()
	if stats.FramesReceived != 1 || stats.FramesProcessed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestFrameThrottling(t *testing.T) {
	hub := newTestHub(t, time.Hour)

	startServer(t, hub, ":18092")
	ws := dial(t, "ws://localhost:18092/ws/detector/fast")

	for i := uint64(1); i <= 3; i++ {
		send(t, ws, must(protocol.NewLandmarksMessage(smileLandmarks(i))))
	}

	msg := read(t, ws)
	data, err := msg.GetResultData()
	if err != nil || data.FrameID != 1 {
		t.Fatalf("first result = %+v, %v", data, err)
	}

	time.Sleep(100 * time.Millisecond)
	stats := hub.GetStats()
	if stats.FramesReceived != 3 || stats.FramesProcessed != 1 || stats.FramesDropped != 2 {
		t.Errorf("stats = %+v, want 3 received 1 processed 2 dropped", stats)
	}

	infos := hub.GetDetectorInfos()
	if len(infos) != 1 || infos[0].Frames != 1 || infos[0].Dropped != 2 {
		t.Errorf("infos = %+v", infos)
	}
}

func TestSessionEndAndBegin(t *testing.T) {
	hub := newTestHub(t, 0)

	app := startServer(t, hub, ":18093")
	ws := dial(t, "ws://localhost:18093/ws/detector/viewer")

	req := httptest.NewRequest("POST", "/api/sessions/viewer/end", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("end status = %d, want 200", resp.StatusCode)
	}

	send(t, ws, must(protocol.NewLandmarksMessage(smileLandmarks(1))))
	msg := read(t, ws)
	if msg.Type != protocol.TypeError {
		t.Fatalf("Type = %s, want error after session end", msg.Type)
	}
	if e, _ := msg.GetErrorData(); e == nil || e.Code != protocol.ErrCodeSession {
		t.Errorf("error = %+v", e)
	}

	// Detector-initiated begin
	send(t, ws, must(protocol.NewSessionBeginMessage("")))
	time.Sleep(50 * time.Millisecond)

	send(t, ws, must(protocol.NewLandmarksMessage(smileLandmarks(2))))
	msg = read(t, ws)
	if msg.Type != protocol.TypeResult {
		t.Errorf("Type = %s, want result after begin", msg.Type)
	}
}

func TestBeginSessionUsesNewPipeline(t *testing.T) {
	hub := newTestHub(t, 0)

	startServer(t, hub, ":18094")
	dial(t, "ws://localhost:18094/ws/detector/tuned")

	d := hub.GetDetector("tuned")
	old := d.Session()

	// Same pipeline: the session is reused.
	if err := hub.BeginSession("tuned"); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if d.Session() != old {
		t.Error("session should be reused when tuning is unchanged")
	}

	p, err := pipeline.New(tuning.ResponsiveConfig(), log.Discard())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	hub.SetPipeline(p)
	if err := hub.BeginSession("tuned"); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}

	if d.Session() == old || d.Session().Pipeline() != p {
		t.Error("session should be rebuilt from the new pipeline")
	}
	if !old.Ended() {
		t.Error("the replaced session should be ended")
	}
}

func TestPingPong(t *testing.T) {
	hub := newTestHub(t, 0)

	startServer(t, hub, ":18095")
	ws := dial(t, "ws://localhost:18095/ws/detector/ping-test")

	send(t, ws, must(protocol.NewPingMessage("p1")))

	msg := read(t, ws)
	if msg.Type != protocol.TypePong {
		t.Fatalf("Type = %s, want pong", msg.Type)
	}
	pong, err := msg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData: %v", err)
	}
	if pong.ID != "p1" || pong.PingTS == 0 {
		t.Errorf("pong = %+v", pong)
	}
}

func TestUnsupportedAndMalformed(t *testing.T) {
	hub := newTestHub(t, 0)

	startServer(t, hub, ":18096")
	ws := dial(t, "ws://localhost:18096/ws/detector")

	ws.WriteMessage(websocket.TextMessage, []byte("not json"))
	if e, _ := read(t, ws).GetErrorData(); e == nil || e.Code != protocol.ErrCodeBadMessage {
		t.Errorf("malformed error = %+v", e)
	}

	send(t, ws, must(protocol.NewMessage("dance", nil)))
	if e, _ := read(t, ws).GetErrorData(); e == nil || e.Code != protocol.ErrCodeUnsupported {
		t.Errorf("unsupported error = %+v", e)
	}

	// Generated IDs are used when the path has none.
	infos := hub.GetDetectorInfos()
	if len(infos) != 1 || infos[0].ID == "" {
		t.Errorf("infos = %+v", infos)
	}
}

func TestAPIRoutes(t *testing.T) {
	hub := newTestHub(t, 0)
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	hub.RegisterRoutes(app)
	hub.RegisterAPIRoutes(app.Group("/api"))

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"GET", "/api/detectors/", 200, "detectors"},
		{"GET", "/api/detectors/stats", 200, "frames_dropped"},
		{"POST", "/api/sessions/ghost/begin", 404, "session not found"},
		{"POST", "/api/sessions/ghost/end", 404, "session not found"},
		{"GET", "/ws/detector", fiber.StatusUpgradeRequired, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil))
			if err != nil {
				t.Fatalf("Request error: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body %q should contain %q", body, tt.wantBody)
			}
		})
	}
}

func TestDetectorAdmit(t *testing.T) {
	const iv = DefaultMinInterval
	base := time.UnixMilli(1700000000000)
	at := func(d time.Duration) time.Time { return base.Add(d) }

	tests := []struct {
		name     string
		arrivals []time.Duration
		want     []bool
	}{
		{
			name:     "steady cadence",
			arrivals: []time.Duration{0, iv, 2 * iv, 3 * iv},
			want:     []bool{true, true, true, true},
		},
		{
			name: "late frame then on time",
			// Frame 1 is 600us late, frame 2 lands on its tick.
			arrivals: []time.Duration{0, iv + 600*time.Microsecond, 2*iv + 100*time.Microsecond},
			want:     []bool{true, true, true},
		},
		{
			name:     "jitter within half an interval",
			arrivals: []time.Duration{0, iv + 20*time.Millisecond, 2 * iv, 3*iv - 10*time.Millisecond},
			want:     []bool{true, true, true, true},
		},
		{
			name:     "burst is dropped",
			arrivals: []time.Duration{0, time.Millisecond, 2 * time.Millisecond, iv},
			want:     []bool{true, false, false, true},
		},
		{
			name:     "double rate keeps one per interval",
			arrivals: []time.Duration{0, iv / 2, iv, 3 * iv / 2, 2 * iv, 5 * iv / 2, 3 * iv},
			want:     []bool{true, true, false, true, false, true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Detector{}
			for i, off := range tt.arrivals {
				if got := d.admit(at(off), iv); got != tt.want[i] {
					t.Errorf("frame %d at %v: admit = %v, want %v", i, off, got, tt.want[i])
				}
			}
		})
	}
}

func TestDetectorAdmit_LongRunRate(t *testing.T) {
	const iv = DefaultMinInterval
	d := &Detector{}
	now := time.UnixMilli(1700000000000)

	// 30 fps for ten seconds.
	accepted := 0
	for i := 0; i < 300; i++ {
		if d.admit(now, iv) {
			accepted++
		}
		now = now.Add(time.Second / 30)
	}
	if limit := int(10*time.Second/iv) + 1; accepted > limit {
		t.Errorf("accepted %d frames in 10s, want at most %d", accepted, limit)
	}
	if accepted < 140 {
		t.Errorf("accepted %d frames in 10s, want about 150", accepted)
	}
}

func TestDetectorAdmit_Disabled(t *testing.T) {
	d := &Detector{}
	now := time.Now()
	for i := 0; i < 5; i++ {
		if !d.admit(now, 0) {
			t.Fatalf("frame %d dropped with throttling disabled", i)
		}
	}
}
