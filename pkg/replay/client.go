// Package replay streams recorded landmark frames into a running
// MirrorMind ingest endpoint and collects the smoothed results, for
// regression runs and tuning without a camera.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-mirrormind/internal/log"
	"github.com/teslashibe/go-mirrormind/pkg/affect"
	"github.com/teslashibe/go-mirrormind/pkg/protocol"
)

const (
	// DefaultInterval matches the detector's ~15 fps cadence.
	DefaultInterval = 66 * time.Millisecond
	// DefaultDrain is how long to wait for trailing results.
	DefaultDrain = time.Second
)

// Config configures a replay run.
type Config struct {
	// URL is the ingest endpoint, e.g. ws://localhost:8080/ws/detector.
	URL string
	// DetectorID is appended to URL when set.
	DetectorID string
	Interval   time.Duration
	Drain      time.Duration
}

// Report is what a run sent and received.
type Report struct {
	Sent    int
	Results []protocol.ResultData
	Errors  []protocol.ErrorData
	Elapsed time.Duration
}

// Final returns the last result received.
func (r Report) Final() (affect.Result, bool) {
	if len(r.Results) == 0 {
		return affect.Result{}, false
	}
	return r.Results[len(r.Results)-1].Result, true
}

// StateCounts tallies the reported state of every result.
func (r Report) StateCounts() map[affect.State]int {
	counts := make(map[affect.State]int)
	for _, res := range r.Results {
		counts[res.Result.State]++
	}
	return counts
}

// Client plays recordings over a detector websocket.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dialer websocket.Dialer

	// OnResult is called for every result as it arrives.
	OnResult func(protocol.ResultData)
}

// New creates a replay client. Zero Interval and Drain use the defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Drain <= 0 {
		cfg.Drain = DefaultDrain
	}
	return &Client{
		cfg:    cfg,
		logger: log.Or(logger, "replay"),
		dialer: websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (c *Client) endpoint() string {
	if c.cfg.DetectorID == "" {
		return c.cfg.URL
	}
	return strings.TrimRight(c.cfg.URL, "/") + "/" + url.PathEscape(c.cfg.DetectorID)
}

// collector gathers replies from the read loop.
type collector struct {
	mu      sync.Mutex
	results []protocol.ResultData
	errors  []protocol.ErrorData
	changed chan struct{}
}

func (col *collector) replies() int {
	col.mu.Lock()
	defer col.mu.Unlock()
	return len(col.results) + len(col.errors)
}

// Run sends frames one Interval apart, framed by session begin and end,
// and waits up to Drain for outstanding results. On cancellation it
// returns what was collected along with ctx.Err().
func (c *Client) Run(ctx context.Context, frames []protocol.LandmarksData) (Report, error) {
	if len(frames) == 0 {
		return Report{}, ErrNoFrames
	}

	ws, _, err := c.dialer.DialContext(ctx, c.endpoint(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("replay: dial %s: %w", c.endpoint(), err)
	}
	defer ws.Close()

	start := time.Now()
	col := &collector{changed: make(chan struct{}, 1)}
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		c.readLoop(ws, col)
	}()

	c.logger.Info("replay started", "url", c.endpoint(), "frames", len(frames), "interval", c.cfg.Interval)

	sent, runErr := c.send(ctx, ws, frames)
	if runErr == nil {
		runErr = c.drain(ctx, col, sent)
	}

	if msg, err := protocol.NewSessionEndMessage(""); err == nil {
		c.write(ws, msg)
	}
	ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	ws.Close()
	<-readDone

	col.mu.Lock()
	rep := Report{
		Sent:    sent,
		Results: col.results,
		Errors:  col.errors,
		Elapsed: time.Since(start),
	}
	col.mu.Unlock()

	c.logger.Info("replay finished",
		"sent", rep.Sent,
		"results", len(rep.Results),
		"errors", len(rep.Errors),
		"elapsed", rep.Elapsed.Round(time.Millisecond))
	return rep, runErr
}

func (c *Client) send(ctx context.Context, ws *websocket.Conn, frames []protocol.LandmarksData) (int, error) {
	begin, err := protocol.NewSessionBeginMessage("")
	if err != nil {
		return 0, err
	}
	if err := c.write(ws, begin); err != nil {
		return 0, err
	}

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	sent := 0
	for i, f := range frames {
		if i > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-ticker.C:
			}
		}

		msg, err := protocol.NewLandmarksMessage(f)
		if err != nil {
			return sent, err
		}
		if err := c.write(ws, msg); err != nil {
			return sent, err
		}
		sent++
		c.logger.Debug("frame sent", "frame", f.FrameID)
	}
	return sent, nil
}

// drain waits until every frame was answered or Drain elapses. Frames the
// server throttled never get a reply, so a timeout is not an error.
func (c *Client) drain(ctx context.Context, col *collector, sent int) error {
	timer := time.NewTimer(c.cfg.Drain)
	defer timer.Stop()

	for col.replies() < sent {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-col.changed:
		}
	}
	return nil
}

func (c *Client) write(ws *websocket.Conn, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("replay: write: %w", err)
	}
	return nil
}

func (c *Client) readLoop(ws *websocket.Conn, col *collector) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("read error", "error", err)
			}
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			c.logger.Warn("unparseable reply", "error", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeResult:
			res, err := msg.GetResultData()
			if err != nil {
				continue
			}
			col.mu.Lock()
			col.results = append(col.results, *res)
			col.mu.Unlock()
			if c.OnResult != nil {
				c.OnResult(*res)
			}

		case protocol.TypeError:
			e, err := msg.GetErrorData()
			if err != nil {
				continue
			}
			c.logger.Warn("server error", "code", e.Code, "message", e.Message)
			col.mu.Lock()
			col.errors = append(col.errors, *e)
			col.mu.Unlock()

		default:
			continue
		}

		select {
		case col.changed <- struct{}{}:
		default:
		}
	}
}
