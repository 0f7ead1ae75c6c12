package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/teslashibe/go-mirrormind/pkg/protocol"
)

// maxLine fits a 478-point mesh with blendshapes and a small thumbnail.
const maxLine = 4 << 20

// ReadFrames decodes one protocol.LandmarksData per line. Blank lines and
// lines starting with # are skipped. Frames without an ID are numbered
// from their position in the recording.
func ReadFrames(r io.Reader) ([]protocol.LandmarksData, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var frames []protocol.LandmarksData
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 || b[0] == '#' {
			continue
		}

		var f protocol.LandmarksData
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadFrame, line, err)
		}
		if f.FrameID == 0 {
			f.FrameID = uint64(len(frames) + 1)
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("replay: read: %w", err)
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}

// LoadFrames reads a JSONL recording from disk.
func LoadFrames(path string) ([]protocol.LandmarksData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadFrames(f)
}
