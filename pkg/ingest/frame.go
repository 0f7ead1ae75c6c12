package ingest

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-mirrormind/pkg/face"
	"github.com/teslashibe/go-mirrormind/pkg/lighting"
	"github.com/teslashibe/go-mirrormind/pkg/pipeline"
	"github.com/teslashibe/go-mirrormind/pkg/protocol"
)

// toFrame converts a detector message into a pipeline frame. Only the
// primary face is analysed. A thumbnail that cannot be decoded is logged
// and brightness is skipped for that frame.
func toFrame(data *protocol.LandmarksData, ts time.Time, logger *slog.Logger) pipeline.Frame {
	f := pipeline.Frame{
		Width:     data.Width,
		Height:    data.Height,
		Timestamp: ts,
	}

	candidates := make([]face.Candidate, 0, len(data.Faces))
	for _, fd := range data.Faces {
		if len(fd.Landmarks) == 0 {
			continue
		}
		candidates = append(candidates, face.Candidate{
			Landmarks:   face.Landmarks(fd.Landmarks),
			Blendshapes: face.FromCategories(fd.Blendshapes),
			Confidence:  fd.Confidence,
		})
	}
	if primary := face.SelectPrimary(candidates); primary != nil {
		f.Landmarks = primary.Landmarks
		f.Blendshapes = primary.Blendshapes
	}

	switch {
	case data.Luma != nil:
		f.Brightness = &lighting.Sample{Luma: *data.Luma}
	case data.Thumbnail != "":
		jpeg, err := data.DecodeThumbnail()
		if err != nil {
			logger.Warn("bad thumbnail encoding", "frame", data.FrameID, "error", err)
			break
		}
		s, err := lighting.FromJPEG(jpeg)
		if err != nil {
			logger.Warn("thumbnail decode failed", "frame", data.FrameID, "error", err)
			break
		}
		f.Brightness = &s
	}
	return f
}
