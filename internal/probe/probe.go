// Package probe reads technical metadata from local media files via
// ffprobe. It is optional: uploads work without it, it only enriches the
// plan view and log entries.
package probe

import (
	"context"
	"fmt"
	"os"
	"time"

	ffprobe "gopkg.in/vansante/go-ffprobe.v2"
)

// probeFunc defines the function signature used to execute ffprobe.
type probeFunc func(ctx context.Context, path string, extraOpts ...string) (*ffprobe.ProbeData, error)

// Info is the subset of ffprobe output shown for a media file.
type Info struct {
	Duration   time.Duration
	VideoCodec string
	Width      int
	Height     int
	SizeBytes  int64
}

// Prober inspects media files.
type Prober struct {
	probe probeFunc
}

// New creates a Prober backed by the ffprobe binary on PATH.
func New() *Prober {
	return &Prober{probe: ffprobe.ProbeURL}
}

// Inspect probes path and returns its technical metadata.
func (p *Prober) Inspect(ctx context.Context, path string) (*Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	data, err := p.probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	info := &Info{SizeBytes: stat.Size()}
	if data == nil {
		return info, nil
	}
	if data.Format != nil {
		info.Duration = data.Format.Duration()
	}
	if stream := data.FirstVideoStream(); stream != nil {
		info.VideoCodec = stream.CodecName
		info.Width = stream.Width
		info.Height = stream.Height
	}
	return info, nil
}
