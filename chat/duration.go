package chat

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// DurationProber measures how long an encoded voice clip plays
type DurationProber interface {
	Probe(ctx context.Context, data []byte) (time.Duration, error)
}

var errNotWAV = errors.New("not a RIFF/WAVE stream")

// WAVDurationProber reads the duration from a RIFF/WAVE header
type WAVDurationProber struct{}

// Probe walks the chunk list for "fmt " and "data" and divides the data size
// by the byte rate. A data chunk whose declared size runs past the buffer,
// as written by streaming encoders, is measured by what is present.
func (WAVDurationProber) Probe(_ context.Context, data []byte) (time.Duration, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return 0, errNotWAV
	}

	var byteRate uint32
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int64(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8

		switch id {
		case "fmt ":
			if body+12 > len(data) {
				return 0, errNotWAV
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, errors.New("wav data chunk before a valid fmt chunk")
			}
			if remaining := int64(len(data) - body); size > remaining {
				size = remaining
			}
			secs := float64(size) / float64(byteRate)
			return time.Duration(secs * float64(time.Second)), nil
		}

		// chunks are padded to an even length
		off = body + int(size) + int(size&1)
	}
	return 0, errors.New("wav stream has no data chunk")
}

// wholeSeconds rounds to the nearest second
func wholeSeconds(d time.Duration) int {
	return int(math.Round(d.Seconds()))
}
