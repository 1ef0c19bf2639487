package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

// FallbackDurationSeconds is used when a clip's length cannot be measured.
const FallbackDurationSeconds = 5.0

var ErrNotWAV = errors.New("audio: not a RIFF/WAVE stream")

// WAVDuration reads the fmt and data chunks of a RIFF/WAVE stream and returns
// the playback length in seconds.
func WAVDuration(b []byte) (float64, error) {
	if len(b) < 12 || !bytes.Equal(b[0:4], []byte("RIFF")) || !bytes.Equal(b[8:12], []byte("WAVE")) {
		return 0, ErrNotWAV
	}

	var (
		byteRate uint32
		dataSize uint32
		haveFmt  bool
		haveData bool
	)
	off := 12
	for off+8 <= len(b) && !(haveFmt && haveData) {
		id := string(b[off : off+4])
		size := binary.LittleEndian.Uint32(b[off+4 : off+8])
		body := off + 8
		switch id {
		case "fmt ":
			if body+12 > len(b) {
				return 0, ErrNotWAV
			}
			byteRate = binary.LittleEndian.Uint32(b[body+8 : body+12])
			haveFmt = true
		case "data":
			dataSize = size
			// Streamed WAVs leave the size as 0 or 0xFFFFFFFF.
			if size == 0 || size == math.MaxUint32 || body+int(size) > len(b) {
				dataSize = uint32(len(b) - body)
			}
			haveData = true
		}
		next := body + int(size)
		if size%2 == 1 {
			next++
		}
		if next <= off {
			break
		}
		off = next
	}

	if !haveFmt || !haveData || byteRate == 0 {
		return 0, ErrNotWAV
	}
	return float64(dataSize) / float64(byteRate), nil
}

// DurationOrFallback never fails; unreadable clips get FallbackDurationSeconds.
func DurationOrFallback(b []byte) float64 {
	d, err := WAVDuration(b)
	if err != nil || d <= 0 {
		return FallbackDurationSeconds
	}
	return d
}
