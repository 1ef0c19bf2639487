package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func buildWAV(t *testing.T, sampleRate uint32, channels uint16, bitsPerSample uint16, samples int, extra bool) []byte {
	t.Helper()
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * uint32(blockAlign)
	data := make([]byte, samples*int(blockAlign))

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, channels)
	_ = binary.Write(&buf, binary.LittleEndian, sampleRate)
	_ = binary.Write(&buf, binary.LittleEndian, byteRate)
	_ = binary.Write(&buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(&buf, binary.LittleEndian, bitsPerSample)
	if extra {
		buf.WriteString("LIST")
		_ = binary.Write(&buf, binary.LittleEndian, uint32(3))
		buf.Write([]byte{1, 2, 3, 0})
	}
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

func TestWAVDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		wav  []byte
		want float64
	}{
		{"mono 24k two seconds", buildWAV(t, 24000, 1, 16, 48000, false), 2.0},
		{"stereo 16k half second", buildWAV(t, 16000, 2, 16, 8000, false), 0.5},
		{"odd sized chunk before data", buildWAV(t, 8000, 1, 16, 8000, true), 1.0},
	}
	for _, tc := range cases {
		got, err := WAVDuration(tc.wav)
		if err != nil {
			t.Fatalf("%s: WAVDuration: %v", tc.name, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestDurationOrFallback(t *testing.T) {
	t.Parallel()

	if got := DurationOrFallback([]byte("not audio at all")); got != FallbackDurationSeconds {
		t.Fatalf("garbage: want fallback got %v", got)
	}
	if got := DurationOrFallback(nil); got != FallbackDurationSeconds {
		t.Fatalf("nil: want fallback got %v", got)
	}
	if got := DurationOrFallback(buildWAV(t, 24000, 1, 16, 24000, false)); got != 1.0 {
		t.Fatalf("valid: want 1 got %v", got)
	}
}
