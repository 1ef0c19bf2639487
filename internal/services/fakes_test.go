package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"strings"
	"sync"

	"github.com/thecmdrunner/swiftube-backend/internal/clients/gcp"
	"github.com/thecmdrunner/swiftube-backend/internal/clients/openai"
	"github.com/thecmdrunner/swiftube-backend/internal/clients/redis"
)

type memBucket struct {
	mu      sync.Mutex
	objects map[string]memObject
	uploads int
}

type memObject struct {
	data []byte
	meta map[string]string
}

func newMemBucket() *memBucket { return &memBucket{objects: map[string]memObject{}} }

func (b *memBucket) UploadFile(ctx context.Context, key string, r io.Reader, metadata map[string]string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = memObject{data: data, meta: metadata}
	b.uploads++
	return nil
}

func (b *memBucket) GetObjectAttrs(ctx context.Context, key string) (*gcp.ObjectAttrs, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[key]
	if !ok {
		return nil, gcp.ErrObjectNotFound
	}
	return &gcp.ObjectAttrs{Size: int64(len(o.data)), Metadata: o.meta}, nil
}

func (b *memBucket) DeleteFile(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *memBucket) GetPublicURL(key string) string { return "https://cdn.test/" + key }

func (b *memBucket) Close() error { return nil }

type fakeTTS struct {
	mu     sync.Mutex
	calls  int
	voices []string
	fail   bool
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string, voice gcp.VoiceProfile) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.voices = append(f.voices, voice.Name)
	f.mu.Unlock()
	if f.fail {
		return nil, io.ErrUnexpectedEOF
	}
	return wavOfSeconds(2), nil
}

func (f *fakeTTS) Close() error { return nil }

// wavOfSeconds builds a mono 16-bit 8kHz clip.
func wavOfSeconds(sec int) []byte {
	const rate = 8000
	data := make([]byte, rate*2*sec)
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(rate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

type fakeModerator struct {
	flagged bool
	err     error
	calls   int
}

func (m *fakeModerator) Chat(ctx context.Context, req openai.ChatRequest) (string, error) {
	return "", nil
}

func (m *fakeModerator) Moderate(ctx context.Context, input string) (openai.ModerationResult, error) {
	m.calls++
	if m.err != nil {
		return openai.ModerationResult{}, m.err
	}
	return openai.ModerationResult{Flagged: m.flagged || strings.Contains(input, "forbidden")}, nil
}

type fakeSettings struct {
	meta      redis.GeneralMetadata
	err       error
	reducedBy int
}

func (f *fakeSettings) Prompts(ctx context.Context) (map[string]string, error) { return nil, nil }

func (f *fakeSettings) GeneralMetadata(ctx context.Context) (redis.GeneralMetadata, error) {
	return f.meta, f.err
}

func (f *fakeSettings) ReduceTotalCreditsAllotted(ctx context.Context, by int) (int, error) {
	f.reducedBy += by
	f.meta.TotalCreditsAllotted -= by
	return f.meta.TotalCreditsAllotted, nil
}

func (f *fakeSettings) Close() error { return nil }
