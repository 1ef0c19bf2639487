package videogen

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thecmdrunner/swiftube-backend/internal/clients/openai"
	"github.com/thecmdrunner/swiftube-backend/internal/domain"
)

// routedGenerator answers by recognizing which prompt template it was sent.
type routedGenerator struct {
	mu      sync.Mutex
	replies map[string]string
	calls   map[string]int
	temps   map[string]float64
	users   map[string]string
	onCall  func(stage string)
}

func newRoutedGenerator(replies map[string]string) *routedGenerator {
	return &routedGenerator{
		replies: replies,
		calls:   map[string]int{},
		temps:   map[string]float64{},
		users:   map[string]string{},
	}
}

var stageMarkers = []struct{ marker, stage string }{
	{"Plan a video", "metadata"},
	{"Write the talking points", "talkingPoints"},
	{"section title", "titles"},
	{"data table", "table"},
	{"spoken introduction", "intro"},
	{"spoken closing", "outro"},
}

func (g *routedGenerator) Chat(ctx context.Context, req openai.ChatRequest) (string, error) {
	last := req.Messages[len(req.Messages)-1].Content
	stage := ""
	for _, m := range stageMarkers {
		if strings.Contains(last, m.marker) {
			stage = m.stage
			break
		}
	}
	g.mu.Lock()
	g.calls[stage]++
	if req.Temperature != nil {
		g.temps[stage] = *req.Temperature
	}
	g.users[stage] = req.User
	reply, ok := g.replies[stage]
	hook := g.onCall
	g.mu.Unlock()

	if hook != nil {
		hook(stage)
	}
	if !ok {
		return "", errors.New("no reply scripted for " + stage)
	}
	return reply, nil
}

func (g *routedGenerator) count(stage string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[stage]
}

type fakeNarrator struct {
	mu    sync.Mutex
	texts  []string
	fail   bool
	panics bool
}

func (n *fakeNarrator) Narrate(ctx context.Context, text string, gender domain.VoiceGender, dir string) (domain.SynthesizedAudio, error) {
	n.mu.Lock()
	n.texts = append(n.texts, string(gender)+":"+text)
	n.mu.Unlock()
	if n.panics {
		panic("narrator exploded")
	}
	if n.fail {
		return domain.SynthesizedAudio{}, errors.New("tts quota exceeded")
	}
	dur := 2.0
	if gender == domain.VoiceFemale {
		dur = 3.0
	}
	return domain.SynthesizedAudio{URL: "https://cdn.test/" + dir + "/" + string(gender) + ".wav", DurationSeconds: dur}, nil
}

func (n *fakeNarrator) saw(entry string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range n.texts {
		if t == entry {
			return true
		}
	}
	return false
}

// countingSearch records the highest number of searches in flight at once.
type countingSearch struct {
	inflight    atomic.Int32
	maxInflight atomic.Int32
	mu          sync.Mutex
	queries     []string
}

func (s *countingSearch) Search(ctx context.Context, query string, count int) ([]domain.ImageResult, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		cur := s.maxInflight.Load()
		if n <= cur || s.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	out := make([]domain.ImageResult, count)
	for i := range out {
		out[i] = domain.ImageResult{Name: query, ContentURL: "https://img.test/" + query}
	}
	return out, nil
}

type fakeCover struct{}

func (fakeCover) Render(meta domain.VideoMetadata) ([]byte, error) { return []byte("png"), nil }

type memStore struct {
	mu   sync.Mutex
	keys []string
}

func (s *memStore) UploadFile(ctx context.Context, key string, r io.Reader, metadata map[string]string) error {
	if _, err := io.ReadAll(r); err != nil {
		return err
	}
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	return nil
}

func (s *memStore) GetPublicURL(key string) string { return "https://cdn.test/" + key }
