package imagesearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

func TestBingSearchMapsResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "key" {
			t.Errorf("missing subscription key header")
		}
		q := r.URL.Query()
		if q.Get("q") != "Photosynthesis" || q.Get("count") != "3" || q.Get("safeSearch") != "Moderate" {
			t.Errorf("query params: %v", q)
		}
		_, _ = w.Write([]byte(`{"value":[{"name":"leaf","contentUrl":"https://img/1.jpg","width":800,"height":600,"accentColor":"3A7F22","imageId":"abc"}]}`))
	}))
	defer srv.Close()

	c := NewBingClientWithConfig(logger.Nop(), srv.URL, "key", 5*time.Second)
	imgs, err := c.Search(context.Background(), "Photosynthesis", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(imgs) != 1 {
		t.Fatalf("len: want=1 got=%d", len(imgs))
	}
	if imgs[0].AccentColor != "#3A7F22" || imgs[0].ContentURL != "https://img/1.jpg" || imgs[0].ImageID != "abc" {
		t.Fatalf("mapped image: %+v", imgs[0])
	}
}

func TestBingSearchStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewBingClientWithConfig(logger.Nop(), srv.URL, "key", 5*time.Second)
	if _, err := c.Search(context.Background(), "x", 3); err == nil {
		t.Fatalf("expected error on 429")
	}
}

type slowClient struct {
	inFlight int32
	maxSeen  int32
}

func (s *slowClient) Search(ctx context.Context, query string, count int) ([]domain.ImageResult, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	for {
		m := atomic.LoadInt32(&s.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxSeen, m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&s.inFlight, -1)
	return []domain.ImageResult{{Name: query}}, nil
}

func TestSequentialAllowsOneSearchAtATime(t *testing.T) {
	t.Parallel()

	inner := &slowClient{}
	seq := NewSequential(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := seq.Search(context.Background(), "q", 3); err != nil {
				t.Errorf("Search: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&inner.maxSeen); got != 1 {
		t.Fatalf("max concurrent searches: want=1 got=%d", got)
	}
}
