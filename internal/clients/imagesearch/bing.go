package imagesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/envutil"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/httpx"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

const defaultEndpoint = "https://api.bing.microsoft.com/v7.0/images/search"

// Client searches stock images for a query.
type Client interface {
	Search(ctx context.Context, query string, count int) ([]domain.ImageResult, error)
}

type bingClient struct {
	log        *logger.Logger
	endpoint   string
	apiKey     string
	safeSearch string
	httpClient *http.Client
}

func NewBingClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("BING_SEARCH_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing BING_SEARCH_API_KEY")
	}
	return NewBingClientWithConfig(log, envutil.String("BING_SEARCH_ENDPOINT", defaultEndpoint), apiKey,
		envutil.Duration("BING_SEARCH_TIMEOUT", 30*time.Second)), nil
}

func NewBingClientWithConfig(log *logger.Logger, endpoint, apiKey string, timeout time.Duration) Client {
	return &bingClient{
		log:        log.With("service", "BingImageSearch"),
		endpoint:   endpoint,
		apiKey:     apiKey,
		safeSearch: "Moderate",
		httpClient: &http.Client{Timeout: timeout},
	}
}

type bingImage struct {
	Name               string `json:"name"`
	ContentURL         string `json:"contentUrl"`
	HostPageURL        string `json:"hostPageUrl"`
	HostPageDisplayURL string `json:"hostPageDisplayUrl"`
	EncodingFormat     string `json:"encodingFormat"`
	ContentSize        string `json:"contentSize"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	AccentColor        string `json:"accentColor"`
	ImageID            string `json:"imageId"`
}

type bingResponse struct {
	Value []bingImage `json:"value"`
}

func (c *bingClient) Search(ctx context.Context, query string, count int) ([]domain.ImageResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))
	q.Set("safeSearch", c.safeSearch)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bing image search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &httpx.StatusError{Service: "bing", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out bingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("bing decode: %w", err)
	}
	images := make([]domain.ImageResult, 0, len(out.Value))
	for _, v := range out.Value {
		images = append(images, domain.ImageResult{
			Name:               v.Name,
			ContentURL:         v.ContentURL,
			HostPageURL:        v.HostPageURL,
			HostPageDisplayURL: v.HostPageDisplayURL,
			EncodingFormat:     v.EncodingFormat,
			ContentSize:        v.ContentSize,
			Width:              v.Width,
			Height:             v.Height,
			AccentColor:        "#" + v.AccentColor,
			ImageID:            v.ImageID,
		})
	}
	return images, nil
}

// Sequential admits one search at a time across every caller that shares it.
// The upstream quota is small enough that concurrent searches get throttled.
type Sequential struct {
	next Client
	sem  *semaphore.Weighted
}

func NewSequential(next Client) *Sequential {
	return &Sequential{next: next, sem: semaphore.NewWeighted(1)}
}

func (s *Sequential) Search(ctx context.Context, query string, count int) ([]domain.ImageResult, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)
	return s.next.Search(ctx, query, count)
}
