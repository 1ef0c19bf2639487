package ctxutil

import (
	"context"
	"sync"
)

type requestDataKey struct{}

// RequestData identifies one API request. UserID and VideoID are filled in
// by handlers once the body has been read, so they are guarded.
type RequestData struct {
	TraceID   string
	RequestID string

	mu      sync.Mutex
	userID  string
	videoID string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

// RequestDataFrom returns nil outside an API request.
func RequestDataFrom(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(requestDataKey{}).(*RequestData)
	return rd
}

// Identify records the caller and video; empty values leave the old ones.
func (rd *RequestData) Identify(userID, videoID string) {
	if rd == nil {
		return
	}
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if userID != "" {
		rd.userID = userID
	}
	if videoID != "" {
		rd.videoID = videoID
	}
}

// LogFields returns the non-empty identifiers as logger key/value pairs.
func (rd *RequestData) LogFields() []interface{} {
	if rd == nil {
		return nil
	}
	rd.mu.Lock()
	defer rd.mu.Unlock()
	var kv []interface{}
	for _, f := range [...]struct{ k, v string }{
		{"trace_id", rd.TraceID},
		{"request_id", rd.RequestID},
		{"user_id", rd.userID},
		{"video_id", rd.videoID},
	} {
		if f.v != "" {
			kv = append(kv, f.k, f.v)
		}
	}
	return kv
}
