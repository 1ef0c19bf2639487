package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/thecmdrunner/swiftube-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachRequestData gives every request a trace and request id, reusing the
// caller's headers or the active span when present.
func AttachRequestData() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		traceID := strings.TrimSpace(c.GetHeader(headerTraceID))
		if traceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				traceID = sc.TraceID().String()
			} else {
				traceID = uuid.NewString()
			}
		}
		rd := &ctxutil.RequestData{TraceID: traceID, RequestID: reqID}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

// Identify tags the request with the user and video named in its body, for
// the request log and the active span.
func Identify(c *gin.Context, userID, videoID string) {
	ctx := c.Request.Context()
	ctxutil.RequestDataFrom(ctx).Identify(userID, videoID)
	if videoID != "" {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("video_id", videoID))
	}
}
