package ctxutil

import (
	"context"
	"testing"
)

func TestRequestDataRoundTrip(t *testing.T) {
	t.Parallel()

	if RequestDataFrom(context.Background()) != nil {
		t.Fatalf("bare context should carry no request data")
	}
	rd := &RequestData{TraceID: "t1", RequestID: "r1"}
	ctx := WithRequestData(context.Background(), rd)

	got := RequestDataFrom(ctx)
	got.Identify("u1", "")
	got.Identify("", "v1")

	fields := got.LogFields()
	want := []interface{}{"trace_id", "t1", "request_id", "r1", "user_id", "u1", "video_id", "v1"}
	if len(fields) != len(want) {
		t.Fatalf("fields: %v", fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("fields: %v", fields)
		}
	}
}

func TestNilRequestDataIsSafe(t *testing.T) {
	t.Parallel()

	var rd *RequestData
	rd.Identify("u", "v")
	if rd.LogFields() != nil {
		t.Fatalf("nil request data should log nothing")
	}
}
