package observability

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	t.Parallel()

	got := ParseHeaders(" api-key = abc ,broken,=x, tenant=swiftube,")
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "swiftube" {
		t.Fatalf("headers: %v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty input should give nil")
	}
}

func TestClampRatio(t *testing.T) {
	t.Parallel()

	for in, want := range map[float64]float64{-1: 0, 0.25: 0.25, 3: 1} {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v) = %v", in, got)
		}
	}
}

func TestSpansWithoutProviderAreSafe(t *testing.T) {
	t.Parallel()

	ctx, span := StartSpan(context.Background(), "stage.metadata")
	if ctx == nil || span == nil {
		t.Fatalf("StartSpan returned nil")
	}
	EndSpan(span, context.Canceled)
	EndSpan(nil, nil)
}
