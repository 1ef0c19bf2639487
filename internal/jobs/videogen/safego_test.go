package videogen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestGoSafeRecoversPanic(t *testing.T) {
	t.Parallel()

	g, gctx := errgroup.WithContext(context.Background())
	goSafe(g, func() error { panic("boom") })
	goSafe(g, func() error {
		<-gctx.Done()
		return nil
	})
	err := g.Wait()
	if err == nil || !strings.Contains(err.Error(), "panic: boom") {
		t.Fatalf("want recovered panic, got %v", err)
	}
}

func TestGoSafePassesErrorsThrough(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var g errgroup.Group
	goSafe(&g, func() error { return boom })
	goSafe(&g, func() error { return nil })
	if err := g.Wait(); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
}
