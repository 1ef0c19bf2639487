package envutil

import (
	"testing"
	"time"
)

func TestReaders(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "7")
	t.Setenv("ENVUTIL_BAD_INT", "seven")
	t.Setenv("ENVUTIL_BOOL", "on")
	t.Setenv("ENVUTIL_FLOAT", "0.5")
	t.Setenv("ENVUTIL_DUR", "90s")
	t.Setenv("ENVUTIL_SECS", "12")

	if got := Int("ENVUTIL_INT", 1); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	if got := Int("ENVUTIL_BAD_INT", 3); got != 3 {
		t.Fatalf("Int fallback: want=3 got=%d", got)
	}
	if !Bool("ENVUTIL_BOOL", false) {
		t.Fatalf("Bool: want true")
	}
	if Bool("ENVUTIL_MISSING", false) {
		t.Fatalf("Bool default: want false")
	}
	if got := Float("ENVUTIL_FLOAT", 1); got != 0.5 {
		t.Fatalf("Float: want=0.5 got=%v", got)
	}
	if got := Duration("ENVUTIL_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("Duration: want=90s got=%v", got)
	}
	if got := Duration("ENVUTIL_SECS", time.Second); got != 12*time.Second {
		t.Fatalf("Duration secs: want=12s got=%v", got)
	}
	if got := String("ENVUTIL_MISSING", "def"); got != "def" {
		t.Fatalf("String default: got=%q", got)
	}
}
