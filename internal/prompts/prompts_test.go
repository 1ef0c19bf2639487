package prompts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

type fakeRemote struct {
	m     map[string]string
	err   error
	calls int
}

func (f *fakeRemote) Prompts(context.Context) (map[string]string, error) {
	f.calls++
	return f.m, f.err
}

func TestRender(t *testing.T) {
	t.Parallel()

	got := Render("Topic {replaceMe.topic}, prompt {replaceMe.originalPrompt}, {replaceMe.unknown}", map[string]string{
		"topic":          "Photosynthesis",
		"originalPrompt": "Explain photosynthesis",
	})
	want := "Topic Photosynthesis, prompt Explain photosynthesis, {replaceMe.unknown}"
	if got != want {
		t.Fatalf("Render: want=%q got=%q", want, got)
	}
}

func TestStoreDefaults(t *testing.T) {
	s, err := NewStore(logger.Nop(), nil, time.Minute)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, k := range requiredKeys {
		v, err := s.Get(context.Background(), k)
		if err != nil || strings.TrimSpace(v) == "" {
			t.Fatalf("Get(%s): err=%v empty=%v", k, err, v == "")
		}
	}
	if _, err := s.Get(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	md, _ := s.Get(context.Background(), MetadataUser)
	if !strings.Contains(md, "{replaceMe.prompt}") {
		t.Fatalf("metadata user template lost its placeholder")
	}
}

func TestStoreRemoteOverrideAndCache(t *testing.T) {
	remote := &fakeRemote{m: map[string]string{
		MetadataSystem: "remote system prompt",
		OutroUser:      "remote outro {replaceMe.contentsOfVideo}",
	}}
	s, err := NewStore(logger.Nop(), remote, time.Hour)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()

	v, _ := s.Get(ctx, OutroUser)
	if v != "remote outro {replaceMe.contentsOfVideo}" {
		t.Fatalf("override not applied: %q", v)
	}
	v, _ = s.Get(ctx, IntroUser)
	if !strings.Contains(v, "{replaceMe.title}") {
		t.Fatalf("default not used for key missing from override: %q", v)
	}
	if remote.calls != 1 {
		t.Fatalf("remote should be cached: calls=%d", remote.calls)
	}
}

func TestStoreRemoteInvalidIgnored(t *testing.T) {
	remote := &fakeRemote{m: map[string]string{OutroUser: "should be ignored"}}
	s, _ := NewStore(logger.Nop(), remote, time.Hour)
	v, _ := s.Get(context.Background(), OutroUser)
	if v == "should be ignored" {
		t.Fatalf("override without metadata system prompt must be ignored")
	}

	failing := &fakeRemote{err: errors.New("redis down")}
	s2, _ := NewStore(logger.Nop(), failing, time.Hour)
	if _, err := s2.Get(context.Background(), OutroUser); err != nil {
		t.Fatalf("remote failure must fall back to defaults: %v", err)
	}
}
