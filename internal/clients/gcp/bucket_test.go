package gcp

import "testing"

func TestPublicURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, cdn, base, key, want string
	}{
		{"gcs default", "", "", "aishortz/v1/a.wav", "https://storage.googleapis.com/media/aishortz/v1/a.wav"},
		{"cdn", "cdn.example.com", "http://localhost:4443", "/aishortz/a.wav", "https://cdn.example.com/aishortz/a.wav"},
		{"emulator base", "", "http://localhost:4443", "a.wav", "http://localhost:4443/media/a.wav"},
	}
	for _, tc := range cases {
		if got := publicURL(tc.cdn, tc.base, "media", tc.key); got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}

func TestContentTypeForKey(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"dir/en-US-Standard-D-abc.wav": "audio/wav",
		"dir/cover.PNG":                "image/png",
		"dir/x.mp3?x=1":                "audio/mpeg",
		"dir/unknown.bin":              "",
	}
	for key, want := range cases {
		if got := contentTypeForKey(key); got != want {
			t.Fatalf("contentTypeForKey(%q): want=%q got=%q", key, want, got)
		}
	}
}
