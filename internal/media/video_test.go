package media

import "testing"

func TestEmbedURL(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/embed/dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=abc123&t=42s", "https://www.youtube.com/embed/abc123"},
		{"https://youtu.be/dQw4w9WgXcQ", "https://www.youtube.com/embed/dQw4w9WgXcQ"},
	} {
		got, err := EmbedURL(tc.in)
		if err != nil {
			t.Fatalf("embed %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("embed %q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEmbedURLRejectsBadInput(t *testing.T) {
	for _, in := range []string{
		"",
		"https://www.youtube.com/",
		"https://example.com/a/b/c",
	} {
		if _, err := EmbedURL(in); err == nil {
			t.Errorf("embed %q: expected error", in)
		}
	}
}
