package logging

import (
	"strings"
	"testing"
)

func TestRedactor_RedactURL(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "key parameter",
			in:   "https://host/tiles/1/2/3.pbf?key=s3cret",
			want: "https://host/tiles/1/2/3.pbf?key=***",
		},
		{
			name: "mid-query token",
			in:   "https://host/style.json?style=dark&token=abc&v=2",
			want: "https://host/style.json?style=dark&token=***&v=2",
		},
		{
			name: "access_token",
			in:   "https://api.mapbox.example/styles?access_token=pk.abc123",
			want: "https://api.mapbox.example/styles?access_token=***",
		},
		{
			name: "no credentials",
			in:   "https://host/tiles/1/2/3.png",
			want: "https://host/tiles/1/2/3.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactURL(tt.in); got != tt.want {
				t.Errorf("RedactURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRedactor_WithSecrets(t *testing.T) {
	r := NewRedactor().WithSecrets([]string{"super-secret-value", ""})

	out := r.Redact("fetch failed for path containing super-secret-value somewhere")
	if strings.Contains(out, "super-secret-value") {
		t.Errorf("Secret survived redaction: %q", out)
	}
	if !strings.Contains(out, "***") {
		t.Errorf("Expected mask in output: %q", out)
	}
}
