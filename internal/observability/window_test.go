package observability

import (
	"testing"
	"time"
)

func TestSinceWindow(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", DefaultWindow, false},
		{"24h", 24 * time.Hour, false},
		{" 2d ", 48 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"1h30m", 90 * time.Minute, false},
		{"0d", 0, false},
		{"3w", 0, true},
		{"xd", 0, true},
		{"-1h", 0, true},
		{"7", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SinceWindow(tt.in, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SinceWindow(%q) error = %v", tt.in, err)
			}
			if err == nil && now.Sub(got) != tt.want {
				t.Errorf("SinceWindow(%q) = %v before now, want %v", tt.in, now.Sub(got), tt.want)
			}
		})
	}
}
