package observability

import "testing"

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"error", "error"},
		{"unknown falls back to info", "verbose"},
		{"empty falls back to info", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level)
			if err != nil {
				t.Fatalf("NewLogger(%q): %v", tt.level, err)
			}
			if logger == nil {
				t.Fatalf("NewLogger(%q) returned nil logger", tt.level)
			}
		})
	}
}
