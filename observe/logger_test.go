package observe

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "dev", ""} {
		logger := NewLogger("debug", env)
		if logger == nil {
			t.Fatalf("NewLogger(debug, %q) returned nil", env)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("NewLogger(debug, %q) does not enable debug level", env)
		}
	}

	logger := NewLogger("error", "prod")
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("NewLogger(error, prod) should not enable info level")
	}
}
