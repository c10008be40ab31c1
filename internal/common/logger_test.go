package common

import "testing"

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want LogLevel
	}{
		{"error", LogLevelError},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"info", LogLevelInfo},
		{"debug", LogLevelDebug},
		{"", LogLevelInfo},
		{"bogus", LogLevelInfo},
	}
	for _, c := range cases {
		if got := ParseLogLevel(c.in); got != c.want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLogLevelString(t *testing.T) {
	if LogLevelDebug.String() != "debug" || LogLevelError.String() != "error" {
		t.Fatalf("unexpected log level strings")
	}
}

func TestWithContextPreservesLevel(t *testing.T) {
	l := NewLogger(LogLevelDebug)
	for _, derived := range []*Logger{
		l.WithComponent("migration"),
		l.WithBackend("sqlite"),
		l.WithVersion(3),
		l.WithPool("main"),
		l.WithOperation("nodes"),
	} {
		if derived.Level() != LogLevelDebug {
			t.Fatalf("derived logger dropped the level")
		}
	}
}

func TestSetDefaultLogger(t *testing.T) {
	prev := GetLogger()
	defer SetDefaultLogger(prev)

	l := NewJSONLogger(LogLevelWarn)
	SetDefaultLogger(l)
	if GetLogger() != l {
		t.Fatalf("default logger was not replaced")
	}
}
