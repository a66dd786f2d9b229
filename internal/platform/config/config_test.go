package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset", "", 7 * time.Millisecond},
		{"duration", "250ms", 250 * time.Millisecond},
		{"seconds", "2s", 2 * time.Second},
		{"bare_millis", "15", 15 * time.Millisecond},
		{"malformed", "soon", 7 * time.Millisecond},
		{"negative", "-5ms", 7 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_TICK", tt.value)
			if got := GetEnvDuration("TEST_TICK", 7*time.Millisecond); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGetEnvInt_fallback(t *testing.T) {
	t.Setenv("TEST_BUFFERS", "lots")
	if got := GetEnvInt("TEST_BUFFERS", 30); got != 30 {
		t.Errorf("expected fallback 30, got %d", got)
	}
	t.Setenv("TEST_BUFFERS", "12")
	if got := GetEnvInt("TEST_BUFFERS", 30); got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
}

func TestFromEnv_defaults(t *testing.T) {
	for _, k := range []string{"PORT", "TICK_PERIOD", "AUDIO_BUFFERS", "SOURCE_SECONDS"} {
		t.Setenv(k, "")
	}

	s := FromEnv()
	if s.Port != "8080" {
		t.Errorf("expected port 8080, got %q", s.Port)
	}
	if s.TickPeriod != 10*time.Millisecond {
		t.Errorf("expected 10ms tick, got %v", s.TickPeriod)
	}
	if s.AudioBuffers != 30 {
		t.Errorf("expected 30 buffers, got %d", s.AudioBuffers)
	}
	if s.SourceLength != 10*time.Second {
		t.Errorf("expected 10s source, got %v", s.SourceLength)
	}
}

func TestLoad_dotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.env")
	if err := os.WriteFile(path, []byte("TEST_SOURCE_FPS=50\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_SOURCE_FPS", "")
	os.Unsetenv("TEST_SOURCE_FPS")

	if err := Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := GetEnvInt("TEST_SOURCE_FPS", 25); got != 50 {
		t.Errorf("expected 50 from env file, got %d", got)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected error for missing env file")
	}
}
