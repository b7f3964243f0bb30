package conf

import (
	"os"
	"testing"
)

func TestLoadFromFileDefaultsAndValidates(t *testing.T) {
	content := `log:
  level: "debug"

timer:
  task_freq_hz: 100
  tick_rate_hz: 1000

mldp:
  unsolicited_report_dly_sec: 2
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer os.Remove(tmpfile.Name())
	if _, err := tmpfile.WriteString(content); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cfg, err := LoadFromFile(tmpfile.Name())
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Timer.PoolSize < 1 {
		t.Errorf("Timer.PoolSize defaulted to %d, want >= 1", cfg.Timer.PoolSize)
	}
	if cfg.Socket.RetryMax != 3 {
		t.Errorf("Socket.RetryMax defaulted to %d, want 3", cfg.Socket.RetryMax)
	}
	if cfg.Resolve.AddrInfoMax < 1 {
		t.Errorf("Resolve.AddrInfoMax defaulted to %d, want >= 1", cfg.Resolve.AddrInfoMax)
	}
}

func TestLoadFromFileRejectsInvalidTickRate(t *testing.T) {
	content := `timer:
  task_freq_hz: 1000
  tick_rate_hz: 100
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer os.Remove(tmpfile.Name())
	if _, err := tmpfile.WriteString(content); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	tmpfile.Close()

	if _, err := LoadFromFile(tmpfile.Name()); err == nil {
		t.Fatalf("expected error when tick_rate_hz < task_freq_hz")
	}
}

func TestClampInt(t *testing.T) {
	tests := []struct {
		v, lo, hi, want int
	}{
		{5, 1, 10, 5},
		{0, 1, 10, 1},
		{15, 1, 10, 10},
	}
	for _, tt := range tests {
		if got := clampInt(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("clampInt(%d, %d, %d) = %d, want %d", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}
