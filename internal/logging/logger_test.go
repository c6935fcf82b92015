package logging

import "testing"

func TestIsDebug(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"debug", true},
		{"info", false},
		{"warn", false},
		{"", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			t.Setenv("FRAMESCOPE_LOG_LEVEL", tt.level)
			if got := IsDebug(); got != tt.want {
				t.Errorf("IsDebug() with level %q = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestNewPrefix(t *testing.T) {
	t.Setenv("FRAMESCOPE_LOG_PREFIX", "")
	lg := New("watch")
	defer lg.Close()
	if got := lg.GetPrefix(); got != "framescope watch" {
		t.Errorf("prefix = %q, want %q", got, "framescope watch")
	}

	t.Setenv("FRAMESCOPE_LOG_PREFIX", "custom")
	lg2 := New("watch")
	defer lg2.Close()
	if got := lg2.GetPrefix(); got != "custom" {
		t.Errorf("prefix = %q, want %q", got, "custom")
	}
}
