package timeouts

import (
	"testing"
	"time"
)

func TestConfigure_IgnoresZeroValues(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Commit: 45 * time.Second})

	got := Current()
	if got.Commit != 45*time.Second {
		t.Errorf("Commit = %v, want 45s", got.Commit)
	}
	if got.Read != DefaultRead {
		t.Errorf("Read = %v, want default %v", got.Read, DefaultRead)
	}
	if got.Ping != DefaultPing || got.Release != DefaultRelease {
		t.Errorf("unexpected change: %+v", got)
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Ping: time.Second, Read: time.Second, Commit: time.Second, Release: time.Second})
	Reset()

	want := Config{Ping: DefaultPing, Read: DefaultRead, Commit: DefaultCommit, Release: DefaultRelease}
	if got := Current(); got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
}
