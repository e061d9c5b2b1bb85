package instance

import (
	"strings"
	"testing"
)

func TestIDPrefersExplicitValue(t *testing.T) {
	t.Setenv("COMMISSION_INSTANCE_ID", "worker-7")
	t.Setenv("DYNO", "web.1")
	if got := ID("worker"); got != "worker-7" {
		t.Fatalf("expected explicit id, got %q", got)
	}
}

func TestIDFallsBackToDyno(t *testing.T) {
	t.Setenv("COMMISSION_INSTANCE_ID", "")
	t.Setenv("DYNO", "worker.2")
	if got := ID("worker"); got != "worker.2" {
		t.Fatalf("expected dyno id, got %q", got)
	}
}

func TestIDUsesServiceName(t *testing.T) {
	t.Setenv("COMMISSION_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	if got := ID("cron-worker"); !strings.HasPrefix(got, "cron-worker") {
		t.Fatalf("expected service prefix, got %q", got)
	}
}
