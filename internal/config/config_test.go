package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Blank the envs that could leak in from the host
	for _, k := range []string{"PORT", "LOG_LEVEL", "BACKEND_URL", "GREETING_DELAY", "FOLLOW_UP_DELAY", "STAFF_CALL_DELAY", "KITCHEN_EXCHANGE"} {
		t.Setenv(k, "")
	}

	c := Load()

	if c.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", c.Server.Port)
	}
	if c.Server.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", c.Server.LogLevel)
	}
	if c.Backend.BaseURL != "http://localhost:8000" {
		t.Fatalf("expected default backend url, got %q", c.Backend.BaseURL)
	}
	if c.Conversation.GreetingDelay != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s greeting delay, got %v", c.Conversation.GreetingDelay)
	}
	if c.Conversation.FollowUpDelay != 3*time.Second || c.Conversation.StaffDelay != 3*time.Second {
		t.Fatalf("expected 3s follow-up and staff delays, got %v / %v", c.Conversation.FollowUpDelay, c.Conversation.StaffDelay)
	}
	if c.Kitchen.Exchange != "orders_topic" {
		t.Fatalf("expected default exchange orders_topic, got %q", c.Kitchen.Exchange)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://interp:9000/")
	t.Setenv("STAFF_CALL_DELAY", "5s")

	c := Load()

	if c.Backend.BaseURL != "http://interp:9000" {
		t.Fatalf("expected trailing slash trimmed, got %q", c.Backend.BaseURL)
	}
	if c.Conversation.StaffDelay != 5*time.Second {
		t.Fatalf("expected 5s staff delay, got %v", c.Conversation.StaffDelay)
	}
}
