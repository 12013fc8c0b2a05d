package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gukbap/kiosk/internal/config"
	"gukbap/kiosk/internal/kitchen"
)

type CheckResult struct {
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ms"`
	Error   string        `json:"error,omitempty"`
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (h HealthStatus) String() string {
	status := "OK"
	if !h.OK {
		status = "FAIL"
	}
	s := fmt.Sprintf("Health: %s\n", status)
	for _, c := range h.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		s += fmt.Sprintf("  %s %s (%dms)", mark, c.Name, c.Latency.Milliseconds())
		if c.Error != "" {
			s += fmt.Sprintf(" - %s", c.Error)
		}
		s += "\n"
	}
	return s
}

// CheckAll probes the interpreter backend, the kitchen broker and the local
// kiosk's readiness endpoint.
func CheckAll(ctx context.Context, cfg config.Config) HealthStatus {
	checks := []CheckResult{
		checkHTTP(ctx, "interpreter", cfg.Backend.BaseURL+"/menu"),
		checkKitchen(cfg),
		checkHTTP(ctx, "kiosk", "http://localhost:"+cfg.Server.Port+"/readyz"),
	}

	allOK := true
	for _, c := range checks {
		if !c.OK {
			allOK = false
		}
	}

	return HealthStatus{
		OK:        allOK,
		Checks:    checks,
		CheckedAt: time.Now().UTC(),
	}
}

func checkHTTP(ctx context.Context, name, url string) CheckResult {
	start := time.Now()
	result := CheckResult{Name: name}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = fmt.Sprintf("request build failed: %v", err)
		result.Latency = time.Since(start)
		return result
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.Latency = time.Since(start)
		return result
	}
	defer resp.Body.Close()

	result.Latency = time.Since(start)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		result.Error = fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body))
		return result
	}
	io.Copy(io.Discard, resp.Body)

	result.OK = true
	return result
}

// checkKitchen dials the broker when one is configured. Without one, orders
// go to the no-op publisher and the check passes.
func checkKitchen(cfg config.Config) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "kitchen"}

	if cfg.Kitchen.AMQPURL == "" {
		result.OK = true
		result.Error = "KITCHEN_AMQP_URL not set, hand-off disabled"
		return result
	}

	pub, err := kitchen.Dial(cfg.Kitchen.AMQPURL, cfg.Kitchen.Exchange)
	if err != nil {
		result.Error = err.Error()
		result.Latency = time.Since(start)
		return result
	}
	defer pub.Close()

	if err := pub.Ping(); err != nil {
		result.Error = err.Error()
		result.Latency = time.Since(start)
		return result
	}
	result.Latency = time.Since(start)
	result.OK = true
	return result
}
