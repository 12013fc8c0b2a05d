package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gukbap/kiosk/internal/menu"
)

// Interpreter outcome discriminators.
const (
	StatusOrderProcessed = "order_processed"
	StatusAnswered       = "answered"
	StatusStaffCalled    = "staff_called"
	StatusOrderCompleted = "order_completed"
	StatusOrderCancelled = "order_cancelled"
)

// TransportError covers both a failed round trip and a non-2xx reply.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err came from the wire rather than the payload.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Quantity is one (item name, qty) pair in the order the interpreter listed it.
type Quantity struct {
	Name string
	Qty  int
}

type Result struct {
	Status  string
	Order   []Quantity
	Message string
}

// Interpreter is what the conversation resolver needs from the backend.
type Interpreter interface {
	ProcessVoiceCommand(ctx context.Context, text string) (Result, error)
}

type HTTPClient struct {
	http *http.Client
	base string
}

func NewClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		http: &http.Client{Timeout: timeout},
		base: strings.TrimRight(baseURL, "/"),
	}
}

func (c *HTTPClient) BaseURL() string { return c.base }

// Menu implements menu.Source against GET /menu.
func (c *HTTPClient) Menu(ctx context.Context) ([]menu.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/menu", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "backend Menu", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &TransportError{Op: "backend Menu", StatusCode: resp.StatusCode}
	}
	var parsed struct {
		MenuItems orderedInts `json:"menu_items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("backend Menu: decode: %w", err)
	}
	out := make([]menu.Entry, 0, len(parsed.MenuItems))
	for _, kv := range parsed.MenuItems {
		out = append(out, menu.Entry{Name: kv.key, Price: kv.val})
	}
	return out, nil
}

// ProcessVoiceCommand posts recognized text. A body that cannot be decoded
// is treated like a transport failure.
func (c *HTTPClient) ProcessVoiceCommand(ctx context.Context, text string) (Result, error) {
	start := time.Now()
	res, err := c.processVoiceCommand(ctx, text)
	outcome := res.Status
	switch {
	case err != nil:
		outcome = "transport_error"
	case outcome == "":
		outcome = "empty"
	}
	metricInterpreterRequests.WithLabelValues(outcome).Inc()
	metricInterpreterLatency.Observe(float64(time.Since(start).Milliseconds()))
	return res, err
}

func (c *HTTPClient) processVoiceCommand(ctx context.Context, text string) (Result, error) {
	const op = "backend ProcessVoiceCommand"
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(map[string]string{"text": text}); err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/process-voice-command", &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Result{}, &TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	var parsed struct {
		Status  string      `json:"status"`
		Order   orderedInts `json:"order"`
		Message string      `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, &TransportError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	res := Result{Status: parsed.Status, Message: parsed.Message}
	for _, kv := range parsed.Order {
		res.Order = append(res.Order, Quantity{Name: kv.key, Qty: kv.val})
	}
	return res, nil
}
