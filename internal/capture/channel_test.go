package capture

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ws "nhooyr.io/websocket"
)

type recorder struct {
	mu         sync.Mutex
	utterances []string
	listening  []bool
}

func (r *recorder) utterance(text string) {
	r.mu.Lock()
	r.utterances = append(r.utterances, text)
	r.mu.Unlock()
}

func (r *recorder) status(v bool) {
	r.mu.Lock()
	r.listening = append(r.listening, v)
	r.mu.Unlock()
}

func (r *recorder) got() ([]string, []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.utterances...), append([]bool(nil), r.listening...)
}

func boolp(v bool) *bool { return &v }

func TestDispatchDeliversEachUtteranceOnce(t *testing.T) {
	ch := NewChannel(NewRegistry())
	rec := &recorder{}
	ch.OnUtterance(rec.utterance)

	ch.Dispatch(Message{Type: "final", UtteranceID: "u1", Text: " 돼지국밥 하나 "})
	ch.Dispatch(Message{Type: "final", UtteranceID: "u1", Text: "돼지국밥 하나"})
	ch.Dispatch(Message{Type: "final", UtteranceID: "u2", Text: "   "})
	ch.Dispatch(Message{Type: "interim", UtteranceID: "u3", Text: "수육"})
	ch.Dispatch(Message{Type: "final", UtteranceID: "u3", Text: "수육 한접시"})

	utts, _ := rec.got()
	assert.Equal(t, []string{"돼지국밥 하나", "수육 한접시"}, utts)
}

func TestListeningStatusChanges(t *testing.T) {
	ch := NewChannel(NewRegistry())
	rec := &recorder{}
	ch.OnListening(rec.status)

	ch.Dispatch(Message{Type: "listening", Listening: boolp(true)})
	ch.Dispatch(Message{Type: "listening", Listening: boolp(true)})
	assert.True(t, ch.Listening())
	ch.Reset()
	assert.False(t, ch.Listening())

	_, st := rec.got()
	assert.Equal(t, []bool{true, false}, st)
}

func TestStartStopWithoutConnection(t *testing.T) {
	ch := NewChannel(NewRegistry())
	assert.ErrorIs(t, ch.Start(context.Background()), ErrNotConnected)
	// stopping while stopped never touches the wire
	assert.NoError(t, ch.Stop(context.Background()))
}

func TestCaptureSocketRoundTrip(t *testing.T) {
	reg := NewRegistry()
	ch := NewChannel(reg)
	rec := &recorder{}
	ch.OnUtterance(rec.utterance)
	srv := NewServer("s3cret", "kiosk-1", 60, reg, ch)

	hs := httptest.NewServer(http.HandlerFunc(srv.HandleCaptureWS))
	defer hs.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(hs.URL, "http")

	// unauthenticated dial is refused
	_, _, err := ws.Dial(ctx, url, nil)
	require.Error(t, err)

	tok := GenerateToken("s3cret", "kiosk-1", time.Now().Add(time.Minute).Unix())
	conn, _, err := ws.Dial(ctx, url, &ws.DialOptions{HTTPHeader: http.Header{"Authorization": {"Bearer " + tok}}})
	require.NoError(t, err)
	defer conn.Close(ws.StatusNormalClosure, "")

	require.Eventually(t, reg.Connected, time.Second, 10*time.Millisecond)

	require.NoError(t, ch.Start(ctx))
	require.NoError(t, ch.Start(ctx), "second start is a no-op")
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var cmd Message
	require.NoError(t, json.Unmarshal(data, &cmd))
	assert.Equal(t, "start_listening", cmd.Type)
	assert.NotEmpty(t, cmd.CommandID)

	send := func(m Message) {
		b, _ := json.Marshal(m)
		require.NoError(t, conn.Write(ctx, ws.MessageText, b))
	}
	send(Message{Type: "listening", Listening: boolp(true)})
	send(Message{Type: "final", UtteranceID: "a", Text: "직원 불러주세요"})

	require.Eventually(t, func() bool {
		utts, _ := rec.got()
		return len(utts) == 1 && ch.Listening()
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, ch.Stop(ctx))
	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &cmd))
	assert.Equal(t, "stop_listening", cmd.Type)
}

func TestConnectedAlwaysNotifies(t *testing.T) {
	ch := NewChannel(NewRegistry())
	rec := &recorder{}
	ch.OnListening(rec.status)

	ch.Connected()
	ch.Dispatch(Message{Type: "listening", Listening: boolp(false)})
	ch.Connected()

	_, st := rec.got()
	assert.Equal(t, []bool{false, false}, st, "unchanged status reports stay quiet, connects do not")
	assert.False(t, ch.Listening())
}

func dialCapture(t *testing.T, ctx context.Context, ch *Channel, reg *Registry) *ws.Conn {
	t.Helper()
	srv := NewServer("s3cret", "kiosk-1", 60, reg, ch)
	hs := httptest.NewServer(http.HandlerFunc(srv.HandleCaptureWS))
	t.Cleanup(hs.Close)
	tok := GenerateToken("s3cret", "kiosk-1", time.Now().Add(time.Minute).Unix())
	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(hs.URL, "http"), &ws.DialOptions{HTTPHeader: http.Header{"Authorization": {"Bearer " + tok}}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(ws.StatusNormalClosure, "") })
	require.Eventually(t, reg.Connected, time.Second, 10*time.Millisecond)
	return conn
}

func readCommand(t *testing.T, ctx context.Context, conn *ws.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var cmd Message
	require.NoError(t, json.Unmarshal(data, &cmd))
	return cmd
}

func TestUnansweredStartIsRetried(t *testing.T) {
	reg := NewRegistry()
	ch := NewChannel(reg)
	ch.pendingFor = 50 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialCapture(t, ctx, ch, reg)

	require.NoError(t, ch.Start(ctx))
	assert.Equal(t, "start_listening", readCommand(t, ctx, conn).Type)

	// still pending: no second command
	require.NoError(t, ch.Start(ctx))
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, ch.Start(ctx))
	cmd := readCommand(t, ctx, conn)
	assert.Equal(t, "start_listening", cmd.Type)

	// exactly one retry went out
	rctx, rcancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer rcancel()
	_, _, err := conn.Read(rctx)
	assert.Error(t, err)
}

func TestListeningReportClearsPendingStart(t *testing.T) {
	reg := NewRegistry()
	ch := NewChannel(reg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dialCapture(t, ctx, ch, reg)

	require.NoError(t, ch.Start(ctx))
	assert.Equal(t, "start_listening", readCommand(t, ctx, conn).Type)

	ch.Dispatch(Message{Type: "listening", Listening: boolp(false)})
	require.NoError(t, ch.Start(ctx))
	assert.Equal(t, "start_listening", readCommand(t, ctx, conn).Type)
}
