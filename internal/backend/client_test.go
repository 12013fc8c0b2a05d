package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuKeepsBackendOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/menu", r.URL.Path)
		w.Write([]byte(`{"menu_items":{"순대국밥":9500,"돼지국밥":9000,"수육 한접시":25000}}`))
	}))
	defer srv.Close()

	entries, err := NewClient(srv.URL+"/", time.Second).Menu(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "순대국밥", entries[0].Name)
	assert.Equal(t, "돼지국밥", entries[1].Name)
	assert.Equal(t, 25000, entries[2].Price)
}

func TestProcessVoiceCommandDecodesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/process-voice-command", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "돼지국밥 두 개랑 수육 한접시", body["text"])
		w.Write([]byte(`{"status":"order_processed","order":{"돼지국밥":2,"수육 한접시":1.0}}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, time.Second).ProcessVoiceCommand(context.Background(), "돼지국밥 두 개랑 수육 한접시")
	require.NoError(t, err)
	assert.Equal(t, StatusOrderProcessed, res.Status)
	assert.Equal(t, []Quantity{{Name: "돼지국밥", Qty: 2}, {Name: "수육 한접시", Qty: 1}}, res.Order)
}

func TestProcessVoiceCommandNullOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"answered","order":null,"message":"영업시간은 24시간입니다."}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, time.Second).ProcessVoiceCommand(context.Background(), "몇 시까지 해요?")
	require.NoError(t, err)
	assert.Empty(t, res.Order)
	assert.Equal(t, "영업시간은 24시간입니다.", res.Message)
}

func TestProcessVoiceCommandNon2xxIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).ProcessVoiceCommand(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
}

func TestProcessVoiceCommandConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).ProcessVoiceCommand(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestProcessVoiceCommandBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"order_processed","order":["돼지국밥"]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).ProcessVoiceCommand(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}
