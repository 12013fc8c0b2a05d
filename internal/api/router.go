package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extras are the routes owned outside this package.
type Extras struct {
	Capture http.HandlerFunc
	Ready   func() bool
}

func method(m string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	}
}

func NewRouter(h *Handlers, x Extras) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if x.Ready != nil && !x.Ready() {
			http.Error(w, "menu not loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/menu", method(http.MethodGet, h.HandleMenu))
	mux.HandleFunc("/state", method(http.MethodGet, h.HandleState))
	mux.HandleFunc("/ws/state", h.HandleStateWS)

	mux.HandleFunc("/order/items", method(http.MethodPost, h.HandleAddItem))
	mux.HandleFunc("/order/complete", method(http.MethodPost, h.HandleCompleteOrder))
	mux.HandleFunc("/voice/toggle", method(http.MethodPost, h.HandleToggleVoice))
	mux.HandleFunc("/modal/close", method(http.MethodPost, h.HandleCloseModal))

	mux.HandleFunc("/session/events", method(http.MethodGet, h.HandleSessionEvents))
	mux.HandleFunc("/capture/token", method(http.MethodPost, h.HandleMintCaptureToken))
	if x.Capture != nil {
		mux.HandleFunc("/ws/capture", x.Capture)
	}

	return mux
}
