package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"gukbap/kiosk/internal/capture"
	"gukbap/kiosk/internal/config"
	"gukbap/kiosk/internal/conversation"
	"gukbap/kiosk/internal/logging"
	"gukbap/kiosk/internal/menu"
	"gukbap/kiosk/internal/store"
)

// Kiosk is the conversation surface the HTTP layer drives.
type Kiosk interface {
	Snapshot() conversation.Snapshot
	ToggleVoice() (conversation.Snapshot, error)
	AddItem(itemID int) (conversation.Snapshot, error)
	CompleteOrder() (conversation.Receipt, conversation.Snapshot, error)
	CloseModal() conversation.Snapshot
	Subscribe() (<-chan conversation.Snapshot, func())
}

type Handlers struct {
	cfg     config.Config
	kiosk   Kiosk
	catalog *menu.Catalog
	journal *store.Store
	log     *slog.Logger
}

func NewHandlers(cfg config.Config, k Kiosk, cat *menu.Catalog, journal *store.Store) *Handlers {
	return &Handlers{cfg: cfg, kiosk: k, catalog: cat, journal: journal, log: logging.For("api")}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error, snap *conversation.Snapshot) {
	body := map[string]any{"error": err.Error()}
	if snap != nil {
		body["state"] = snap
	}
	writeJSON(w, status, body)
}

func (h *Handlers) HandleMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": h.catalog.Items()})
}

func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.kiosk.Snapshot())
}

// HandleStateWS pushes the current snapshot, then one per handled event,
// until the client goes away.
func (h *Handlers) HandleStateWS(w http.ResponseWriter, r *http.Request) {
	c, err := ws.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("state ws accept failed", "err", err)
		return
	}
	defer c.Close(ws.StatusNormalClosure, "")

	snaps, unsubscribe := h.kiosk.Subscribe()
	defer unsubscribe()

	ctx := c.CloseRead(r.Context())
	if err := writeSnapshot(ctx, c, h.kiosk.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-snaps:
			if err := writeSnapshot(ctx, c, s); err != nil {
				h.log.Debug("state ws write", "err", err)
				return
			}
		}
	}
}

func writeSnapshot(ctx context.Context, c *ws.Conn, s conversation.Snapshot) error {
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(wctx, c, s)
}

func (h *Handlers) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ItemID int `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	snap, err := h.kiosk.AddItem(body.ItemID)
	switch {
	case errors.Is(err, conversation.ErrUnknownItem):
		writeError(w, http.StatusNotFound, err, nil)
	case errors.Is(err, conversation.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err, nil)
	case err != nil:
		writeError(w, http.StatusBadRequest, err, &snap)
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func (h *Handlers) HandleCompleteOrder(w http.ResponseWriter, r *http.Request) {
	rc, snap, err := h.kiosk.CompleteOrder()
	switch {
	case errors.Is(err, conversation.ErrEmptyOrder):
		writeError(w, http.StatusBadRequest, err, &snap)
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err, nil)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"summary": rc.Summary,
			"total":   rc.Total,
			"lines":   rc.Lines,
			"state":   snap,
		})
	}
}

func (h *Handlers) HandleToggleVoice(w http.ResponseWriter, r *http.Request) {
	snap, err := h.kiosk.ToggleVoice()
	switch {
	case errors.Is(err, conversation.ErrVoiceBusy):
		writeError(w, http.StatusConflict, err, &snap)
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err, nil)
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func (h *Handlers) HandleCloseModal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.kiosk.CloseModal())
}

// HandleSessionEvents returns the journal of ?session_id= or, without one,
// of the session currently open.
func (h *Handlers) HandleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		id = h.journal.Current()
	}
	sess := h.journal.GetSession(id)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": sess,
		"events":  h.journal.ListEvents(id),
	})
}

// HandleMintCaptureToken issues a bearer token for the capture service.
func (h *Handlers) HandleMintCaptureToken(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Capture.TokenSecret == "" {
		http.Error(w, "missing CAPTURE_TOKEN_SECRET", http.StatusBadRequest)
		return
	}
	exp := time.Now().Add(h.cfg.Capture.TokenTTL).Unix()
	token := capture.GenerateToken(h.cfg.Capture.TokenSecret, h.cfg.Kitchen.KioskID, exp)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"kiosk_id":   h.cfg.Kitchen.KioskID,
		"expires_at": exp,
	})
}
