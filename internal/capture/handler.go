package capture

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	ws "nhooyr.io/websocket"

	"gukbap/kiosk/internal/logging"
)

// Server accepts the capture service websocket and feeds its messages into
// the Channel.
type Server struct {
	Secret   string
	KioskID  string
	SkewSecs int
	Reg      *Registry
	Channel  *Channel
}

func NewServer(secret, kioskID string, skewSecs int, reg *Registry, ch *Channel) *Server {
	return &Server{Secret: secret, KioskID: kioskID, SkewSecs: skewSecs, Reg: reg, Channel: ch}
}

func (s *Server) HandleCaptureWS(w http.ResponseWriter, r *http.Request) {
	log := logging.For("capture")
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	if s.Secret == "" {
		http.Error(w, "capture auth not configured", http.StatusUnauthorized)
		return
	}
	token := strings.TrimPrefix(authz, "Bearer ")
	if _, err := ValidateToken(s.Secret, token, s.KioskID, time.Now(), s.SkewSecs); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	c, err := ws.Accept(w, r, nil)
	if err != nil {
		log.Warn("ws accept failed", "err", err)
		return
	}
	if s.Reg.Replace(c) {
		log.Info("capture service replaced")
	}
	gaugeConnected.Set(1)
	log.Info("capture service connected", "remote", r.RemoteAddr)
	s.Channel.Connected()

	ctx := r.Context()
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			break
		}
		if typ != ws.MessageText && typ != ws.MessageBinary {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn("invalid capture message", "err", err)
			continue
		}
		s.Channel.Dispatch(msg)
	}
	_ = c.Close(ws.StatusNormalClosure, "done")
	if s.Reg.Remove(c) {
		gaugeConnected.Set(0)
		s.Channel.Reset()
		log.Info("capture service disconnected")
	}
}
