package conversation

import (
	"fmt"
	"strings"

	"gukbap/kiosk/internal/backend"
)

// handleVoiceResult starts one interpreter round trip. Blank text and text
// arriving while a request is pending are dropped; the call itself runs
// off-loop and comes back as an evResult.
func (m *Machine) handleVoiceResult(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		metricVoiceIgnored.WithLabelValues("blank").Inc()
		return
	}
	if m.sess.processing {
		metricVoiceIgnored.WithLabelValues("in_flight").Inc()
		m.log.Info("utterance dropped, request in flight", "state", m.sess.state, "text", text)
		return
	}
	m.sess.processing = true
	metricVoiceInFlight.Set(1)
	m.ensureSession()
	m.record("utterance", map[string]any{"text": text, "state": string(m.sess.state)})
	m.log.Info("recognized", "state", m.sess.state, "text", text)

	interp, ctx := m.interp, m.ctx
	go func() {
		res, err := interp.ProcessVoiceCommand(ctx, text)
		m.postAsync(event{kind: evResult, result: res, err: err})
	}()
}

// applyResult maps the interpreter outcome onto ledger, notification and
// next state. processing is released on every path.
func (m *Machine) applyResult(res backend.Result, err error) {
	defer func() {
		m.sess.processing = false
		metricVoiceInFlight.Set(0)
	}()

	if err != nil {
		m.log.Error("voice processing error", "err", err)
		m.record("interpreter_error", map[string]any{"error": err.Error()})
		m.openModal(titleError, msgProcessingErr)
		m.transition(StateIdle)
		return
	}
	m.record("interpreter", map[string]any{"status": res.Status})

	switch res.Status {
	case backend.StatusOrderProcessed:
		added := m.applyOrder(res.Order)
		gen := m.openModal(titleOrderAdded, fmt.Sprintf(fmtOrderAdded, strings.Join(added, ", ")))
		m.transition(StateAwaitingFollowUp)
		m.armTimer(m.timings.FollowUp, func() {
			if m.sess.modal.Generation() == gen {
				m.closeModal()
			}
		})
	case backend.StatusAnswered:
		m.openModal(titleAnswer, res.Message)
		m.transition(StateShowingAnswer)
	case backend.StatusStaffCalled:
		m.openModal(titleStaffCall, res.Message)
		m.transition(StateCallingStaff)
	case backend.StatusOrderCompleted:
		m.transition(StateFinalizing)
		m.openModal(titleCompleted, msgVoiceCompleted)
	case backend.StatusOrderCancelled:
		m.transition(StateIdle)
		m.sess.ledger.Clear()
		msg := res.Message
		if msg == "" {
			msg = msgCancelled
		}
		m.openModal(titleCancelled, msg)
		m.record("order_cancelled", nil)
		m.endSession("order_cancelled")
	default:
		m.log.Warn("unrecognized interpreter status", "status", res.Status)
		m.openModal(titleError, msgNotUnderstood)
		m.transition(StateListening)
	}
}

// applyOrder adds every catalog match with a positive quantity and returns
// the "<name> <qty>개" fragments for the confirmation. Unknown names are
// skipped without telling the customer.
func (m *Machine) applyOrder(order []backend.Quantity) []string {
	var added []string
	for _, q := range order {
		item, ok := m.catalog.Lookup(q.Name)
		if !ok || q.Qty <= 0 {
			m.log.Debug("order line skipped", "item", q.Name, "qty", q.Qty, "known", ok)
			continue
		}
		if err := m.sess.ledger.Add(item, q.Qty); err != nil {
			continue
		}
		m.record("item_added", map[string]any{"item": item.Name, "qty": q.Qty, "source": "voice"})
		added = append(added, fmt.Sprintf("%s %d개", item.Name, q.Qty))
	}
	return added
}
