package conversation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"gukbap/kiosk/internal/backend"
	"gukbap/kiosk/internal/kitchen"
	"gukbap/kiosk/internal/ledger"
	"gukbap/kiosk/internal/logging"
	"gukbap/kiosk/internal/menu"
	"gukbap/kiosk/internal/notify"
	"gukbap/kiosk/internal/store"
)

var (
	ErrEmptyOrder  = errors.New("order has no items")
	ErrUnknownItem = errors.New("unknown menu item")
	ErrVoiceBusy   = errors.New("voice ordering already in progress")
	ErrStopped     = errors.New("conversation loop stopped")
)

// VoiceChannel is the capture capability the machine arms and disarms.
type VoiceChannel interface {
	Listening() bool
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Timings are the auto-advance delays of the greeting, the order
// confirmation and the staff-call notice.
type Timings struct {
	Greeting  time.Duration
	FollowUp  time.Duration
	StaffCall time.Duration
}

// DefaultTimings are 1.5s greeting, 3s follow-up and 3s staff call.
func DefaultTimings() Timings {
	return Timings{Greeting: 1500 * time.Millisecond, FollowUp: 3 * time.Second, StaffCall: 3 * time.Second}
}

// Options wires a Machine. Voice and Interpreter are required; the rest
// fall back to a real clock, DefaultTimings, a Nop kitchen, a fresh journal
// and an empty catalog.
type Options struct {
	Catalog     *menu.Catalog
	Voice       VoiceChannel
	Interpreter backend.Interpreter
	Kitchen     kitchen.Publisher
	Journal     *store.Store
	Clock       clockwork.Clock
	Timings     Timings
	KioskID     string
}

// session is the explicit context of one kiosk screen. Only the loop
// goroutine reads or writes it.
type session struct {
	id         string
	state      State
	ledger     *ledger.Ledger
	modal      *notify.Modal
	processing bool
}

type eventKind int

const (
	evToggleVoice eventKind = iota
	evAddItem
	evCompleteOrder
	evCloseModal
	evUtterance
	evResult
	evTimer
	evListening
	evSnapshot
)

type event struct {
	kind   eventKind
	text   string
	itemID int
	result backend.Result
	err    error
	gen    uint64
	reply  chan reply
}

type reply struct {
	snap    Snapshot
	receipt Receipt
	err     error
}

// Snapshot is a copy of the session for the presentation layer.
type Snapshot struct {
	SessionID    string        `json:"session_id,omitempty"`
	State        State         `json:"state"`
	Lines        []ledger.Line `json:"lines"`
	Total        int           `json:"total"`
	Modal        notify.View   `json:"modal"`
	Processing   bool          `json:"processing"`
	Listening    bool          `json:"listening"`
	VoiceEnabled bool          `json:"voice_enabled"`
	Indicator    string        `json:"indicator,omitempty"`
}

// Receipt is what the customer confirmed on manual completion.
type Receipt struct {
	Summary string        `json:"summary"`
	Total   int           `json:"total"`
	Lines   []ledger.Line `json:"lines"`
}

// Machine is the single authority over conversation state. Every input
// (taps, utterances, interpreter replies, timer fires, capture status) is an
// event drained by Run on one goroutine, so handlers never interleave.
type Machine struct {
	catalog *menu.Catalog
	voice   VoiceChannel
	interp  backend.Interpreter
	kitchen kitchen.Publisher
	journal *store.Store
	clock   clockwork.Clock
	timings Timings
	kioskID string
	log     *slog.Logger

	events chan event
	done   chan struct{}
	ctx    context.Context

	sess *session

	// pending auto-advance timer; gen invalidates fires that raced a cancel
	timer    clockwork.Timer
	timerFn  func()
	timerGen uint64

	finalizeSource string

	subMu sync.Mutex
	subs  map[chan Snapshot]struct{}
}

// New builds an idle machine. Nothing happens until Run is called.
func New(opts Options) *Machine {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Timings == (Timings{}) {
		opts.Timings = DefaultTimings()
	}
	if opts.Kitchen == nil {
		opts.Kitchen = kitchen.Nop{}
	}
	if opts.Journal == nil {
		opts.Journal = store.New()
	}
	if opts.Catalog == nil {
		opts.Catalog = menu.NewCatalog(nil)
	}
	return &Machine{
		catalog: opts.Catalog,
		voice:   opts.Voice,
		interp:  opts.Interpreter,
		kitchen: opts.Kitchen,
		journal: opts.Journal,
		clock:   opts.Clock,
		timings: opts.Timings,
		kioskID: opts.KioskID,
		log:     logging.For("conversation"),
		events:  make(chan event, 64),
		done:    make(chan struct{}),
		ctx:     context.Background(),
		sess: &session{
			state:  StateIdle,
			ledger: ledger.New(),
			modal:  notify.New(),
		},
		subs: make(map[chan Snapshot]struct{}),
	}
}

// Run drains events until ctx is cancelled. It must be called exactly once.
func (m *Machine) Run(ctx context.Context) error {
	m.ctx = ctx
	defer close(m.done)
	defer m.cancelTimer()
	m.log.Info("conversation loop started", "state", m.sess.state)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

// post enqueues ev and waits for the loop to finish handling it.
func (m *Machine) post(ev event) reply {
	ev.reply = make(chan reply, 1)
	select {
	case m.events <- ev:
	case <-m.done:
		return reply{err: ErrStopped}
	}
	select {
	case r := <-ev.reply:
		return r
	case <-m.done:
		return reply{err: ErrStopped}
	}
}

// postAsync enqueues without waiting; used by timers and interpreter calls.
func (m *Machine) postAsync(ev event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// ToggleVoice starts voice ordering. Only allowed from IDLE with the
// microphone idle and nothing in flight.
func (m *Machine) ToggleVoice() (Snapshot, error) {
	r := m.post(event{kind: evToggleVoice})
	return r.snap, r.err
}

// AddItem adds one unit of a tapped menu tile.
func (m *Machine) AddItem(itemID int) (Snapshot, error) {
	r := m.post(event{kind: evAddItem, itemID: itemID})
	return r.snap, r.err
}

// CompleteOrder is the manual completion action.
func (m *Machine) CompleteOrder() (Receipt, Snapshot, error) {
	r := m.post(event{kind: evCompleteOrder})
	return r.receipt, r.snap, r.err
}

// CloseModal dismisses the notification, running the close cascade.
func (m *Machine) CloseModal() Snapshot {
	return m.post(event{kind: evCloseModal}).snap
}

// HandleVoiceResult is the capture channel's utterance handler.
func (m *Machine) HandleVoiceResult(text string) {
	m.post(event{kind: evUtterance, text: text})
}

// ListeningChanged nudges the loop to re-evaluate arming.
func (m *Machine) ListeningChanged(bool) {
	m.postAsync(event{kind: evListening})
}

// Snapshot returns the current session as seen after the last handled event.
func (m *Machine) Snapshot() Snapshot {
	return m.post(event{kind: evSnapshot}).snap
}

// Subscribe streams a snapshot after every handled event. Slow subscribers
// miss intermediate snapshots rather than stalling the loop.
func (m *Machine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)
	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()
	return ch, func() {
		m.subMu.Lock()
		delete(m.subs, ch)
		m.subMu.Unlock()
	}
}

func (m *Machine) handle(ev event) {
	var r reply
	switch ev.kind {
	case evToggleVoice:
		r.err = m.toggleVoice()
	case evAddItem:
		r.err = m.addItem(ev.itemID)
	case evCompleteOrder:
		r.receipt, r.err = m.completeOrder()
	case evCloseModal:
		m.closeModal()
	case evUtterance:
		m.handleVoiceResult(ev.text)
	case evResult:
		m.applyResult(ev.result, ev.err)
	case evTimer:
		m.fireTimer(ev.gen)
	case evListening, evSnapshot:
	}
	m.reconcile()
	r.snap = m.snapshot()
	m.broadcast(r.snap)
	if ev.reply != nil {
		ev.reply <- r
	}
}

func (m *Machine) toggleVoice() error {
	if m.sess.state != StateIdle || m.sess.processing || m.voice.Listening() {
		return ErrVoiceBusy
	}
	m.ensureSession()
	m.transition(StateGreeting)
	return nil
}

func (m *Machine) addItem(itemID int) error {
	item, ok := m.catalog.ByID(itemID)
	if !ok {
		return ErrUnknownItem
	}
	if err := m.sess.ledger.Add(item, 1); err != nil {
		return err
	}
	m.ensureSession()
	m.record("item_added", map[string]any{"item": item.Name, "qty": 1, "source": "touch"})
	return nil
}

func (m *Machine) completeOrder() (Receipt, error) {
	if m.sess.ledger.Len() == 0 {
		m.openModal(titleOrderError, msgEmptyOrder)
		return Receipt{}, ErrEmptyOrder
	}
	rc := Receipt{Summary: m.sess.ledger.Summary(), Total: m.sess.ledger.Total(), Lines: m.sess.ledger.Lines()}
	m.finalizeSource = "touch"
	m.openModal(titleCompleted, msgTouchCompleted)
	m.transition(StateFinalizing)
	return rc, nil
}

// closeModal runs the cascade only if something was showing.
func (m *Machine) closeModal() {
	if !m.sess.modal.Close() {
		return
	}
	m.runCascade()
}

// forceClose closes and cascades regardless of whether the modal was open.
func (m *Machine) forceClose() {
	m.sess.modal.Close()
	m.runCascade()
}

func (m *Machine) runCascade() {
	m.record("modal_closed", map[string]any{"state": string(m.sess.state)})
	c, ok := closeCascade[m.sess.state]
	if !ok {
		return
	}
	m.transition(c.next)
	if c.clearLedger {
		m.sess.ledger.Clear()
		m.endSession("order_completed")
	}
}

func (m *Machine) openModal(title, message string) uint64 {
	m.record("modal_opened", map[string]any{"title": title})
	return m.sess.modal.Open(title, message)
}

// transition is the only writer of the conversation state.
func (m *Machine) transition(to State) {
	from := m.sess.state
	if from == to {
		return
	}
	m.cancelTimer()
	m.sess.state = to
	metricStateTransitions.WithLabelValues(string(from), string(to)).Inc()
	m.record("transition", map[string]any{"from": string(from), "to": string(to)})
	m.log.Debug("state transition", "from", from, "to", to)
	m.enter(to)
}

// enter runs one-shot entry actions.
func (m *Machine) enter(s State) {
	switch s {
	case StateGreeting:
		gen := m.openModal(titleVoiceOrder, msgGreeting)
		m.armTimer(m.timings.Greeting, func() {
			if m.sess.modal.Generation() == gen {
				m.closeModal()
			}
			m.transition(StateListening)
		})
	case StateCallingStaff:
		m.armTimer(m.timings.StaffCall, m.forceClose)
	case StateFinalizing:
		m.handOff()
	}
}

// reconcile keeps the microphone in line with the state and flags. It runs
// after every event, so listening/processing changes re-arm the channel.
func (m *Machine) reconcile() {
	switch {
	case m.sess.state.capturing():
		if !m.voice.Listening() && !m.sess.processing {
			if err := m.voice.Start(m.ctx); err != nil {
				m.log.Debug("arm voice channel", "err", err)
			}
		}
	case m.sess.state == StateGreeting || m.sess.state == StateCallingStaff:
		// left alone until their timers move on
	default:
		if m.voice.Listening() {
			if err := m.voice.Stop(m.ctx); err != nil {
				m.log.Debug("disarm voice channel", "err", err)
			}
		}
	}
}

func (m *Machine) armTimer(d time.Duration, fn func()) {
	m.cancelTimer()
	m.timerGen++
	gen := m.timerGen
	m.timerFn = fn
	m.timer = m.clock.AfterFunc(d, func() {
		go m.postAsync(event{kind: evTimer, gen: gen})
	})
}

func (m *Machine) cancelTimer() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = nil
	m.timerFn = nil
}

func (m *Machine) fireTimer(gen uint64) {
	if m.timerFn == nil || gen != m.timerGen {
		return
	}
	fn := m.timerFn
	m.timer = nil
	m.timerFn = nil
	metricTimersFired.WithLabelValues(string(m.sess.state)).Inc()
	m.record("timer_fired", map[string]any{"state": string(m.sess.state)})
	fn()
}

// handOff publishes the finalized ledger to the kitchen off-loop.
func (m *Machine) handOff() {
	source := m.finalizeSource
	if source == "" {
		source = "voice"
	}
	m.finalizeSource = ""
	if m.sess.ledger.Len() == 0 {
		return
	}
	metricOrdersCompleted.WithLabelValues(source).Inc()
	msg := kitchen.NewOrderMessage(m.kioskID, m.sess.id, source, m.sess.ledger.Lines())
	m.record("order_finalized", map[string]any{"order_number": msg.OrderNumber, "total": msg.TotalAmount, "source": source})
	pub, parent, log := m.kitchen, m.ctx, m.log
	go func() {
		ctx, cancel := context.WithTimeout(parent, 5*time.Second)
		defer cancel()
		if err := pub.Publish(ctx, msg); err != nil {
			log.Error("kitchen hand-off failed", "order_number", msg.OrderNumber, "err", err)
		}
	}()
}

// record journals against the open session; outside a session it is a no-op.
func (m *Machine) record(typ string, payload map[string]any) {
	if m.sess.id == "" {
		return
	}
	m.journal.AppendEvent(m.sess.id, typ, payload)
}

func (m *Machine) ensureSession() {
	if m.sess.id == "" {
		m.sess.id = m.journal.Begin().ID
	}
}

func (m *Machine) endSession(outcome string) {
	if m.sess.id == "" {
		return
	}
	m.journal.End(m.sess.id, outcome)
	m.sess.id = ""
}

func (m *Machine) snapshot() Snapshot {
	listening := m.voice.Listening()
	s := Snapshot{
		SessionID:    m.sess.id,
		State:        m.sess.state,
		Lines:        m.sess.ledger.Lines(),
		Total:        m.sess.ledger.Total(),
		Modal:        m.sess.modal.View(),
		Processing:   m.sess.processing,
		Listening:    listening,
		VoiceEnabled: m.sess.state == StateIdle && !listening && !m.sess.processing,
	}
	switch {
	case listening:
		s.Indicator = indicatorListening
	case m.sess.processing:
		s.Indicator = indicatorProcessing
	}
	return s
}

func (m *Machine) broadcast(s Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
