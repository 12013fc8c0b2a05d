package conversation

// State is the single value governing what the voice pipeline is doing.
type State string

const (
	StateIdle             State = "IDLE"
	StateGreeting         State = "GREETING"
	StateListening        State = "LISTENING"
	StateAwaitingFollowUp State = "AWAITING_FOLLOW_UP"
	StateShowingAnswer    State = "SHOWING_ANSWER"
	StateCallingStaff     State = "CALLING_STAFF"
	StateFinalizing       State = "FINALIZING"
)

// cascade is what dismissing the notification does in a given state.
type cascade struct {
	next        State
	clearLedger bool
}

// closeCascade is keyed by the state active at close time. States missing
// from the table do not transition on close.
var closeCascade = map[State]cascade{
	StateShowingAnswer: {next: StateListening},
	StateFinalizing:    {next: StateIdle, clearLedger: true},
	StateCallingStaff:  {next: StateIdle},
}

// capturing states want the microphone armed.
func (s State) capturing() bool {
	return s == StateListening || s == StateAwaitingFollowUp
}
