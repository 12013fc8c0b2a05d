package notify

import "strings"

// Modal holds the single on-screen notification. Opening replaces whatever
// is showing; there is no queue.
type Modal struct {
	open    bool
	title   string
	message string
	gen     uint64
}

func New() *Modal { return &Modal{} }

// Open overwrites the current content and returns the new generation.
func (m *Modal) Open(title, message string) uint64 {
	m.title = title
	m.message = message
	m.open = true
	m.gen++
	return m.gen
}

// Close reports whether a notification was showing.
func (m *Modal) Close() bool {
	was := m.open
	m.open = false
	return was
}

func (m *Modal) IsOpen() bool       { return m.open }
func (m *Modal) Title() string      { return m.title }
func (m *Modal) Message() string    { return m.message }
func (m *Modal) Generation() uint64 { return m.gen }

// Paragraphs splits the message on line breaks; each line renders separately.
func (m *Modal) Paragraphs() []string {
	if m.message == "" {
		return nil
	}
	return strings.Split(m.message, "\n")
}

// View is a copy of the modal for rendering.
type View struct {
	Open       bool     `json:"open"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	Paragraphs []string `json:"paragraphs,omitempty"`
}

func (m *Modal) View() View {
	return View{Open: m.open, Title: m.title, Message: m.message, Paragraphs: m.Paragraphs()}
}
