package ledger

import (
	"errors"
	"fmt"
	"strings"

	"gukbap/kiosk/internal/logging"
	"gukbap/kiosk/internal/menu"
)

var (
	ErrInvalidItem     = errors.New("menu item has no id")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

type Line struct {
	Item     menu.MenuItem `json:"item"`
	Quantity int           `json:"quantity"`
}

func (l Line) Subtotal() int { return l.Item.Price * l.Quantity }

// Ledger is the in-progress order. Not safe for concurrent use; the
// conversation loop is its only writer.
type Ledger struct {
	lines []Line
}

func New() *Ledger { return &Ledger{} }

// Add merges qty into the line for item.ID, appending a new line on first add.
func (l *Ledger) Add(item menu.MenuItem, qty int) error {
	if item.ID == 0 {
		logging.For("ledger").Error("attempted to add invalid menu item", "item", item.Name)
		return ErrInvalidItem
	}
	if qty <= 0 {
		logging.For("ledger").Warn("ignoring non-positive quantity", "item", item.Name, "qty", qty)
		return ErrInvalidQuantity
	}
	for i := range l.lines {
		if l.lines[i].Item.ID == item.ID {
			l.lines[i].Quantity += qty
			return nil
		}
	}
	l.lines = append(l.lines, Line{Item: item, Quantity: qty})
	return nil
}

func (l *Ledger) Clear() { l.lines = nil }

func (l *Ledger) Len() int { return len(l.lines) }

func (l *Ledger) Lines() []Line {
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *Ledger) Total() int {
	sum := 0
	for _, ln := range l.lines {
		sum += ln.Subtotal()
	}
	return sum
}

// Summary renders one "<name> <qty>개" row per line.
func (l *Ledger) Summary() string {
	rows := make([]string, 0, len(l.lines))
	for _, ln := range l.lines {
		rows = append(rows, fmt.Sprintf("%s %d개", ln.Item.Name, ln.Quantity))
	}
	return strings.Join(rows, "\n")
}
