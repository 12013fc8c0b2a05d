package menu

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gukbap/kiosk/internal/logging"
)

var ErrEmptyMenu = errors.New("menu has no items")

// MenuItem is one tappable tile. ID is 1-based and follows the order the
// backend listed the items in; zero means "no id".
type MenuItem struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Price    int    `json:"price"`
	ImageRef string `json:"image_ref,omitempty"`
}

// Entry is a raw name/price pair as listed by the backend.
type Entry struct {
	Name  string
	Price int
}

// Source supplies the raw menu. The interpreter backend client implements it.
type Source interface {
	Menu(ctx context.Context) ([]Entry, error)
}

var imageRefs = map[string]string{
	"돼지국밥":   "img/돼지국밥.png",
	"순대국밥":   "img/순대국밥.png",
	"내장국밥":   "img/섞어국밥.png",
	"섞어국밥":   "img/섞어국밥.png",
	"수육 반접시": "img/수육.jpg",
	"수육 한접시": "img/수육.jpg",
}

type Catalog struct {
	items  []MenuItem
	byName map[string]MenuItem
}

// NewCatalog assigns ids by enumeration order. Later duplicates of a name
// are dropped so names stay unique.
func NewCatalog(entries []Entry) *Catalog {
	c := &Catalog{byName: make(map[string]MenuItem, len(entries))}
	for _, e := range entries {
		if _, dup := c.byName[e.Name]; dup {
			continue
		}
		price := e.Price
		if price < 0 {
			price = 0
		}
		it := MenuItem{ID: len(c.items) + 1, Name: e.Name, Price: price, ImageRef: imageRefs[e.Name]}
		c.items = append(c.items, it)
		c.byName[it.Name] = it
	}
	return c
}

func (c *Catalog) Items() []MenuItem {
	out := make([]MenuItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Len() int { return len(c.items) }

// Lookup is an exact name match.
func (c *Catalog) Lookup(name string) (MenuItem, bool) {
	it, ok := c.byName[name]
	return it, ok
}

func (c *Catalog) ByID(id int) (MenuItem, bool) {
	if id < 1 || id > len(c.items) {
		return MenuItem{}, false
	}
	return c.items[id-1], true
}

// Load fetches the menu, retrying with capped exponential backoff and jitter.
func Load(ctx context.Context, src Source, attempts int) (*Catalog, error) {
	log := logging.For("menu")
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
		}
		entries, err := src.Menu(ctx)
		if err == nil && len(entries) == 0 {
			err = ErrEmptyMenu
		}
		if err == nil {
			c := NewCatalog(entries)
			log.Info("menu loaded", "items", c.Len())
			return c, nil
		}
		lastErr = err
		log.Warn("menu fetch failed", "attempt", attempt+1, "err", err)
	}
	return nil, fmt.Errorf("load menu after %d attempts: %w", attempts, lastErr)
}

// backoff: base 200ms doubling up to 16x, plus up to one base of jitter.
func backoff(attempt int) time.Duration {
	base := 200 * time.Millisecond
	pow := 1 << uint(min(attempt-1, 4))
	return time.Duration(pow)*base + time.Duration(rand.Int63n(int64(base)))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
