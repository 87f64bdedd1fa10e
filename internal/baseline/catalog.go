package baseline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vytor/flashdeck/internal/logger"
	"github.com/vytor/flashdeck/internal/models"
)

const deckExt = ".md"

// Entry describes one deck of the catalog.
type Entry struct {
	CategoryID string `json:"category_id"`
	Cards      int    `json:"cards"`
}

// Catalog holds every baseline deck found in a directory, keyed by category.
type Catalog struct {
	decks map[string][]models.Card
	ids   []string
}

// LoadCatalog parses every .md file in dir. The category id of a deck is its
// file name without the extension.
func LoadCatalog(dir string) (*Catalog, error) {
	log := logger.Default().WithPrefix("baseline")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read decks dir: %w", err)
	}

	c := &Catalog{decks: make(map[string][]models.Card)}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), deckExt) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		cards, err := ParseFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("parse deck %s: %w", e.Name(), err)
		}
		if len(cards) == 0 {
			log.Warn("deck %s has no cards, skipping", e.Name())
			continue
		}
		c.decks[id] = cards
		c.ids = append(c.ids, id)
		log.Debug("loaded deck %s: %d cards", id, len(cards))
	}
	sort.Strings(c.ids)

	log.Info("loaded %d decks from %s", len(c.ids), dir)
	return c, nil
}

// NewCatalog builds a catalog from in-memory decks.
func NewCatalog(decks map[string][]models.Card) *Catalog {
	c := &Catalog{decks: make(map[string][]models.Card, len(decks))}
	for id, cards := range decks {
		c.decks[id] = models.CloneCards(cards)
		c.ids = append(c.ids, id)
	}
	sort.Strings(c.ids)
	return c
}

// List returns the decks ordered by category id.
func (c *Catalog) List() []Entry {
	out := make([]Entry, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, Entry{CategoryID: id, Cards: len(c.decks[id])})
	}
	return out
}

// Cards returns a copy of the baseline cards of a deck.
func (c *Catalog) Cards(categoryID string) ([]models.Card, bool) {
	cards, ok := c.decks[categoryID]
	if !ok {
		return nil, false
	}
	return models.CloneCards(cards), true
}
