// Package baseline reads the pristine card sets that decks are loaded from
// and reset to.
package baseline

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/vytor/flashdeck/internal/models"
)

const (
	frontPrefix = "Q:"
	backPrefix  = "A:"
	separator   = "---"
)

type state int

const (
	seeking state = iota
	readingFront
	readingBack
)

// ParseFile reads the cards of one deck file.
func ParseFile(path string) ([]models.Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Parse extracts cards written as "Q:" and "A:" blocks. Both blocks may span
// several lines; a new "Q:" line or a "---" line ends the current card.
// Cards missing either side are skipped. Ids are assigned by position
// starting at 1.
func Parse(r io.Reader) ([]models.Card, error) {
	scanner := bufio.NewScanner(r)
	var (
		cards []models.Card
		front []string
		back  []string
		st    = seeking
	)

	finish := func() {
		f, b := joinBlock(front), joinBlock(back)
		if f != "" && b != "" {
			cards = append(cards, models.Card{ID: len(cards) + 1, Front: f, Back: b})
		}
		front, back = nil, nil
		st = seeking
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")

		switch {
		case line == separator:
			finish()
		case strings.HasPrefix(line, frontPrefix):
			if st != seeking {
				finish()
			}
			st = readingFront
			front = append(front, stripPrefix(line, frontPrefix))
		case strings.HasPrefix(line, backPrefix) && st == readingFront:
			st = readingBack
			back = append(back, stripPrefix(line, backPrefix))
		case st == readingFront:
			front = append(front, line)
		case st == readingBack:
			back = append(back, line)
		}
	}
	finish()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

func stripPrefix(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}

// joinBlock joins block lines, dropping leading and trailing blank lines.
func joinBlock(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
