package models

import (
	"fmt"
	"strings"
)

// Filter selects which cards of a deck are shown while browsing.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterFavorites Filter = "favorites"
	FilterEasy      Filter = "easy"
	FilterMedium    Filter = "medium"
	FilterHard      Filter = "hard"
	FilterDue       Filter = "due"
)

// ParseFilter converts user input into a Filter. An empty string means all.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterFavorites, FilterEasy, FilterMedium, FilterHard, FilterDue:
		return f, nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q", s)
}
