package models

import (
	"fmt"
	"strings"
)

// Difficulty is the user's rating of a card. The zero value means the card
// has never been rated.
type Difficulty string

const (
	DifficultyNone   Difficulty = ""
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the valid ratings in ascending order of effort.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of easy, medium or hard.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ParseDifficulty converts user input into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return DifficultyNone, fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}
