// Package puzzle loads and validates puzzle definitions: an 80-character
// carrier string that hides the answer words, plus the answer word list.
package puzzle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// GameStringLength is the exact length of a puzzle's carrier string.
const GameStringLength = 80

// ErrMalformedPuzzle is returned when a puzzle definition fails structural validation.
var ErrMalformedPuzzle = errors.New("malformed puzzle")

// Puzzle is a validated puzzle definition.
type Puzzle struct {
	// Name identifies the source of the puzzle, usually the file name.
	Name string
	// GameString is the 80-character string that visually hides the words.
	GameString string
	// Words are the answer words, unique and case-sensitive.
	Words []string
}

// Count returns the number of answer words.
func (p *Puzzle) Count() int {
	return len(p.Words)
}

// Validate checks the puzzle invariants. declared is the word count stated
// by the definition.
//
// Postcondition: Returns nil or an error wrapping ErrMalformedPuzzle.
func (p *Puzzle) Validate(declared int) error {
	if n := utf8.RuneCountInString(p.GameString); n != GameStringLength {
		return malformed("game string must be %d characters, got %d", GameStringLength, n)
	}
	if declared != len(p.Words) {
		return malformed("word count %d does not match declared count %d", len(p.Words), declared)
	}
	seen := make(map[string]struct{}, len(p.Words))
	for i, w := range p.Words {
		if w == "" {
			return malformed("word %d is empty", i+1)
		}
		if _, dup := seen[w]; dup {
			return malformed("word %q appears more than once", w)
		}
		seen[w] = struct{}{}
	}
	return nil
}

// Parse reads the plain-text puzzle format:
//
//	line 1: the 80-character game string
//	line 2: the number of words N
//	lines 3..N+2: one answer word per line
//
// Postcondition: Returns a validated Puzzle or an error wrapping ErrMalformedPuzzle.
func Parse(data []byte) (*Puzzle, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 2 {
		return nil, malformed("expected game string and word count, got %d lines", len(lines))
	}

	declared, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil {
		return nil, malformed("word count %q is not an integer", lines[1])
	}

	p := &Puzzle{
		GameString: lines[0],
		Words:      append([]string(nil), lines[2:]...),
	}
	if err := p.Validate(declared); err != nil {
		return nil, err
	}
	return p, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPuzzle, fmt.Sprintf(format, args...))
}
