package puzzle

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var gameString = strings.Repeat("XCATQDOGZW", 8)

func textPuzzle(game string, count string, words ...string) []byte {
	lines := append([]string{game, count}, words...)
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestParse_Valid(t *testing.T) {
	p, err := Parse(textPuzzle(gameString, "2", "CAT", "DOG"))
	require.NoError(t, err)
	assert.Equal(t, gameString, p.GameString)
	assert.Equal(t, []string{"CAT", "DOG"}, p.Words)
	assert.Equal(t, 2, p.Count())
}

func TestParse_CRLF(t *testing.T) {
	data := strings.ReplaceAll(string(textPuzzle(gameString, "2", "CAT", "DOG")), "\n", "\r\n")
	p, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"CAT", "DOG"}, p.Words)
}

func TestParse_NoTrailingNewline(t *testing.T) {
	p, err := Parse([]byte(gameString + "\n1\nCAT"))
	require.NoError(t, err)
	assert.Equal(t, []string{"CAT"}, p.Words)
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"empty":             []byte(""),
		"one line":          []byte(gameString + "\n"),
		"short game string": textPuzzle(gameString[:79], "1", "CAT"),
		"long game string":  textPuzzle(gameString+"X", "1", "CAT"),
		"count not integer": textPuzzle(gameString, "two", "CAT", "DOG"),
		"too few words":     textPuzzle(gameString, "3", "CAT", "DOG"),
		"too many words":    textPuzzle(gameString, "1", "CAT", "DOG"),
		"duplicate word":    textPuzzle(gameString, "2", "CAT", "CAT"),
		"blank word":        textPuzzle(gameString, "2", "CAT", ""),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedPuzzle), "got %v", err)
		})
	}
}

func TestParseYAML(t *testing.T) {
	data := fmt.Sprintf("game_string: %q\ncount: 2\nwords:\n  - CAT\n  - DOG\n", gameString)
	p, err := ParseYAML([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"CAT", "DOG"}, p.Words)
}

func TestParseYAML_CountOptional(t *testing.T) {
	data := fmt.Sprintf("game_string: %q\nwords: [CAT]\n", gameString)
	p, err := ParseYAML([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Count())
}

func TestParseYAML_CountMismatch(t *testing.T) {
	data := fmt.Sprintf("game_string: %q\ncount: 3\nwords: [CAT, DOG]\n", gameString)
	_, err := ParseYAML([]byte(data))
	assert.ErrorIs(t, err, ErrMalformedPuzzle)
}

func TestParseYAML_Invalid(t *testing.T) {
	_, err := ParseYAML([]byte("words: [unclosed"))
	assert.ErrorIs(t, err, ErrMalformedPuzzle)
}

// Property: any well-formed puzzle round-trips through the text format.
func TestPropertyParseWellFormed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		game := rapid.StringMatching(`[A-Z]{80}`).Draw(t, "game")
		words := rapid.SliceOfNDistinct(rapid.StringMatching(`[A-Z]{2,8}`), 0, 12, rapid.ID[string]).Draw(t, "words")

		p, err := Parse(textPuzzle(game, fmt.Sprint(len(words)), words...))
		if err != nil {
			t.Fatalf("well-formed puzzle rejected: %v", err)
		}
		if p.Count() != len(words) {
			t.Fatalf("count %d != %d", p.Count(), len(words))
		}
	})
}

// Property: a declared count that differs from the word list is always rejected.
func TestPropertyParseCountMismatch(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOfNDistinct(rapid.StringMatching(`[A-Z]{2,8}`), 0, 12, rapid.ID[string]).Draw(t, "words")
		delta := rapid.OneOf(rapid.IntRange(-5, -1), rapid.IntRange(1, 5)).Draw(t, "delta")

		_, err := Parse(textPuzzle(gameString, fmt.Sprint(len(words)+delta), words...))
		if !errors.Is(err, ErrMalformedPuzzle) {
			t.Fatalf("expected ErrMalformedPuzzle, got %v", err)
		}
	})
}
