package puzzle

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fixedSource int

func (f fixedSource) Intn(n int) int { return int(f) % n }

func writePuzzleDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), textPuzzle(gameString, "2", "CAT", "DOG"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"),
		[]byte(fmt.Sprintf("game_string: %q\nwords: [ZW]\n", gameString)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a puzzle"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))
	return dir
}

func TestLoader_Files(t *testing.T) {
	dir := writePuzzleDir(t)
	files, err := NewLoader(dir, fixedSource(0)).Files()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.yaml")}, files)
}

func TestLoader_LoadPicksBySource(t *testing.T) {
	dir := writePuzzleDir(t)

	p, err := NewLoader(dir, fixedSource(0)).Load()
	require.NoError(t, err)
	assert.Equal(t, "a.txt", p.Name)
	assert.Equal(t, []string{"CAT", "DOG"}, p.Words)

	p, err = NewLoader(dir, fixedSource(1)).Load()
	require.NoError(t, err)
	assert.Equal(t, "b.yaml", p.Name)
	assert.Equal(t, []string{"ZW"}, p.Words)
}

func TestLoader_Empty(t *testing.T) {
	_, err := NewLoader(t.TempDir(), fixedSource(0)).Load()
	assert.ErrorIs(t, err, ErrNoPuzzles)
}

func TestLoader_MissingDir(t *testing.T) {
	_, err := NewLoader("/nonexistent/puzzles", fixedSource(0)).Load()
	assert.Error(t, err)
}

func TestLoader_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("short\n1\nCAT\n"), 0o644))
	_, err := NewLoader(dir, fixedSource(0)).Load()
	assert.ErrorIs(t, err, ErrMalformedPuzzle)
	assert.Contains(t, err.Error(), "bad.txt")
}

func TestCryptoSource_Range(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 1000).Draw(t, "n")
		v := NewCryptoSource().Intn(n)
		if v < 0 || v >= n {
			t.Fatalf("Intn(%d) = %d out of range", n, v)
		}
	})
}

func TestCryptoSource_PanicsOnNonPositive(t *testing.T) {
	assert.Panics(t, func() { NewCryptoSource().Intn(0) })
}
