package puzzle

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoPuzzles is returned when the puzzle directory holds no puzzle files.
var ErrNoPuzzles = errors.New("no puzzle files found")

// Source produces uniformly distributed integers in [0, n).
type Source interface {
	Intn(n int) int
}

type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return cryptoSource{}
}

// Intn returns a uniformly distributed int in [0, n).
//
// Precondition: n > 0.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("puzzle: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("puzzle: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Loader selects and parses puzzle files from a directory.
type Loader struct {
	dir string
	src Source
}

// NewLoader creates a Loader over dir.
//
// Precondition: src must be non-nil.
func NewLoader(dir string, src Source) *Loader {
	return &Loader{dir: dir, src: src}
}

// Dir returns the directory the loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// Files lists the puzzle files in the loader's directory, sorted by name.
// Files ending in .txt, .yaml or .yml are puzzles; everything else is ignored.
//
// Postcondition: Returns the file paths or an error if the directory cannot be read.
func (l *Loader) Files() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("reading puzzle directory %s: %w", l.dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".yaml", ".yml":
			files = append(files, filepath.Join(l.dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Load picks one puzzle file uniformly at random and parses it.
//
// Postcondition: Returns a validated Puzzle, ErrNoPuzzles, or an error wrapping
// ErrMalformedPuzzle naming the offending file.
func (l *Loader) Load() (*Puzzle, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPuzzles, l.dir)
	}
	return LoadFile(files[l.src.Intn(len(files))])
}

// LoadFile reads and parses a single puzzle file, choosing the format by extension.
//
// Postcondition: Returns a validated Puzzle or a non-nil error.
func LoadFile(path string) (*Puzzle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading puzzle file %s: %w", path, err)
	}

	var p *Puzzle
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		p, err = ParseYAML(data)
	default:
		p, err = Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("loading puzzle %s: %w", path, err)
	}
	p.Name = filepath.Base(path)
	return p, nil
}
