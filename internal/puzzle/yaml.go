package puzzle

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlPuzzle is the YAML representation of a puzzle.
type yamlPuzzle struct {
	GameString string   `yaml:"game_string"`
	Count      *int     `yaml:"count"`
	Words      []string `yaml:"words"`
}

// ParseYAML parses a puzzle from YAML bytes. The count field is optional;
// when present it must match the number of words.
//
// Postcondition: Returns a validated Puzzle or an error wrapping ErrMalformedPuzzle.
func ParseYAML(data []byte) (*Puzzle, error) {
	var raw yamlPuzzle
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing YAML: %v", ErrMalformedPuzzle, err)
	}

	declared := len(raw.Words)
	if raw.Count != nil {
		declared = *raw.Count
	}

	p := &Puzzle{
		GameString: raw.GameString,
		Words:      raw.Words,
	}
	if err := p.Validate(declared); err != nil {
		return nil, err
	}
	return p, nil
}
