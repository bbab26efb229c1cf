package fields

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a deployment field set.
type File struct {
	DedupKey      string  `yaml:"dedup_key"`
	CommentMarker *string `yaml:"comment_marker,omitempty"`
	Fields        []Spec  `yaml:"fields"`
}

// LoadFile reads a YAML field set and compiles it.
func LoadFile(path string) (*Parser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field spec file: %w", err)
	}
	p, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("field spec file %s: %w", path, err)
	}
	return p, nil
}

// ParseYAML compiles a field set from YAML. Unknown keys are rejected.
func ParseYAML(data []byte) (*Parser, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(f.Fields) == 0 {
		return nil, errors.New("no fields defined")
	}
	b := NewBuilder(f.DedupKey).Add(f.Fields...)
	if f.CommentMarker != nil {
		b.CommentMarker(*f.CommentMarker)
	}
	return b.Build()
}

// YAML renders a parser's field set in the LoadFile format.
func (p *Parser) YAML() ([]byte, error) {
	marker := p.marker
	return yaml.Marshal(File{DedupKey: p.key, CommentMarker: &marker, Fields: p.Specs()})
}
