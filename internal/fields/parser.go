package fields

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-tracker/internal/entity"
)

// Builder collects field specs and compiles them into a Parser.
type Builder struct {
	key    string
	marker string
	specs  []Spec
}

// NewBuilder starts a field set whose dedup key is the field named key.
func NewBuilder(key string) *Builder {
	return &Builder{key: key, marker: DefaultCommentMarker}
}

// CommentMarker overrides the inline comment marker used by StepStripComment.
func (b *Builder) CommentMarker(m string) *Builder {
	b.marker = m
	return b
}

// Add registers a field. Fields appear in records in registration order.
func (b *Builder) Add(specs ...Spec) *Builder {
	b.specs = append(b.specs, specs...)
	return b
}

// Build validates and compiles every registered spec.
func (b *Builder) Build() (*Parser, error) {
	var errs []error
	seen := map[string]struct{}{}
	p := &Parser{key: b.key, marker: b.marker}

	for i, s := range b.specs {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("field #%d: name is required", i+1))
			continue
		}
		if _, dup := seen[s.Name]; dup {
			errs = append(errs, fmt.Errorf("field %q: registered twice", s.Name))
			continue
		}
		seen[s.Name] = struct{}{}

		f, err := compile(s, b.marker)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", s.Name, err))
			continue
		}
		p.fields = append(p.fields, f)
	}

	if b.key == "" {
		errs = append(errs, errors.New("dedup key is required"))
	} else if _, ok := seen[b.key]; !ok {
		errs = append(errs, fmt.Errorf("dedup key %q is not a registered field", b.key))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	for _, f := range p.fields {
		if f.label != nil {
			p.labels = append(p.labels, f)
		}
	}
	return p, nil
}

type field struct {
	spec   Spec
	re     *regexp.Regexp
	groups []int
	label  *regexp.Regexp
	stops  []*regexp.Regexp
	steps  []stepFunc
}

func compile(s Spec, marker string) (*field, error) {
	if (s.Pattern == "") == (s.Label == "") {
		return nil, errors.New("exactly one of pattern or label must be set")
	}
	switch s.Select {
	case "":
		s.Select = SelectLast
	case SelectFirst, SelectLast:
	default:
		return nil, fmt.Errorf("unknown select policy %q", s.Select)
	}

	f := &field{spec: s}
	for _, st := range s.Steps {
		fn, err := resolveStep(st, marker)
		if err != nil {
			return nil, err
		}
		f.steps = append(f.steps, fn)
	}

	if s.Pattern != "" {
		re, err := regexp.Compile("(?i)" + s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern: %w", err)
		}
		f.re = re
		f.groups = s.Groups
		if len(f.groups) == 0 {
			if re.NumSubexp() == 0 {
				f.groups = []int{0}
			} else {
				f.groups = []int{1}
			}
		}
		for _, g := range f.groups {
			if g < 0 || g > re.NumSubexp() {
				return nil, fmt.Errorf("group %d out of range (pattern has %d)", g, re.NumSubexp())
			}
		}
		return f, nil
	}

	if len(s.Groups) > 0 {
		return nil, errors.New("groups apply to pattern fields only")
	}
	label, err := regexp.Compile("(?i)" + s.Label)
	if err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}
	f.label = label
	for _, stop := range s.Stop {
		re, err := regexp.Compile("(?i)" + stop)
		if err != nil {
			return nil, fmt.Errorf("stop %q: %w", stop, err)
		}
		f.stops = append(f.stops, re)
	}
	return f, nil
}

// Parser turns raw text into a Record. It holds no mutable state and is safe
// for concurrent use.
type Parser struct {
	key    string
	marker string
	fields []*field
	labels []*field
}

// DedupKey returns the name of the field used for duplicate detection.
func (p *Parser) DedupKey() string { return p.key }

// FieldNames returns the registered field names in order.
func (p *Parser) FieldNames() []string {
	out := make([]string, len(p.fields))
	for i, f := range p.fields {
		out[i] = f.spec.Name
	}
	return out
}

// Specs returns a copy of the registered specs.
func (p *Parser) Specs() []Spec {
	out := make([]Spec, len(p.fields))
	for i, f := range p.fields {
		out[i] = f.spec
	}
	return out
}

// Parse extracts every registered field. The record always holds one entry per
// field; fields that do not match are absent.
func (p *Parser) Parse(text string) *entity.Record {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	rec := entity.NewRecord()
	for _, f := range p.fields {
		var (
			v  string
			ok bool
		)
		if f.label != nil {
			v, ok = p.block(f, lines)
		} else {
			v, ok = f.inline(text)
		}
		if ok {
			rec.SetString(f.spec.Name, v)
		} else {
			rec.SetAbsent(f.spec.Name)
		}
	}
	return rec
}

func (f *field) inline(text string) (string, bool) {
	matches := f.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	m := matches[len(matches)-1]
	if f.spec.Select == SelectFirst {
		m = matches[0]
	}

	parts := make([]string, 0, len(f.groups))
	for _, g := range f.groups {
		start, end := m[2*g], m[2*g+1]
		if start < 0 {
			return "", false
		}
		part := f.apply(text[start:end])
		if len(f.groups) > 1 && part == "" {
			return "", false
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, f.spec.Join), true
}

func (p *Parser) block(f *field, lines []string) (string, bool) {
	at := -1
	for i, ln := range lines {
		if f.label.MatchString(ln) {
			at = i
			if f.spec.Select == SelectFirst {
				break
			}
		}
	}
	if at < 0 {
		return "", false
	}

	var body []string
	for _, ln := range lines[at+1:] {
		if p.startsOtherBlock(f, ln) {
			break
		}
		if strings.TrimSpace(ln) == "" {
			continue
		}
		body = append(body, ln)
	}
	return f.apply(strings.Join(body, "\n")), true
}

func (p *Parser) startsOtherBlock(f *field, line string) bool {
	for _, stop := range f.stops {
		if stop.MatchString(line) {
			return true
		}
	}
	for _, other := range p.labels {
		if other != f && other.label.MatchString(line) {
			return true
		}
	}
	return false
}

func (f *field) apply(v string) string {
	for _, step := range f.steps {
		v = step(v)
	}
	return v
}
