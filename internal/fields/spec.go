package fields

// Select is the candidate selection policy for a pattern that matches more
// than once in a document.
type Select string

const (
	// SelectLast takes the final match in document order. It is the default.
	SelectLast Select = "last"
	// SelectFirst takes the earliest match in document order.
	SelectFirst Select = "first"
)

// Step names one post-processing operation applied to a captured value.
type Step string

const (
	// StepTrim trims surrounding whitespace. Multi-line values keep the
	// leading indentation of each line and lose only trailing spaces and
	// leading/trailing blank lines.
	StepTrim Step = "trim"
	// StepCollapse reduces runs of 2+ whitespace inside a line to one space.
	// Leading indentation is left alone.
	StepCollapse Step = "collapse"
	// StepStripComment removes text from the comment marker to end of line.
	StepStripComment Step = "strip_comment"
	// StepDedent removes the common leading indentation of non-empty lines.
	StepDedent Step = "dedent"
	// StepDropBlank removes lines that are empty after trimming.
	StepDropBlank Step = "drop_blank"
)

// DefaultCommentMarker starts an inline annotation in free-text lines.
const DefaultCommentMarker = "//"

// Spec declares one named field.
//
// Exactly one of Pattern or Label is set. A Pattern field captures inline:
// Groups lists the capture groups to read (default: group 1, or the whole
// match when the pattern has no groups). With more than one group the field
// is a composite joined by Join; if any group is missing or empty the field
// is absent. A Label field captures the block of lines following the label
// line, ending before the next line that matches another block's label or
// one of Stop.
//
// All patterns are compiled case-insensitive.
type Spec struct {
	Name    string   `yaml:"name"`
	Pattern string   `yaml:"pattern,omitempty"`
	Groups  []int    `yaml:"groups,omitempty"`
	Join    string   `yaml:"join,omitempty"`
	Label   string   `yaml:"label,omitempty"`
	Stop    []string `yaml:"stop,omitempty"`
	Select  Select   `yaml:"select,omitempty"`
	Steps   []Step   `yaml:"steps,omitempty"`
}

// IsBlock reports whether the field captures a labelled block.
func (s Spec) IsBlock() bool { return s.Label != "" }

// IsComposite reports whether the field joins more than one capture group.
func (s Spec) IsComposite() bool { return len(s.Groups) > 1 }
