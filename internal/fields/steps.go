package fields

import (
	"fmt"
	"regexp"
	"strings"
)

var reInnerSpace = regexp.MustCompile(`[ \t\f\v]{2,}`)

type stepFunc func(s string) string

func resolveStep(step Step, marker string) (stepFunc, error) {
	switch step {
	case StepTrim:
		return trim, nil
	case StepCollapse:
		return collapse, nil
	case StepStripComment:
		return func(s string) string { return stripComment(s, marker) }, nil
	case StepDedent:
		return dedent, nil
	case StepDropBlank:
		return dropBlank, nil
	default:
		return nil, fmt.Errorf("unknown post-processing step %q", step)
	}
}

func trim(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t\r\f\v")
	}
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	lines = lines[start:end]
	if len(lines) == 1 {
		return strings.TrimSpace(lines[0])
	}
	return strings.Join(lines, "\n")
}

func collapse(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		indent := leadingIndent(ln)
		lines[i] = ln[:indent] + reInnerSpace.ReplaceAllString(ln[indent:], " ")
	}
	return strings.Join(lines, "\n")
}

func stripComment(s, marker string) string {
	if marker == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		if idx := strings.Index(ln, marker); idx >= 0 {
			lines[i] = strings.TrimRight(ln[:idx], " \t")
		}
	}
	return strings.Join(lines, "\n")
}

func dedent(s string) string {
	lines := strings.Split(s, "\n")
	minIndent := -1
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		if n := leadingIndent(ln); minIndent < 0 || n < minIndent {
			minIndent = n
		}
	}
	if minIndent <= 0 {
		return s
	}
	for i, ln := range lines {
		if len(ln) >= minIndent {
			lines[i] = ln[minIndent:]
		} else {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

func dropBlank(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			out = append(out, ln)
		}
	}
	return strings.Join(out, "\n")
}

// leadingIndent counts leading spaces and tabs, one byte each.
func leadingIndent(s string) int {
	n := 0
	for n < len(s) && (s[n] == ' ' || s[n] == '\t') {
		n++
	}
	return n
}
