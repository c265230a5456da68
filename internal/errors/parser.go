package errors

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Severity of a compiler diagnostic.
type Severity int

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is one located message extracted from toolchain output.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
	Raw      string   `json:"raw"`
}

// Location formats file:line:column, omitting zero parts.
func (d Diagnostic) Location() string {
	if d.File == "" {
		return ""
	}
	loc := d.File
	if d.Line > 0 {
		loc += fmt.Sprintf(":%d", d.Line)
		if d.Column > 0 {
			loc += fmt.Sprintf(":%d", d.Column)
		}
	}
	return loc
}

type diagnosticPattern struct {
	regex       *regexp.Regexp
	parseFields func(matches []string) Diagnostic
}

var diagnosticPatterns = []diagnosticPattern{
	{
		// Sources/Site/main.swift:4:12: error: expected expression
		regex: regexp.MustCompile(`^(.+?):(\d+):(\d+): (error|warning|note): (.+)$`),
		parseFields: func(m []string) Diagnostic {
			line, _ := strconv.Atoi(m[2])
			column, _ := strconv.Atoi(m[3])
			return Diagnostic{
				Severity: parseSeverity(m[4]),
				File:     m[1],
				Line:     line,
				Column:   column,
				Message:  m[5],
			}
		},
	},
	{
		// main.swift:4: error: expected expression
		regex: regexp.MustCompile(`^(.+?):(\d+): (error|warning|note): (.+)$`),
		parseFields: func(m []string) Diagnostic {
			line, _ := strconv.Atoi(m[2])
			return Diagnostic{
				Severity: parseSeverity(m[3]),
				File:     m[1],
				Line:     line,
				Message:  m[4],
			}
		},
	},
	{
		// error: no such module 'SHTML'
		regex: regexp.MustCompile(`^(error|warning): (.+)$`),
		parseFields: func(m []string) Diagnostic {
			return Diagnostic{
				Severity: parseSeverity(m[1]),
				Message:  m[2],
			}
		},
	},
}

func parseSeverity(s string) Severity {
	switch s {
	case "error":
		return SeverityError
	case "warning":
		return SeverityWarning
	default:
		return SeverityNote
	}
}

// ParseDiagnostics extracts located diagnostics from compiler output.
// Lines that match no pattern are ignored.
func ParseDiagnostics(output string) []Diagnostic {
	var diagnostics []Diagnostic

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for _, pattern := range diagnosticPatterns {
			matches := pattern.regex.FindStringSubmatch(line)
			if matches == nil {
				continue
			}
			d := pattern.parseFields(matches)
			d.Raw = line
			diagnostics = append(diagnostics, d)
			break
		}
	}

	return diagnostics
}

// CountErrors returns the number of error-severity diagnostics.
func CountErrors(diagnostics []Diagnostic) int {
	n := 0
	for _, d := range diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}
