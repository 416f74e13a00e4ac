package config

import (
	"strings"
)

// lineKind classifies a physical line of a config file
type lineKind int

const (
	lineSkip lineKind = iota // blank, comment, or not an assignment
	lineSection
	lineAssignment
)

// token is the result of lexing one physical line
type token struct {
	kind  lineKind
	name  string // section name or key
	op    Operator
	value string
}

// lexLine classifies a single trimmed line that does not continue a previous value
func lexLine(line string) token {
	switch {
	case line == "", strings.HasPrefix(line, ";"):
		return token{kind: lineSkip}
	case strings.HasPrefix(line, "["):
		return token{kind: lineSection, name: sectionName(line)}
	}

	key, op, value, ok := splitAssignment(line)
	if !ok {
		return token{kind: lineSkip}
	}
	return token{kind: lineAssignment, name: key, op: op, value: value}
}

// sectionName extracts the name from a "[Name]" header; a missing ']' takes the rest of the line
func sectionName(line string) string {
	name := line[1:]
	if idx := strings.IndexByte(name, ']'); idx >= 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}

// splitAssignment splits "key<op>value" at the first '='.
// The character before '=' belongs to the operator when it is one of operatorPrefixes.
func splitAssignment(line string) (key string, op Operator, value string, ok bool) {
	idx := strings.IndexByte(line, '=')
	if idx <= 0 {
		return "", OpSet, "", false
	}

	op = OpSet
	keyEnd := idx
	if strings.IndexByte(operatorPrefixes, line[idx-1]) >= 0 {
		op, _ = ParseOperator(line[idx-1 : idx+1])
		keyEnd = idx - 1
	}

	key = strings.TrimSpace(line[:keyEnd])
	if key == "" {
		return "", OpSet, "", false
	}
	return key, op, strings.TrimSpace(line[idx+1:]), true
}

// continues reports whether a value line carries the trailing continuation marker,
// returning the text without the marker
func continues(text string) (string, bool) {
	if !strings.HasSuffix(text, `\`) {
		return text, false
	}
	return strings.TrimSpace(strings.TrimSuffix(text, `\`)), true
}
