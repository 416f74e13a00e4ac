package generator

import (
	"errors"
	"strings"

	"github.com/toxikkmodding/toxikk-launcher/logging"
)

const loopKeyword = "@loop"

// maxLoopCombinations bounds the size of a cartesian product
const maxLoopCombinations = 100000

var (
	errNoLoopLists       = errors.New("no {...} lists")
	errUnterminatedList  = errors.New("unterminated {...} list")
	errTooManyLoopValues = errors.New("too many combinations")
)

// LoopInfo is a template plus the variable bindings of every copy that should be processed.
// A plain value yields one combination without bindings; a malformed loop yields none.
type LoopInfo struct {
	Template     string
	Combinations [][]string
	IsLoop       bool
}

// IsLoop reports whether raw starts with the @loop directive
func IsLoop(raw string) bool {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(loopKeyword) || !strings.EqualFold(raw[:len(loopKeyword)], loopKeyword) {
		return false
	}
	rest := raw[len(loopKeyword):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '{'
}

// ExpandLoop expands a cross-product loop:
//
//	@loop [separator] {a,b}{x,y}: template
//	@loop [separator] {a,b}{x,y} template
//
// The last list varies fastest. Non-numeric variables are substituted before the
// lists are split, so a variable may hold a whole list.
func (m *Macros) ExpandLoop(raw, targetDir string, vars *Variables) LoopInfo {
	if !IsLoop(raw) {
		return LoopInfo{Template: raw, Combinations: [][]string{nil}}
	}

	expanded := m.Expand(targetDir, raw, vars, false)
	lists, template, err := parseLoop(expanded)
	if err != nil {
		m.logger().Warnf(logging.DestinationGenerator, "bad @loop statement (%v): %s", err, expanded)
		return LoopInfo{IsLoop: true}
	}

	total := 1
	for _, list := range lists {
		total *= len(list)
		if total > maxLoopCombinations {
			m.logger().Warnf(logging.DestinationGenerator, "bad @loop statement (%v): %s", errTooManyLoopValues, expanded)
			return LoopInfo{IsLoop: true}
		}
	}

	combinations := make([][]string, 0, total)
	for i := 0; i < total; i++ {
		combination := make([]string, len(lists))
		j := i
		for l := len(lists) - 1; l >= 0; l-- {
			combination[l] = lists[l][j%len(lists[l])]
			j /= len(lists[l])
		}
		combinations = append(combinations, combination)
	}

	return LoopInfo{Template: template, Combinations: combinations, IsLoop: true}
}

// parseLoop splits a loop statement into its value lists and template
func parseLoop(statement string) ([][]string, string, error) {
	rest := strings.TrimSpace(statement)[len(loopKeyword):]

	open := strings.IndexByte(rest, '{')
	if open < 0 {
		return nil, "", errNoLoopLists
	}
	sep := strings.TrimSpace(rest[:open])
	if sep == "" {
		sep = ","
	}
	rest = rest[open:]

	var lists [][]string
	for strings.HasPrefix(rest, "{") {
		end := closingBrace(rest)
		if end < 0 {
			return nil, "", errUnterminatedList
		}
		lists = append(lists, splitQuoted(rest[1:end], sep))
		rest = strings.TrimLeft(rest[end+1:], " \t")
	}

	// legacy syntax separates the template with a colon
	template := strings.TrimPrefix(rest, ":")
	return lists, strings.TrimSpace(template), nil
}

// closingBrace returns the index of the '}' closing the list that starts at s[0], ignoring quoted text
func closingBrace(s string) int {
	inQuotes := false
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case '}':
			if !inQuotes {
				return i
			}
		}
	}
	return -1
}

// splitQuoted splits s on sep outside of double quotes and trims every part
func splitQuoted(s, sep string) []string {
	var parts []string
	inQuotes := false
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes && strings.HasPrefix(s[i:], sep) {
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + len(sep)
			i = start - 1
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}
