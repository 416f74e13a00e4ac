// Package config implements the launcher's ini-style configuration store.
//
// The configuration language supports:
// - Sections, optionally scoped to machines ([Name:hostA,hostB] or [Name:!hostA])
// - Repeated section headers that merge into one logical section
// - Multi-valued keys with a merge operator per value (=, ?=, :=, !=, .=, +=, *=, -=)
// - Comment lines starting with ';'
// - Values continued over several lines with a trailing backslash
//
// Example usage:
//
//	f, err := config.Load(afero.NewOsFs(), "MyServerConfig.ini")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sec := f.GetSection("ServerLauncher", false)
//	if sec != nil {
//	    dir := sec.GetString("ToxikkDir", "")
//	    _ = dir
//	}
package config

import (
	"fmt"
	"strings"
)

// Operator is the merge semantic attached to a single value
type Operator int

// Operators understood by the configuration language.
const (
	OpSet        Operator = iota // =
	OpSetIfEmpty                 // ?=
	OpClear                      // :=
	OpClearAlt                   // !=
	OpAppendRaw                  // .=
	OpAppend                     // +=
	OpPrepend                    // *=
	OpRemove                     // -=
)

var operatorSymbols = [...]string{"=", "?=", ":=", "!=", ".=", "+=", "*=", "-="}

// operatorPrefixes lists the characters that turn a following '=' into a two-character operator
const operatorPrefixes = "+-*.:!?"

// String returns the operator as written in a config file
func (op Operator) String() string {
	if op < 0 || int(op) >= len(operatorSymbols) {
		return fmt.Sprintf("Operator(%d)", int(op))
	}
	return operatorSymbols[op]
}

// Clears reports whether the operator deletes every value of its key
func (op Operator) Clears() bool {
	return op == OpClear || op == OpClearAlt
}

// ParseOperator converts an operator symbol into an Operator
func ParseOperator(s string) (Operator, bool) {
	for i, sym := range operatorSymbols {
		if sym == s {
			return Operator(i), true
		}
	}
	return OpSet, false
}

// Entry is one value of a key together with the operator that produced it
type Entry struct {
	Value string
	Op    Operator
}

// String returns the entry's value
func (e Entry) String() string {
	return e.Value
}

// SplitUnquoted splits input on sep, ignoring separators inside double quotes.
// Quotes are kept in the returned parts.
func SplitUnquoted(input string, sep rune) []string {
	var parts []string
	var part strings.Builder
	inQuotes := false
	for _, ch := range input {
		if ch == '"' {
			inQuotes = !inQuotes
		}
		if ch == sep && !inQuotes {
			parts = append(parts, part.String())
			part.Reset()
			continue
		}
		part.WriteRune(ch)
	}
	return append(parts, part.String())
}
