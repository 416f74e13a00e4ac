// Package console writes operator-facing text with inline color codes.
//
// A '^' followed by a hex digit switches the foreground color, using the
// classic 16-color console palette (^C red, ^E yellow, ^A green, ^7 default).
// "^^" writes a literal caret.
package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/muesli/termenv"
)

// paletteToANSI maps the 16-color console palette onto ANSI color indexes
var paletteToANSI = [16]int{0, 4, 2, 6, 1, 5, 3, 7, 8, 12, 10, 14, 9, 13, 11, 15}

// defaultColor is the palette entry that means "no color"
const defaultColor = 7

// Console serializes colored writes to a single output
type Console struct {
	mu  sync.Mutex
	out *termenv.Output
}

// New creates a Console for w. Colors are only emitted when w is a terminal that supports them.
func New(w io.Writer) *Console {
	return &Console{out: termenv.NewOutput(w)}
}

// NewWithProfile creates a Console with a fixed color profile
func NewWithProfile(w io.Writer, profile termenv.Profile) *Console {
	return &Console{out: termenv.NewOutput(w, termenv.WithProfile(profile))}
}

// Write writes text, interpreting color codes
func (c *Console) Write(text string) {
	rendered := c.render(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, rendered)
}

// WriteLine writes text followed by a newline
func (c *Console) WriteLine(text string) {
	c.Write(text + "\n")
}

// Printf formats according to a format specifier and writes the result
func (c *Console) Printf(format string, args ...any) {
	c.Write(fmt.Sprintf(format, args...))
}

// render converts color codes into terminal escape sequences for the console's profile
func (c *Console) render(text string) string {
	var out, run strings.Builder
	color := defaultColor

	flush := func() {
		if run.Len() == 0 {
			return
		}
		if color == defaultColor {
			out.WriteString(run.String())
		} else {
			style := c.out.String(run.String()).Foreground(c.out.Color(strconv.Itoa(paletteToANSI[color])))
			out.WriteString(style.String())
		}
		run.Reset()
	}

	parseCodes(text, func(code int) {
		flush()
		color = code
	}, func(r rune) {
		run.WriteRune(r)
	})
	flush()
	return out.String()
}

// Strip removes color codes from text
func Strip(text string) string {
	var sb strings.Builder
	parseCodes(text, func(int) {}, func(r rune) { sb.WriteRune(r) })
	return sb.String()
}

// Escape doubles every caret so that text is written verbatim
func Escape(text string) string {
	return strings.ReplaceAll(text, "^", "^^")
}

// parseCodes walks text, reporting color switches and literal runes.
// A caret followed by anything other than a hex digit or another caret is dropped together with that character.
func parseCodes(text string, onColor func(int), onRune func(rune)) {
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '^' {
			onRune(runes[i])
			continue
		}
		i++
		if i >= len(runes) {
			return
		}
		if n, err := strconv.ParseUint(string(runes[i]), 16, 8); err == nil {
			onColor(int(n))
		} else if runes[i] == '^' {
			onRune('^')
		}
	}
}
