package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// maxLineLength bounds a single physical line; UE3 ini files can carry very long ServerPackages lists
const maxLineLength = 1024 * 1024

// File is an ordered collection of sections parsed from (or destined for) one config file
type File struct {
	sections []*Section
	index    map[string]*Section
	// crlf is set when the parsed input used Windows line endings; serialization keeps them
	crlf bool
}

// NewFile creates an empty File
func NewFile() *File {
	return &File{index: make(map[string]*Section)}
}

// Parse reads a config file from r
func Parse(r io.Reader) (*File, error) {
	f := NewFile()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var current *Section
	var pending *pendingValue

	for scanner.Scan() {
		raw := scanner.Text()
		if strings.HasSuffix(raw, "\r") {
			f.crlf = true
		}
		line := strings.TrimSpace(raw)

		// comments are skipped even in the middle of a continued value
		if strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			pending.flush(current)
			pending = nil
			current = f.GetSection(sectionName(line), true)
			continue
		}

		if current == nil {
			continue
		}

		text := line
		if pending == nil {
			tok := lexLine(line)
			if tok.kind != lineAssignment {
				continue
			}
			pending = &pendingValue{key: tok.name, op: tok.op}
			text = tok.value
		}

		if part, more := continues(text); more {
			pending.buf.WriteString(part)
			pending.buf.WriteByte('\n')
			continue
		}

		pending.buf.WriteString(text)
		pending.flush(current)
		pending = nil
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	pending.flush(current)

	return f, nil
}

// ParseString parses config text held in memory
func ParseString(text string) (*File, error) {
	return Parse(strings.NewReader(text))
}

// Load reads and parses the file at path. A missing file yields an empty File.
func Load(fsys afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return f, nil
}

// Save serializes the file and writes it to path, creating the parent directory when needed
func (f *File) Save(fsys afero.Fs, path string) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(fsys, path, []byte(f.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// GetSection returns the section with the given name (case-insensitive).
// When create is true a missing section is appended to the file.
func (f *File) GetSection(name string, create bool) *Section {
	sec, ok := f.index[strings.ToLower(name)]
	if !ok && create {
		sec = newSection(name)
		f.sections = append(f.sections, sec)
		f.index[strings.ToLower(name)] = sec
	}
	return sec
}

// Sections returns the sections in file order
func (f *File) Sections() []*Section {
	out := make([]*Section, len(f.sections))
	copy(out, f.sections)
	return out
}

// String serializes the file: a header per section, then one key<op>value line per entry
func (f *File) String() string {
	nl := "\n"
	if f.crlf {
		nl = "\r\n"
	}

	var sb strings.Builder
	for _, sec := range f.sections {
		sb.WriteString("[")
		sb.WriteString(sec.name)
		sb.WriteString("]")
		sb.WriteString(nl)
		for _, key := range sec.keys {
			for _, e := range sec.data[strings.ToLower(key)] {
				sb.WriteString(key)
				sb.WriteString(e.Op.String())
				sb.WriteString(strings.ReplaceAll(e.Value, "\n", `\`+nl))
				sb.WriteString(nl)
			}
		}
		sb.WriteString(nl)
	}
	return sb.String()
}

// WriteTo implements io.WriterTo
func (f *File) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, f.String())
	return int64(n), err
}

// pendingValue accumulates a value that may span several physical lines
type pendingValue struct {
	key string
	op  Operator
	buf strings.Builder
}

// flush stores the accumulated value; a nil receiver or section is a no-op
func (p *pendingValue) flush(sec *Section) {
	if p == nil || sec == nil {
		return
	}
	sec.Add(p.key, strings.TrimRight(p.buf.String(), "\n"), p.op)
}
