package generator

import (
	"sort"
	"strings"

	"github.com/toxikkmodding/toxikk-launcher/config"
)

// Pass holds the mutable state of one generation pass for one profile
type Pass struct {
	// TargetDir receives the generated ini files; its base name identifies the profile
	TargetDir string
	// Vars is seeded from the launcher globals and extended by @name@ definitions
	Vars *Variables
	// Client marks the client profile, which needs no map
	Client bool
	// CmdLine is the accumulated command line, modified by @cmdline
	CmdLine string
	// SteamSockets appends ?steamsockets to the connection string
	SteamSockets bool
	// SeekFreeLoading appends -seekfreeloading to the command line
	SeekFreeLoading bool

	files     map[string]*destFile
	fileOrder []string
	params    map[string]*param
	stores    map[string]*config.File
	imports   []importFrame
}

// destFile is a generated ini file being built
type destFile struct {
	path  string
	store *config.File
}

// param is a connection parameter; name keeps its first spelling
type param struct {
	name  string
	value string
}

// importFrame identifies a logical section being processed
type importFrame struct {
	store   *config.File
	section string
}

// NewPass creates a pass writing into targetDir. globals is copied, so the pass never modifies it.
func NewPass(targetDir string, globals *Variables) *Pass {
	vars := NewVariables()
	if globals != nil {
		vars = globals.Clone()
	}
	vars.Set("ConfigDir", targetDir)

	return &Pass{
		TargetDir: targetDir,
		Vars:      vars,
		files:     make(map[string]*destFile),
		params:    make(map[string]*param),
		stores:    make(map[string]*config.File),
	}
}

// Param returns the value of a connection parameter
func (p *Pass) Param(name string) (string, bool) {
	prm, ok := p.params[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return prm.value, true
}

// setParam assigns a connection parameter, keeping the first spelling of its name
func (p *Pass) setParam(name, value string) {
	if prm, ok := p.params[strings.ToLower(name)]; ok {
		prm.value = value
		return
	}
	p.params[strings.ToLower(name)] = &param{name: name, value: value}
}

func (p *Pass) deleteParam(name string) {
	delete(p.params, strings.ToLower(name))
}

// Params returns the connection parameters ordered case-insensitively by name
func (p *Pass) Params() [][2]string {
	out := make([][2]string, 0, len(p.params))
	for _, prm := range p.params {
		out = append(out, [2]string{prm.name, prm.value})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i][0]) < strings.ToLower(out[j][0])
	})
	return out
}

// File returns the generated store for path, if the pass touched it
func (p *Pass) File(path string) (*config.File, bool) {
	f, ok := p.files[strings.ToLower(path)]
	if !ok {
		return nil, false
	}
	return f.store, true
}

// Files returns the paths of all generated files in the order they were first referenced
func (p *Pass) Files() []string {
	out := make([]string, 0, len(p.fileOrder))
	for _, key := range p.fileOrder {
		out = append(out, p.files[key].path)
	}
	return out
}

// onStack reports whether frame is already being processed
func (p *Pass) onStack(frame importFrame) bool {
	for _, f := range p.imports {
		if f.store == frame.store && f.section == frame.section {
			return true
		}
	}
	return false
}
