package generator

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"github.com/toxikkmodding/toxikk-launcher/config"
	"github.com/toxikkmodding/toxikk-launcher/fileutil"
	"github.com/toxikkmodding/toxikk-launcher/logging"
)

// maxImportDepth bounds nested @import chains
const maxImportDepth = 32

// externalImportRegex matches "[dir/]File.ini[\Section]"
var externalImportRegex = regexp.MustCompile(`(?i)^(?:(.*)[/\\])?(\S+\.ini)(\\\S+)?$`)

// Generator processes configuration sections into generated files and launch parameters
type Generator struct {
	// FS is used for imports, copies and generated files
	FS afero.Fs
	// Macros expands values; nil uses the process environment and the default profile prefix
	Macros *Macros
	// Resolver selects host-specific sections for profiles and imports
	Resolver *config.Resolver
	// Aliases translates simple key names into File\Section\Key paths ([SimpleNames])
	Aliases *config.Section
	// LauncherDir is the base directory for external imports and @copy sources
	LauncherDir string
	// TemplateDir is the fallback directory for @copy sources (the game's Config folder)
	TemplateDir string
	// Log receives warnings about malformed entries
	Log *logging.Logger
}

// targetKind is the classification of a configuration key
type targetKind int

const (
	targetParam targetKind = iota // connection parameter
	targetIni                     // File\Section\Key
	targetDirective               // @directive or @variable@
)

// directive identifies a control directive
type directive int

const (
	directiveUnknown directive = iota
	directiveImport
	directiveCopy
	directiveCmdLine
	directiveSteamSockets
	directiveSeekFreeLoading
	directiveVariable
	directiveIgnored // consumed outside of generation
)

var directiveNames = map[string]directive{
	"@import":          directiveImport,
	"@copy":            directiveCopy,
	"@copyfiles":       directiveCopy,
	"@cmdline":         directiveCmdLine,
	"@steamsockets":    directiveSteamSockets,
	"@seekfreeloading": directiveSeekFreeLoading,
	"@servername":      directiveIgnored,
	"@keep":            directiveIgnored,
}

// target is where the values of one key go
type target struct {
	kind      targetKind
	directive directive
	name      string // parameter or variable name
	file      string // ini file, section and key for targetIni
	section   string
	key       string
}

func (g *Generator) logger() *logging.Logger {
	if g.Log == nil {
		g.Log = logging.Default()
	}
	return g.Log
}

func (g *Generator) macros() *Macros {
	if g.Macros == nil {
		g.Macros = &Macros{Log: g.Log}
	}
	return g.Macros
}

func (g *Generator) resolver() *config.Resolver {
	if g.Resolver == nil {
		g.Resolver = config.NewResolver(config.MachineName(), nil)
	}
	return g.Resolver
}

// classify determines the target of a key
func (g *Generator) classify(key string) target {
	if strings.HasPrefix(key, "@") {
		if d, ok := directiveNames[strings.ToLower(key)]; ok {
			return target{kind: targetDirective, directive: d}
		}
		if IsVariableName(key) {
			return target{kind: targetDirective, directive: directiveVariable, name: key}
		}
		return target{kind: targetDirective, directive: directiveUnknown, name: key}
	}

	mapped := key
	if g.Aliases != nil {
		if alias, ok := g.Aliases.Lookup(key); ok && alias != "" {
			mapped = alias
		}
	}

	if parts := strings.Split(mapped, `\`); len(parts) == 3 {
		return target{kind: targetIni, file: parts[0], section: parts[1], key: parts[2]}
	}
	return target{kind: targetParam, name: mapped}
}

// ProcessApplicable processes every section of store that applies to this host for logicalName,
// generic sections first. It reports whether any section was found.
func (g *Generator) ProcessApplicable(pass *Pass, sourceDir string, store *config.File, logicalName string) bool {
	sections := g.resolver().ApplicableSections(store, logicalName, false)
	if len(sections) == 0 {
		return false
	}

	frame := importFrame{store: store, section: strings.ToLower(logicalName)}
	if pass.onStack(frame) {
		g.logger().Warnf(logging.DestinationGenerator, "@import cycle detected at [%s], skipping", logicalName)
		return true
	}
	if len(pass.imports) >= maxImportDepth {
		g.logger().Warnf(logging.DestinationGenerator, "@import nesting deeper than %d at [%s], skipping", maxImportDepth, logicalName)
		return true
	}

	pass.imports = append(pass.imports, frame)
	defer func() { pass.imports = pass.imports[:len(pass.imports)-1] }()

	for _, sec := range sections {
		g.Process(pass, sourceDir, store, sec)
	}
	return true
}

// Process applies every entry of section, in key order and then value order.
// sourceDir is relative to LauncherDir and locates external imports and @copy sources.
func (g *Generator) Process(pass *Pass, sourceDir string, store *config.File, section *config.Section) {
	if section == nil {
		return
	}
	for _, key := range section.Keys() {
		t := g.classify(key)
		for _, entry := range section.GetAll(key) {
			g.processEntry(pass, sourceDir, store, key, t, entry)
		}
	}
}

// processEntry expands one raw value and dispatches every resulting value
func (g *Generator) processEntry(pass *Pass, sourceDir string, store *config.File, key string, t target, entry config.Entry) {
	if t.kind == targetDirective && t.directive == directiveUnknown {
		g.logger().Warnf(logging.DestinationGenerator, "ignoring unknown directive: %s%s%s", key, entry.Op, entry.Value)
		return
	}
	if t.kind == targetDirective && t.directive == directiveIgnored {
		return
	}

	loop := g.macros().ExpandLoop(entry.Value, pass.TargetDir, pass.Vars)
	op := entry.Op
	if loop.IsLoop && len(loop.Combinations) > 0 && op == config.OpSet {
		// a replacing loop starts from an empty list; a malformed one is dropped
		g.apply(pass, sourceDir, store, t, config.OpClear, "", new(int))
		op = config.OpAppend
	}

	// prepends of one statement keep their relative order
	prependAt := 0
	for _, combination := range loop.Combinations {
		if loop.IsLoop {
			pass.Vars.BindLoop(combination)
		}
		value := g.macros().Expand(pass.TargetDir, loop.Template, pass.Vars, true)
		g.apply(pass, sourceDir, store, t, op, value, &prependAt)
	}
}

// apply merges one value into its target
func (g *Generator) apply(pass *Pass, sourceDir string, store *config.File, t target, op config.Operator, value string, prependAt *int) {
	switch t.kind {
	case targetIni:
		sec := g.destFile(pass, t.file).GetSection(t.section, true)
		mergeIni(sec, t.key, op, value, prependAt)

	case targetParam:
		old, exists := pass.Param(t.name)
		if merged, keep := mergeList(old, exists, op, value, prependAt); keep {
			pass.setParam(t.name, merged)
		} else {
			pass.deleteParam(t.name)
		}

	case targetDirective:
		switch t.directive {
		case directiveImport:
			if !op.Clears() {
				g.processImport(pass, sourceDir, store, value)
			}
		case directiveCopy:
			if !op.Clears() {
				g.processCopy(pass, sourceDir, value)
			}
		case directiveCmdLine:
			pass.CmdLine = mergeCmdLine(pass.CmdLine, op, value)
		case directiveSteamSockets:
			pass.SteamSockets = mergeToggle(pass.SteamSockets, op, value)
		case directiveSeekFreeLoading:
			pass.SeekFreeLoading = mergeToggle(pass.SeekFreeLoading, op, value)
		case directiveVariable:
			old, exists := pass.Vars.Get(t.name)
			if merged, keep := mergeList(old, exists, op, value, prependAt); keep {
				pass.Vars.Set(t.name, merged)
			} else {
				pass.Vars.Delete(t.name)
			}
		}
	}
}

// destFile returns the cached store for a generated file, loading any existing content on first use
func (g *Generator) destFile(pass *Pass, file string) *config.File {
	name := nativePath(file)
	if filepath.Ext(name) == "" {
		name += ".ini"
	}
	path := filepath.Join(pass.TargetDir, name)

	cacheKey := strings.ToLower(path)
	if df, ok := pass.files[cacheKey]; ok {
		return df.store
	}

	store, err := config.Load(g.FS, path)
	if err != nil {
		g.logger().Warnf(logging.DestinationGenerator, "starting %s from scratch: %v", path, err)
		store = config.NewFile()
	}
	pass.files[cacheKey] = &destFile{path: path, store: store}
	pass.fileOrder = append(pass.fileOrder, cacheKey)
	return store
}

// processImport handles "@import=Section,dir/Other.ini\Section,..."
func (g *Generator) processImport(pass *Pass, sourceDir string, store *config.File, value string) {
	for _, item := range config.SplitUnquoted(value, ',') {
		item = strings.Trim(strings.TrimSpace(item), `"`)
		if item == "" {
			continue
		}

		match := externalImportRegex.FindStringSubmatch(item)
		if match == nil {
			if !g.ProcessApplicable(pass, sourceDir, store, item) {
				g.logger().Warnf(logging.DestinationGenerator, "@import=%s: failed to locate [%s]", value, item)
			}
			continue
		}

		subDir := sourceDir
		if match[1] != "" {
			subDir = filepath.Join(sourceDir, nativePath(match[1]))
		}
		section := TargetBase(pass.TargetDir)
		if match[3] != "" {
			section = match[3][1:]
		}

		sub, err := g.loadStore(pass, filepath.Join(g.LauncherDir, subDir, match[2]))
		if err != nil {
			g.logger().Warnf(logging.DestinationGenerator, "@import=%s: %v", value, err)
			continue
		}
		if !g.ProcessApplicable(pass, subDir, sub, section) {
			g.logger().Warnf(logging.DestinationGenerator, "@import=%s: failed to locate %s\\%s",
				value, filepath.Join(subDir, match[2]), section)
		}
	}
}

// loadStore parses an imported file once per pass
func (g *Generator) loadStore(pass *Pass, path string) (*config.File, error) {
	key := strings.ToLower(path)
	if store, ok := pass.stores[key]; ok {
		return store, nil
	}
	store, err := config.Load(g.FS, path)
	if err != nil {
		return nil, err
	}
	pass.stores[key] = store
	return store, nil
}

// processCopy handles "@copy=source[:dest],..."
func (g *Generator) processCopy(pass *Pass, sourceDir, value string) {
	for _, item := range strings.Split(value, ",") {
		src, dst := splitCopyPair(strings.TrimSpace(item))
		if src == "" || dst == "" {
			continue
		}

		source := g.findCopySource(sourceDir, src)
		if source == "" {
			g.logger().Warnf(logging.DestinationGenerator, "@copy source not found: %s", src)
			continue
		}

		dest := filepath.Join(pass.TargetDir, nativePath(dst))
		if err := fileutil.CopyFile(g.FS, source, dest, true); err != nil {
			g.logger().Warnf(logging.DestinationGenerator, "@copy %s: %v", src, err)
		}
	}
}

// findCopySource looks for src in the launcher directory (below sourceDir), then in the template directory
func (g *Generator) findCopySource(sourceDir, src string) string {
	if isRooted(src) {
		if ok, _ := afero.Exists(g.FS, nativePath(src)); ok {
			return nativePath(src)
		}
		return ""
	}

	for _, candidate := range []string{
		filepath.Join(g.LauncherDir, sourceDir, nativePath(src)),
		filepath.Join(g.TemplateDir, nativePath(src)),
	} {
		if ok, _ := afero.Exists(g.FS, candidate); ok {
			return candidate
		}
	}
	return ""
}

// splitCopyPair splits "source:dest". A colon at index 1 is a drive letter, not a separator.
func splitCopyPair(item string) (string, string) {
	idx := -1
	if len(item) > 2 {
		if i := strings.IndexByte(item[2:], ':'); i >= 0 {
			idx = i + 2
		}
	}

	if idx < 0 {
		src := strings.TrimSpace(item)
		if isRooted(src) {
			return src, TargetBase(src)
		}
		return src, src
	}
	return strings.TrimSpace(item[:idx]), strings.TrimSpace(item[idx+1:])
}

// isRooted reports whether p is absolute in either Unix or Windows notation
func isRooted(p string) bool {
	return filepath.IsAbs(p) || strings.HasPrefix(p, `\`) || strings.HasPrefix(p, "/") ||
		(len(p) >= 2 && p[1] == ':')
}

// nativePath converts backslash-separated config paths to the local separator
func nativePath(p string) string {
	return filepath.FromSlash(strings.ReplaceAll(p, `\`, "/"))
}
