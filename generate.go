package launcher

import (
	"fmt"
	"path/filepath"

	"github.com/toxikkmodding/toxikk-launcher/generator"
	"github.com/toxikkmodding/toxikk-launcher/logging"
)

// Generated is a profile whose config folder has been written
type Generated struct {
	*generator.Artifacts
	// Section is the profile's logical section name
	Section string
	// TargetDir received the generated files
	TargetDir string
	// Client and Dedicated describe how the profile is launched
	Client    bool
	Dedicated bool
}

// defaultCmdLine returns the command line a pass starts from
func defaultCmdLine(section string, dedicated bool) string {
	if dedicated {
		return "-configsubdir=" + section + " -nohomedir -unattended"
	}
	return "-log -nostartupmovies"
}

// Generate prepares and writes the config folder of profile id. Passes are serialized.
func (l *Launcher) Generate(id string) (*Generated, error) {
	section, err := l.SectionName(id)
	if err != nil {
		return nil, err
	}

	l.genMu.Lock()
	defer l.genMu.Unlock()

	l.mu.RLock()
	store, resolver, aliases := l.store, l.resolver, l.aliases
	macros, globals, configDir := l.macros, l.globals.Clone(), l.configDir
	switches := l.switches
	l.mu.RUnlock()

	client := section == ClientSection
	dedicated := switches.Dedicated && !client
	targetDir := configDir
	if dedicated {
		targetDir = filepath.Join(configDir, section)
	}

	l.prepareConfigFolder(targetDir, resolver.ApplicableSections(store, section, false), dedicated)

	gen := &generator.Generator{
		FS:          l.fs,
		Macros:      macros,
		Resolver:    resolver,
		Aliases:     aliases,
		LauncherDir: l.opts.LauncherDir,
		TemplateDir: configDir,
		Log:         l.log,
	}

	pass := generator.NewPass(targetDir, globals)
	pass.Client = client
	pass.CmdLine = defaultCmdLine(section, dedicated)
	pass.SteamSockets = switches.SteamSockets
	pass.SeekFreeLoading = switches.SeekFreeLoading

	artifacts, err := gen.Generate(pass, store, section)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", section, err)
	}
	l.log.Info(logging.DestinationGenerator, "Generated config", "profile", section, "files", len(artifacts.Files))

	return &Generated{
		Artifacts: artifacts,
		Section:   section,
		TargetDir: targetDir,
		Client:    client,
		Dedicated: dedicated,
	}, nil
}
