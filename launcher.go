// Package launcher drives TOXIKK dedicated servers from a MyServerConfig.ini file.
//
// A Launcher loads the configuration, lists the server profiles it defines, materializes each
// profile's config folder with the generator package and manages the server processes.
//
// Example usage:
//
//	l, err := launcher.Load(launcher.Options{LauncherDir: "/srv/toxikk/TOXIKKServers"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, p := range l.Profiles(ctx) {
//	    fmt.Println(p.ID, p.Name, p.Running)
//	}
//
//	if err := l.StartServer(ctx, "1"); err != nil {
//	    log.Fatal(err)
//	}
package launcher

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/toxikkmodding/toxikk-launcher/config"
	"github.com/toxikkmodding/toxikk-launcher/generator"
	"github.com/toxikkmodding/toxikk-launcher/logging"
)

const (
	// ConfigFileName is the operator's configuration file in the launcher directory
	ConfigFileName = "MyServerConfig.ini"
	// TemplateConfigFileName is shipped with the launcher and renamed to ConfigFileName on first use
	TemplateConfigFileName = "ServerConfig.ini"
	// ClientSection configures the local game client (profile id 0)
	ClientSection = "Client"
	// SteamAppID is TOXIKK's Steam application id
	SteamAppID = "324810"
)

var (
	// ErrUnknownProfile is returned for profile ids without a configuration section
	ErrUnknownProfile = errors.New("no configuration with this id")
	// ErrNotRunning is returned when stopping or focusing a server that is not running
	ErrNotRunning = errors.New("server is not running")
	// ErrAlreadyRunning is returned when starting a server whose process is alive
	ErrAlreadyRunning = errors.New("server is already running")
	// ErrGameNotFound is returned when TOXIKK.exe cannot be located
	ErrGameNotFound = errors.New("couldn't find TOXIKK.exe; configure ToxikkDir in " + ConfigFileName)
)

// Options configures Load. Zero values select production defaults.
type Options struct {
	// LauncherDir holds MyServerConfig.ini, launcher-provided UDK*.ini files and import sources
	LauncherDir string
	// ConfigPath overrides LauncherDir/MyServerConfig.ini
	ConfigPath string
	// ToxikkDir and WorkshopDir override the [ServerLauncher] settings
	ToxikkDir   string
	WorkshopDir string
	// RunDir holds pid markers and their lock files; defaults to LauncherDir/run
	RunDir string
	// MachineName overrides the detected machine name for host-scoped sections
	MachineName string
	// Variables are "@name@=value" or "@name@?=value" assignments that win over config globals
	Variables []string

	FS        afero.Fs
	Env       generator.Environment
	Starter   ProcessStarter
	Processes ProcessTable
	Log       *logging.Logger
}

// Launcher is a loaded launcher configuration plus the server switches of the session
type Launcher struct {
	fs        afero.Fs
	opts      Options
	store     *config.File
	resolver  *config.Resolver
	aliases   *config.Section
	settings  Settings
	macros    *generator.Macros
	starter   ProcessStarter
	processes ProcessTable
	pids      *PIDStore
	log       *logging.Logger

	configPath string
	toxikkDir  string
	configDir  string

	// genMu serializes generation passes
	genMu sync.Mutex

	mu       sync.RWMutex
	globals  *generator.Variables
	switches Switches
}

// Switches are the session toggles that shape a launch
type Switches struct {
	// Dedicated starts "server <map>?dedicated=true" instead of a listen server
	Dedicated bool
	// SteamSockets is the default for the @steamsockets directive
	SteamSockets bool
	// SeekFreeLoading is the default for the @seekfreeloading directive
	SeekFreeLoading bool
	// ShowCommand logs the full command line before starting a server
	ShowCommand bool
	// Lan adds ?bIsLanMatch=true to the launch URL
	Lan bool
}

// DefaultSwitches returns the switches of a fresh session
func DefaultSwitches() Switches {
	return Switches{Dedicated: true, SteamSockets: false, SeekFreeLoading: true}
}

// Load reads the launcher configuration and resolves the game folders
func Load(opts Options) (*Launcher, error) {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Env == nil {
		opts.Env = generator.OSEnvironment{}
	}
	if opts.Log == nil {
		opts.Log = logging.Default()
	}
	if opts.Starter == nil {
		opts.Starter = ExecStarter{}
	}
	if opts.Processes == nil {
		opts.Processes = SystemProcesses{}
	}
	if opts.MachineName == "" {
		opts.MachineName = config.MachineName()
	}
	if opts.RunDir == "" {
		opts.RunDir = filepath.Join(opts.LauncherDir, "run")
	}

	l := &Launcher{
		fs:        opts.FS,
		opts:      opts,
		starter:   opts.Starter,
		processes: opts.Processes,
		pids:      NewPIDStore(opts.RunDir),
		log:       opts.Log,
		switches:  DefaultSwitches(),
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the configuration file. Session switches are kept.
func (l *Launcher) Reload() error {
	configPath, err := l.locateConfig()
	if err != nil {
		return err
	}

	store, err := config.Load(l.fs, configPath)
	if err != nil {
		return fmt.Errorf("failed to load launcher config: %w", err)
	}

	resolver := config.NewResolver(l.opts.MachineName, store.GetSection("Hosts", false))
	launcherSections := resolver.ApplicableSections(store, "ServerLauncher", true)
	settings := ReadSettings(launcherSections)

	macros := &generator.Macros{Env: l.opts.Env, Log: l.log}
	globals := generator.NewVariables()
	for _, sec := range launcherSections {
		globals.DefineFromSection(sec, macros)
	}

	toxikkDir, err := l.resolveToxikkDir(settings)
	if err != nil {
		return err
	}
	workshopDir := l.resolveWorkshopDir(settings, toxikkDir)
	if settings.HTTPRedirectDir != "" {
		if err := l.fs.MkdirAll(settings.HTTPRedirectDir, 0o755); err != nil {
			l.log.Warnf(logging.DestinationConfig, "failed to create HttpRedirectDir %s: %v", settings.HTTPRedirectDir, err)
		}
	}
	settings.ToxikkDir = toxikkDir
	settings.WorkshopDir = workshopDir

	for name, value := range map[string]string{
		"ToxikkDir":       toxikkDir,
		"WorkshopDir":     workshopDir,
		"HttpRedirectDir": settings.HTTPRedirectDir,
	} {
		if _, ok := globals.Get(name); !ok {
			globals.Set(name, value)
		}
	}
	l.mu.RLock()
	assignments := append([]string(nil), l.opts.Variables...)
	l.mu.RUnlock()
	for _, assignment := range assignments {
		if err := assignVariable(globals, assignment); err != nil {
			l.log.Warnf(logging.DestinationConfig, "%v", err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.configPath = configPath
	l.store = store
	l.resolver = resolver
	l.aliases = store.GetSection("SimpleNames", false)
	l.settings = settings
	l.macros = macros
	l.globals = globals
	l.toxikkDir = toxikkDir
	l.configDir = filepath.Join(toxikkDir, "UDKGame", "Config")

	l.log.Debug(logging.DestinationConfig, "Loaded launcher config", "path", configPath, "host", resolver.Host())
	return nil
}

// locateConfig returns the config path, renaming the shipped template on first use
func (l *Launcher) locateConfig() (string, error) {
	if l.opts.ConfigPath != "" {
		return l.opts.ConfigPath, nil
	}

	path := filepath.Join(l.opts.LauncherDir, ConfigFileName)
	if ok, _ := afero.Exists(l.fs, path); ok {
		return path, nil
	}

	template := filepath.Join(l.opts.LauncherDir, TemplateConfigFileName)
	if ok, _ := afero.Exists(l.fs, template); ok {
		if err := l.fs.Rename(template, path); err != nil {
			return "", fmt.Errorf("failed to rename %s: %w", template, err)
		}
		l.log.Infof(logging.DestinationConfig, "Renamed %s to %s", TemplateConfigFileName, ConfigFileName)
	}
	return path, nil
}

// gameExe returns the path of TOXIKK.exe below dir
func gameExe(dir string) string {
	return filepath.Join(dir, "Binaries", "Win32", "TOXIKK.exe")
}

// resolveToxikkDir picks the game folder: CLI override, ToxikkDir, the launcher's parent folder,
// then the steamcmd install location
func (l *Launcher) resolveToxikkDir(s Settings) (string, error) {
	type candidate struct {
		dir      string
		explicit bool
	}
	candidates := []candidate{{l.opts.ToxikkDir, true}, {s.ToxikkDir, true}}
	if l.opts.LauncherDir != "" {
		candidates = append(candidates, candidate{filepath.Dir(filepath.Clean(l.opts.LauncherDir)), false})
	}
	if s.SteamcmdDir != "" {
		candidates = append(candidates, candidate{filepath.Join(s.SteamcmdDir, "steamapps", "common", "TOXIKK"), false})
	}

	for _, c := range candidates {
		if c.dir == "" {
			continue
		}
		dir := strings.TrimRight(c.dir, `/\`)
		if ok, _ := afero.Exists(l.fs, gameExe(dir)); ok {
			return dir, nil
		}
		if c.explicit {
			l.log.Warnf(logging.DestinationConfig, "ignoring bad ToxikkDir %s", c.dir)
		}
	}
	return "", ErrGameNotFound
}

// resolveWorkshopDir picks the folder holding downloaded workshop items
func (l *Launcher) resolveWorkshopDir(s Settings, toxikkDir string) string {
	switch {
	case l.opts.WorkshopDir != "":
		return l.opts.WorkshopDir
	case s.WorkshopDir != "":
		return s.WorkshopDir
	case s.SteamcmdDir != "":
		return filepath.Join(s.SteamcmdDir, "steamapps", "workshop", "content", SteamAppID)
	default:
		return filepath.Join(toxikkDir, "..", "..", "workshop", "content", SteamAppID)
	}
}

// Store returns the parsed configuration
func (l *Launcher) Store() *config.File {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store
}

// Resolver returns the host resolver of the current configuration
func (l *Launcher) Resolver() *config.Resolver {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resolver
}

// Settings returns the resolved [ServerLauncher] settings
func (l *Launcher) Settings() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.settings
}

// ConfigPath returns the path of the loaded MyServerConfig.ini
func (l *Launcher) ConfigPath() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.configPath
}

// ConfigDir returns the game's UDKGame/Config folder
func (l *Launcher) ConfigDir() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.configDir
}

// FS returns the filesystem the launcher works on
func (l *Launcher) FS() afero.Fs {
	return l.fs
}

// Logger returns the launcher's logger
func (l *Launcher) Logger() *logging.Logger {
	return l.log
}

// Switches returns the current session switches
func (l *Launcher) Switches() Switches {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.switches
}

// SetSwitches replaces the session switches
func (l *Launcher) SetSwitches(s Switches) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.switches = s
}

// SetVariable applies an "@name@=value" or "@name@?=value" assignment to the globals.
// The assignment is remembered and re-applied after Reload.
func (l *Launcher) SetVariable(assignment string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := assignVariable(l.globals, assignment); err != nil {
		return err
	}
	l.opts.Variables = append(l.opts.Variables, assignment)
	return nil
}

// Globals returns a copy of the global variables
func (l *Launcher) Globals() *generator.Variables {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.globals.Clone()
}

// assignVariable applies one "@name@<op>value" assignment
func assignVariable(vars *generator.Variables, assignment string) error {
	idx := strings.IndexByte(assignment, '=')
	if idx <= 0 {
		return fmt.Errorf("invalid variable assignment %q", assignment)
	}
	name := strings.TrimSpace(assignment[:idx])
	ifEmpty := strings.HasSuffix(name, "?")
	name = strings.TrimSpace(strings.TrimSuffix(name, "?"))
	if !generator.IsVariableName(name) {
		return fmt.Errorf("invalid variable assignment %q", assignment)
	}

	value := strings.TrimSpace(assignment[idx+1:])
	if old, ok := vars.Get(name); ifEmpty && ok && old != "" {
		return nil
	}
	vars.Set(name, value)
	return nil
}
