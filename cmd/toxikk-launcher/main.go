// Package main is the TOXIKK dedicated server launcher.
//
// Without commands it runs an interactive shell. Commands and server ids given on the
// command line are executed in order, e.g.:
//
//	toxikk-launcher stop 1 start 1 2
//	toxikk-launcher --listen-api 127.0.0.1:7780 @MaxPlayers@=12 start 3
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	launcher "github.com/toxikkmodding/toxikk-launcher"
	"github.com/toxikkmodding/toxikk-launcher/config"
	"github.com/toxikkmodding/toxikk-launcher/console"
	"github.com/toxikkmodding/toxikk-launcher/httpserver"
	"github.com/toxikkmodding/toxikk-launcher/logging"
	"github.com/toxikkmodding/toxikk-launcher/ratelimit"
	"github.com/toxikkmodding/toxikk-launcher/shell"
	"github.com/toxikkmodding/toxikk-launcher/workshop"
)

// options are the command line flags
type options struct {
	launcherDir string
	configPath  string
	toxikkDir   string
	workshopDir string
	runDir      string
	listenAPI   string
	verbose     bool
	tokenFor    string
	tokenTTL    time.Duration
}

func main() {
	os.Exit(run())
}

func run() int {
	flagArgs, commands := splitArgs(os.Args[1:])

	opts := options{}
	flags := pflag.NewFlagSet("toxikk-launcher", pflag.ContinueOnError)
	flags.StringVar(&opts.launcherDir, "launcherdir", executableDir(), "Folder with MyServerConfig.ini")
	flags.StringVar(&opts.configPath, "config", "", "Path of MyServerConfig.ini (default <launcherdir>/MyServerConfig.ini)")
	flags.StringVar(&opts.toxikkDir, "toxikkdir", "", "TOXIKK game folder, overrides ToxikkDir")
	flags.StringVar(&opts.workshopDir, "workshopdir", "", "steamcmd workshop content folder, overrides WorkshopDir")
	flags.StringVar(&opts.runDir, "rundir", "", "Folder for pid files (default <launcherdir>/run)")
	flags.StringVar(&opts.listenAPI, "listen-api", "", "Serve the control API on this address, overrides ApiListen")
	flags.BoolVar(&opts.verbose, "verbose", false, "More log output")
	flags.StringVar(&opts.tokenFor, "api-token", "", "Print a control API token for this user and exit")
	flags.DurationVar(&opts.tokenTTL, "api-token-ttl", 30*24*time.Hour, "Validity of tokens printed with --api-token")
	if err := flags.Parse(flagArgs); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := launch(ctx, opts, commands)
	if err != nil {
		fmt.Fprintf(os.Stderr, "toxikk-launcher: %v\n", err)
		return 1
	}
	return code
}

// splitArgs separates "--flag" arguments from shell commands. Single-dash arguments
// like "-1" or "-v" are commands.
func splitArgs(args []string) (flagArgs, commands []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			commands = append(commands, arg)
			continue
		}
		flagArgs = append(flagArgs, arg)
		// "--flag value" form for flags that take a value
		if !strings.Contains(arg, "=") && takesValue(arg) && i+1 < len(args) {
			i++
			flagArgs = append(flagArgs, args[i])
		}
	}
	return flagArgs, commands
}

func takesValue(flag string) bool {
	switch strings.TrimPrefix(flag, "--") {
	case "verbose", "help":
		return false
	}
	return true
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// launch loads the configuration and runs the shell
func launch(ctx context.Context, opts options, commands []string) (int, error) {
	fs := afero.NewOsFs()
	con := console.New(os.Stdout)

	// commands may set variables that the first Reload already needs
	var variables, rest []string
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, "@") && strings.Contains(cmd, "=") {
			variables = append(variables, cmd)
			continue
		}
		rest = append(rest, cmd)
	}

	launcherSection := preloadLauncherSection(fs, opts)
	logger, err := logging.FromSection(launcherSection, con)
	if err != nil {
		return 0, fmt.Errorf("failed to configure logging: %w", err)
	}
	if opts.verbose {
		logger.SetVerbosity(logging.VerbosityDebug)
	}

	l, err := launcher.Load(launcher.Options{
		LauncherDir: opts.launcherDir,
		ConfigPath:  opts.configPath,
		ToxikkDir:   opts.toxikkDir,
		WorkshopDir: opts.workshopDir,
		RunDir:      opts.runDir,
		Variables:   variables,
		FS:          fs,
		Log:         logger,
	})
	if err != nil {
		return 0, err
	}

	settings := l.Settings()
	keyPath := settings.APIKeyFile
	if keyPath == "" {
		keyPath = filepath.Join(opts.launcherDir, "api.key")
	}

	if opts.tokenFor != "" {
		key, err := httpserver.LoadOrCreateSigningKey(fs, keyPath)
		if err != nil {
			return 0, err
		}
		token, err := httpserver.GenerateToken(opts.tokenFor, key, opts.tokenTTL)
		if err != nil {
			return 0, err
		}
		fmt.Println(token)
		return 0, nil
	}

	limits := ratelimit.ConfigFromSection(l.Resolver().FirstApplicable(l.Store(), "ServerLauncher"))

	ledger, err := workshop.OpenLedger(filepath.Join(opts.launcherDir, "workshop.db"))
	if err != nil {
		logger.Warnf(logging.DestinationWorkshop, "workshop ledger disabled: %v", err)
		ledger = nil
	} else {
		defer ledger.Close()
	}

	newWorkshop := func() shell.Workshop {
		cfg := l.WorkshopConfig()
		cfg.Downloads = limits.Downloads()
		cfg.Ledger = ledger
		return workshop.New(cfg)
	}

	listen := opts.listenAPI
	if listen == "" {
		listen = settings.APIListen
	}
	if listen != "" {
		api, err := startAPI(l, fs, listen, keyPath, limits, logger)
		if err != nil {
			return 0, err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := api.Shutdown(shutdownCtx); err != nil {
				logger.Warnf(logging.DestinationHTTP, "control API shutdown: %v", err)
			}
		}()
	}

	sh := shell.New(shell.Options{
		Launcher: l,
		Workshop: newWorkshop,
		In:       os.Stdin,
		Console:  con,
	})
	return sh.Run(ctx, rest), nil
}

// preloadLauncherSection reads [ServerLauncher] before the launcher exists so that
// logging is configured for the first load
func preloadLauncherSection(fs afero.Fs, opts options) *config.Section {
	path := opts.configPath
	if path == "" {
		path = filepath.Join(opts.launcherDir, launcher.ConfigFileName)
		if ok, _ := afero.Exists(fs, path); !ok {
			path = filepath.Join(opts.launcherDir, launcher.TemplateConfigFileName)
		}
	}
	store, err := config.Load(fs, path)
	if err != nil {
		return nil
	}
	resolver := config.NewResolver(config.MachineName(), store.GetSection("Hosts", false))
	return resolver.FirstApplicable(store, "ServerLauncher")
}

// startAPI serves the control API in the background
func startAPI(l *launcher.Launcher, fs afero.Fs, listen, keyPath string, limits *ratelimit.Manager, logger *logging.Logger) (*httpserver.Server, error) {
	key, err := httpserver.LoadOrCreateSigningKey(fs, keyPath)
	if err != nil {
		return nil, err
	}
	api, err := httpserver.NewServer(httpserver.Config{
		ListenAddr: listen,
		Servers:    l,
		SigningKey: key,
		RateLimits: limits,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create control API: %w", err)
	}
	go func() {
		if err := api.Start(); err != nil {
			logger.Errorf(logging.DestinationHTTP, "control API stopped: %v", err)
		}
	}()
	return api, nil
}
