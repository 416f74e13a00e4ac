// Package shell is the launcher's command interpreter.
//
// Commands and server ids can be mixed on one line, e.g. "stop 1 start 2". Without
// arguments the shell runs interactively, lists the configured servers and reloads
// MyServerConfig.ini when it changes on disk.
package shell

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	launcher "github.com/toxikkmodding/toxikk-launcher"
	"github.com/toxikkmodding/toxikk-launcher/console"
	"github.com/toxikkmodding/toxikk-launcher/logging"
)

const (
	// DefaultRedeployInterval is the minimum time between two workshop deployments before a start
	DefaultRedeployInterval = time.Minute
	// DefaultReloadDelay debounces config file change notifications
	DefaultReloadDelay = time.Second
)

// Workshop is the part of *workshop.Workshop the shell drives
type Workshop interface {
	UpdateToxikk(ctx context.Context, validate bool) error
	Clean() error
	UpdateWorkshop(ctx context.Context, force, steam, zip bool) (bool, error)
	Deploy(ctx context.Context) error
}

// Options configures a Shell
type Options struct {
	Launcher *launcher.Launcher
	// Workshop builds a workshop for the current configuration; it is called again after a reload
	Workshop func() Workshop
	In       io.Reader
	Console  *console.Console
	// RedeployInterval defaults to DefaultRedeployInterval
	RedeployInterval time.Duration
	// ReloadDelay defaults to DefaultReloadDelay
	ReloadDelay time.Duration
}

type action int

const (
	actionStart action = iota
	actionStop
	actionRestart
	actionFocus
	actionGenerate
	actionTest
)

// Shell executes launcher commands
type Shell struct {
	l                *launcher.Launcher
	newWorkshop      func() Workshop
	in               io.Reader
	con              *console.Console
	log              *logging.Logger
	redeployInterval time.Duration
	reloadDelay      time.Duration
	restarts         *restartWorker
	now              func() time.Time

	// mu serializes command execution with config reloads
	mu             sync.Mutex
	interactive    bool
	action         action
	exitCode       int

	// updateWorkshop refreshes workshop items before each start
	updateWorkshop atomic.Bool

	deployMu   sync.Mutex
	lastDeploy time.Time
}

// New creates a Shell
func New(opts Options) *Shell {
	if opts.RedeployInterval == 0 {
		opts.RedeployInterval = DefaultRedeployInterval
	}
	if opts.ReloadDelay == 0 {
		opts.ReloadDelay = DefaultReloadDelay
	}
	if opts.Console == nil {
		opts.Console = console.New(io.Discard)
	}
	s := &Shell{
		l:                opts.Launcher,
		newWorkshop:      opts.Workshop,
		in:               opts.In,
		con:              opts.Console,
		log:              opts.Launcher.Logger(),
		redeployInterval: opts.RedeployInterval,
		reloadDelay:      opts.ReloadDelay,
		now:              time.Now,
	}
	s.restarts = newRestartWorker(s.restartServer, s.log)
	return s
}

// Run executes args, or reads commands from the input when args is empty.
// The result is the number of servers reported as not running by the test command.
func (s *Shell) Run(ctx context.Context, args []string) int {
	commands := append([]string(nil), args...)
	showList := false
	if len(commands) == 0 {
		s.interactive = true
		showList = true
		if stop, err := s.watchConfig(); err != nil {
			s.log.Warnf(logging.DestinationConfig, "not watching %s for changes: %v", s.l.ConfigPath(), err)
		} else {
			defer stop()
		}
	}
	commands = append(commands, s.autoExecCommands()...)

	var lines <-chan string
	if s.in != nil {
		lines = readLines(s.in)
	}

	for {
		for _, cmd := range commands {
			if ctx.Err() != nil {
				break
			}
			s.ProcessCommand(ctx, cmd)
		}

		s.mu.Lock()
		interactive := s.interactive
		s.action = actionStart
		s.mu.Unlock()
		if !interactive || ctx.Err() != nil {
			break
		}

		if showList {
			s.mu.Lock()
			s.listConfigurations(ctx)
			s.mu.Unlock()
			showList = false
		}
		s.showPrompt()

		select {
		case <-ctx.Done():
			commands = nil
		case line, ok := <-lines:
			if !ok {
				s.restarts.Wait()
				return s.ExitCode()
			}
			commands = strings.Fields(line)
		}
	}

	s.restarts.Wait()
	return s.ExitCode()
}

// autoExecCommands returns the commands enabled in [ServerLauncher]
func (s *Shell) autoExecCommands() []string {
	settings := s.l.Settings()
	var commands []string
	if settings.UpdateToxikk {
		commands = append(commands, "ut")
	}
	if settings.CleanWorkshop {
		commands = append(commands, "cw")
	}
	s.updateWorkshop.Store(settings.UpdateWorkshop)
	if settings.UpdateWorkshop {
		commands = append(commands, "uw")
	}
	if settings.SyncWorkshop {
		commands = append(commands, "sw")
	}
	if settings.ShowCommand {
		commands = append(commands, "showcommand=1")
	}
	return commands
}

// readLines delivers the lines of r until it ends
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func (s *Shell) showPrompt() {
	s.con.Write("\n^FCommand^7(s) [^Fhelp^7, ^Flist^7, ^Fquit^7, ...] or ^Bserver ID^7(s): ")
}

// ExitCode returns the number of servers the last test command found not running
func (s *Shell) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}
