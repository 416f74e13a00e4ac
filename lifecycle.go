package launcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/toxikkmodding/toxikk-launcher/logging"
)

// LaunchSpec builds the process description for a generated profile
func (l *Launcher) LaunchSpec(g *Generated) LaunchSpec {
	if g.Client {
		return LaunchSpec{URL: "steam://rungameid/" + SteamAppID}
	}

	l.mu.RLock()
	toxikkDir, settings, switches := l.toxikkDir, l.settings, l.switches
	l.mu.RUnlock()

	url := g.Map
	if g.Dedicated {
		url += "?dedicated=true"
	} else {
		url += "?listen=true"
	}
	if switches.Lan && !strings.Contains(strings.ToLower(g.Options), "?bislanmatch=") {
		url += "?bIsLanMatch=true"
	}
	url += g.Options

	var args []string
	if g.Dedicated {
		args = append(args, "server")
	}
	args = append(args, url)
	args = append(args, strings.Fields(g.CmdLine)...)

	exe := gameExe(toxikkDir)
	return LaunchSpec{
		Exe:    exe,
		Args:   args,
		Dir:    filepath.Dir(exe),
		Prefix: strings.Fields(settings.LaunchPrefix),
	}
}

// StartServer generates profile id and starts it. The client profile opens the game through Steam.
func (l *Launcher) StartServer(ctx context.Context, id string) error {
	profile, err := l.Profile(ctx, id)
	if err != nil {
		return err
	}
	if profile.Running {
		return fmt.Errorf("%s (pid %d): %w", profile.Section, profile.PID, ErrAlreadyRunning)
	}

	l.log.Infof(logging.DestinationProcess, "Starting %s", profile.Name)
	generated, err := l.Generate(id)
	if err != nil {
		return err
	}

	spec := l.LaunchSpec(generated)
	if l.Switches().ShowCommand || l.Settings().ShowCommand {
		l.log.Infof(logging.DestinationProcess, "starting %s", spec.CommandLine())
	}

	pid, err := l.starter.Start(ctx, spec)
	if err != nil {
		return fmt.Errorf("couldn't start TOXIKK for %s: %w", profile.Section, err)
	}
	if generated.Client || pid == 0 {
		return nil
	}

	if err := l.pids.Write(ctx, profile.Section, pid); err != nil {
		l.log.Warnf(logging.DestinationProcess, "%v", err)
	}
	l.log.Debug(logging.DestinationProcess, "Server started", "profile", profile.Section, "pid", pid)
	return nil
}

// StopServer terminates the process of profile id
func (l *Launcher) StopServer(ctx context.Context, id string) error {
	profile, err := l.Profile(ctx, id)
	if err != nil {
		return err
	}
	if !profile.Running {
		if profile.PID != 0 {
			// stale marker of a process that already exited
			_ = l.pids.Remove(ctx, profile.Section)
		}
		return fmt.Errorf("%s: %w", profile.Section, ErrNotRunning)
	}

	l.log.Infof(logging.DestinationProcess, "Stopping %s", profile.Name)
	if err := l.processes.Terminate(ctx, profile.PID); err != nil {
		return err
	}
	return l.pids.Remove(ctx, profile.Section)
}

// RestartServer stops profile id when it is running and starts it again
func (l *Launcher) RestartServer(ctx context.Context, id string) error {
	if err := l.StopServer(ctx, id); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return l.StartServer(ctx, id)
}

// FocusServer brings the console window of profile id to the foreground
func (l *Launcher) FocusServer(ctx context.Context, id string) error {
	profile, err := l.Profile(ctx, id)
	if err != nil {
		return err
	}
	if !profile.Running {
		return fmt.Errorf("%s: %w", profile.Section, ErrNotRunning)
	}
	return focusProcessWindow(profile.PID)
}

// TestServers reports every profile in ids as running or not and returns the number not running
func (l *Launcher) TestServers(ctx context.Context, ids []string) int {
	notRunning := 0
	for _, id := range ids {
		profile, err := l.Profile(ctx, id)
		if err != nil {
			l.log.Errorf(logging.DestinationProcess, "%v", err)
			notRunning++
			continue
		}
		if profile.Running {
			l.log.Infof(logging.DestinationProcess, "%s is running", profile.Section)
		} else {
			l.log.Infof(logging.DestinationProcess, "%s is ^CNOT^7 running", profile.Section)
			notRunning++
		}
	}
	return notRunning
}

// ServerIDs returns the ids of all server profiles, excluding the client
func (l *Launcher) ServerIDs() []string {
	var ids []string
	for _, id := range l.profileIDs() {
		if id != "0" {
			ids = append(ids, id)
		}
	}
	return ids
}

// GameRunning reports whether any TOXIKK process runs on this machine
func (l *Launcher) GameRunning(ctx context.Context) bool {
	return l.processes.CountByName(ctx, "TOXIKK") > 0
}
