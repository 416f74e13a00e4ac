package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// LaunchSpec describes a process to start
type LaunchSpec struct {
	// Exe is the program; Prefix (e.g. "wine") is run in front of it when set
	Exe    string
	Args   []string
	Dir    string
	Prefix []string
	// URL opens a URL with the desktop's handler instead of running Exe
	URL string
}

// CommandLine returns the full command line for display
func (s LaunchSpec) CommandLine() string {
	if s.URL != "" {
		return s.URL
	}
	parts := append(append([]string(nil), s.Prefix...), s.Exe)
	return strings.Join(append(parts, s.Args...), " ")
}

// ProcessStarter starts server processes
type ProcessStarter interface {
	// Start launches spec without waiting for it and returns its pid (0 for URLs)
	Start(ctx context.Context, spec LaunchSpec) (int, error)
}

// ExecStarter starts processes with os/exec
type ExecStarter struct{}

// Start implements ProcessStarter
func (ExecStarter) Start(_ context.Context, spec LaunchSpec) (int, error) {
	var cmd *exec.Cmd
	switch {
	case spec.URL != "":
		cmd = openURLCommand(spec.URL)
	case len(spec.Prefix) > 0:
		args := append(append([]string(nil), spec.Prefix[1:]...), spec.Exe)
		cmd = exec.Command(spec.Prefix[0], append(args, spec.Args...)...)
	default:
		cmd = exec.Command(spec.Exe, spec.Args...)
	}
	cmd.Dir = spec.Dir

	// the server must outlive ctx
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", spec.CommandLine(), err)
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()

	if spec.URL != "" {
		return 0, nil
	}
	return pid, nil
}

// openURLCommand returns the platform command that opens url
func openURLCommand(url string) *exec.Cmd {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		return exec.Command("open", url)
	default:
		return exec.Command("xdg-open", url)
	}
}

// ProcessTable inspects and signals running processes
type ProcessTable interface {
	// Alive reports whether pid refers to a running process
	Alive(ctx context.Context, pid int) bool
	// Terminate asks pid to exit
	Terminate(ctx context.Context, pid int) error
	// CountByName counts running processes whose executable name matches name, ignoring case
	CountByName(ctx context.Context, name string) int
}

// SystemProcesses is the ProcessTable of the local machine
type SystemProcesses struct{}

// Alive implements ProcessTable
func (SystemProcesses) Alive(ctx context.Context, pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid)) // #nosec G115 -- pids fit in int32
	if err != nil {
		return false
	}
	running, err := p.IsRunningWithContext(ctx)
	return err == nil && running
}

// Terminate implements ProcessTable
func (SystemProcesses) Terminate(ctx context.Context, pid int) error {
	p, err := process.NewProcessWithContext(ctx, int32(pid)) // #nosec G115 -- pids fit in int32
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := p.TerminateWithContext(ctx); err != nil {
		return fmt.Errorf("failed to terminate process %d: %w", pid, err)
	}
	return nil
}

// CountByName implements ProcessTable
func (SystemProcesses) CountByName(ctx context.Context, name string) int {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0
	}
	count := 0
	for _, p := range procs {
		n, err := p.NameWithContext(ctx)
		if err == nil && (strings.EqualFold(n, name) || strings.EqualFold(strings.TrimSuffix(n, ".exe"), name)) {
			count++
		}
	}
	return count
}
