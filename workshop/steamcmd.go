package workshop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/afero"
	"github.com/toxikkmodding/toxikk-launcher/config"
	"github.com/toxikkmodding/toxikk-launcher/logging"
)

// steamcmdMaxTries includes the first attempt
const steamcmdMaxTries = 6

// SteamcmdRunner runs steamcmd
type SteamcmdRunner interface {
	// Run executes exe with args, streams its output to out and returns the exit code
	Run(ctx context.Context, exe string, args []string, out io.Writer) (int, error)
}

// ExecRunner runs steamcmd as a child process attached to the terminal's input,
// so that steamcmd can prompt for a password or Steam Guard code
type ExecRunner struct{}

// Run implements SteamcmdRunner
func (ExecRunner) Run(ctx context.Context, exe string, args []string, out io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("failed to run steamcmd: %w", err)
	}
	return 0, nil
}

// SteamcmdError reports a non-zero steamcmd exit code
type SteamcmdError struct {
	ExitCode int
}

func (e *SteamcmdError) Error() string {
	return fmt.Sprintf("steamcmd exited with code %08x", uint32(e.ExitCode)) // #nosec G115 -- display only
}

// Retryable reports whether steamcmd may succeed when run again.
// With cached credentials steamcmd randomly fails with code 5 while fetching license information.
func (e *SteamcmdError) Retryable() bool {
	return e.ExitCode&0xFFFF == 5
}

// steamcmdExe locates the steamcmd executable
func (w *Workshop) steamcmdExe() string {
	if w.cfg.SteamcmdDir == "" {
		return ""
	}
	for _, name := range []string{"steamcmd.exe", "steamcmd.sh", "steamcmd"} {
		path := filepath.Join(w.cfg.SteamcmdDir, name)
		if ok, _ := afero.Exists(w.fs, path); ok {
			return path
		}
	}
	return ""
}

// mostSpecificFirst iterates the [SteamWorkshop] sections in reverse order
func (w *Workshop) mostSpecificFirst() []*config.Section {
	out := make([]*config.Section, 0, len(w.cfg.Sections))
	for i := len(w.cfg.Sections) - 1; i >= 0; i-- {
		out = append(out, w.cfg.Sections[i])
	}
	return out
}

// loginArgs returns the +login arguments, or false when no User is configured.
// Without a password the cached ConnectCache of steamcmd's config.vdf is removed first.
func (w *Workshop) loginArgs(exe string) ([]string, bool) {
	var user, pass string
	for _, sec := range w.mostSpecificFirst() {
		if strings.TrimSpace(user) == "" {
			user = sec.GetString("User", "")
		}
		if strings.TrimSpace(pass) == "" {
			pass = sec.GetString("Password", "")
		}
	}
	user, pass = strings.TrimSpace(user), strings.TrimSpace(pass)
	if user == "" {
		return nil, false
	}

	if pass == "" {
		vdf := filepath.Join(filepath.Dir(exe), "config", "config.vdf")
		if err := scrubConnectCache(w.fs, vdf); err != nil {
			w.log.Warnf(logging.DestinationWorkshop, "failed to clear cached steam login: %v", err)
		}
		return []string{"+login", user}, true
	}
	return []string{"+login", user, pass}, true
}

// scrubConnectCache empties the "ConnectCache" block of a steamcmd config.vdf
func scrubConnectCache(fsys afero.Fs, path string) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	text := string(data)
	key := strings.Index(text, `"ConnectCache"`)
	if key < 0 {
		return nil
	}
	open := strings.IndexByte(text[key:], '{')
	if open < 0 {
		return nil
	}
	open += key
	eol := strings.IndexByte(text[open:], '\n')
	if eol < 0 {
		return nil
	}
	start := open + eol + 1
	closing := strings.IndexByte(text[start:], '}')
	if closing < 0 {
		return nil
	}
	end := strings.LastIndexByte(text[:start+closing], '\n') + 1
	if end <= start {
		return nil
	}

	return afero.WriteFile(fsys, path, []byte(text[:start]+text[end:]), 0o644)
}

// runSteamcmd logs in, runs commands and quits. Exit code 5 is retried with exponential backoff.
func (w *Workshop) runSteamcmd(ctx context.Context, commands []string, installDir string) error {
	exe := w.steamcmdExe()
	if exe == "" {
		w.log.Warn(logging.DestinationWorkshop, "steamcmd not found, skipping updates.")
		return nil
	}
	login, ok := w.loginArgs(exe)
	if !ok {
		w.log.Warn(logging.DestinationWorkshop, "User not configured in [SteamWorkshop], skipping updates.")
		return nil
	}

	args := append([]string(nil), login...)
	if installDir != "" {
		args = append(args, "+force_install_dir", installDir)
	}
	args = append(args, commands...)
	args = append(args, "+quit")

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = w.cfg.RetryInterval
	expBackoff.MaxInterval = 30 * w.cfg.RetryInterval
	expBackoff.Reset()

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		f := newOutputFormatter(w.cfg.Out)
		code, err := w.cfg.Runner.Run(ctx, exe, args, f)
		f.Flush()
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if code == 0 {
			w.log.Info(logging.DestinationWorkshop, "Steam update complete.")
			return struct{}{}, nil
		}

		serr := &SteamcmdError{ExitCode: code}
		w.log.Warnf(logging.DestinationWorkshop, "Steam update completed with exit code %08x (attempt %d/%d).",
			uint32(code), attempt, steamcmdMaxTries) // #nosec G115 -- display only
		if !serr.Retryable() {
			return struct{}{}, backoff.Permanent(serr)
		}
		return struct{}{}, serr
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(steamcmdMaxTries),
		backoff.WithNotify(func(_ error, d time.Duration) {
			w.log.Debugf(logging.DestinationWorkshop, "Retrying steamcmd after %v", d)
		}),
	)
	return err
}

// UpdateToxikk installs or updates the game with steamcmd, on the BetaName branch when configured
func (w *Workshop) UpdateToxikk(ctx context.Context, validate bool) error {
	w.log.Info(logging.DestinationWorkshop, "Updating TOXIKK...")

	commands := []string{"+app_update", strconv.Itoa(AppID)}
	for _, sec := range w.mostSpecificFirst() {
		beta := strings.TrimSpace(sec.GetString("BetaName", ""))
		if beta == "" {
			continue
		}
		commands = append(commands, "-beta", beta)
		if pass := strings.TrimSpace(sec.GetString("BetaPassword", "")); pass != "" {
			commands = append(commands, "-betapassword", pass)
		}
		break
	}
	if validate {
		commands = append(commands, "validate")
	}
	return w.runSteamcmd(ctx, commands, w.cfg.ToxikkDir)
}

// downloadSteamItems fetches the Steam workshop items of todo in one steamcmd session
func (w *Workshop) downloadSteamItems(ctx context.Context, todo []Item) error {
	var commands []string
	for _, it := range todo {
		if it.WorkshopID != 0 {
			commands = append(commands, "+workshop_download_item", strconv.Itoa(AppID), strconv.FormatInt(it.WorkshopID, 10))
		}
	}
	if len(commands) == 0 {
		return nil
	}

	w.log.Infof(logging.DestinationWorkshop, "Updating %d Steam workshop items...", len(commands)/3)
	return w.runSteamcmd(ctx, commands, steamRoot(w.cfg.WorkshopDir))
}

// steamRoot returns the install root of a <root>/steamapps/workshop/content/<appid> folder
func steamRoot(workshopDir string) string {
	dir := filepath.Clean(workshopDir)
	for range 4 {
		dir = filepath.Dir(dir)
	}
	return dir
}

var (
	downloadedItem = regexp.MustCompile(`(Downloaded item \d+ to .*? bytes\) ?)|(\)\.)`)
	failedItem     = regexp.MustCompile(`Download item \d+ failed \(`)
)

// outputFormatter puts an item's id and download status on one line and drops file paths
type outputFormatter struct {
	out io.Writer
	buf []byte
}

func newOutputFormatter(out io.Writer) *outputFormatter {
	return &outputFormatter{out: out}
}

func (f *outputFormatter) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)

	// the password prompt ends without a newline
	if i := bytes.Index(f.buf, []byte("password:")); i >= 0 {
		_, _ = io.WriteString(f.out, string(f.buf[:i])+"\nPassword: ")
		f.buf = append([]byte(nil), f.buf[i+len("password:"):]...)
	}

	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		line := string(f.buf[:i])
		f.buf = f.buf[i+1:]
		f.writeLine(line)
	}
	return len(p), nil
}

func (f *outputFormatter) writeLine(line string) {
	line = strings.ReplaceAll(line, "\r", "")
	line = failedItem.ReplaceAllString(line, "")
	line = strings.TrimRight(downloadedItem.ReplaceAllString(line, ""), " ")
	if !strings.HasSuffix(line, "...") {
		line += "\n"
	}
	_, _ = io.WriteString(f.out, line)
}

// Flush writes a trailing partial line
func (f *outputFormatter) Flush() {
	if len(f.buf) > 0 {
		f.writeLine(string(f.buf))
		f.buf = nil
	}
}
