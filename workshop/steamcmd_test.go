package workshop

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

// fakeRunner returns the queued exit codes in order, then 0
type fakeRunner struct {
	mu     sync.Mutex
	codes  []int
	output string
	calls  [][]string
}

func (r *fakeRunner) Run(_ context.Context, _ string, args []string, out io.Writer) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, args)
	if r.output != "" {
		_, _ = io.WriteString(out, r.output)
	}
	if len(r.codes) == 0 {
		return 0, nil
	}
	code := r.codes[0]
	r.codes = r.codes[1:]
	return code, nil
}

func newSteamcmdWorkshop(t *testing.T, sections string, runner *fakeRunner) (*Workshop, afero.Fs, *bytes.Buffer) {
	t.Helper()
	w, fsys, _ := newTestWorkshop(t, sections)
	writeTestFile(t, fsys, "/steamcmd/steamcmd.exe", "")
	out := &bytes.Buffer{}
	w.cfg.Runner = runner
	w.cfg.Out = out
	w.cfg.RetryInterval = time.Millisecond
	return w, fsys, out
}

func TestUpdateToxikk(t *testing.T) {
	runner := &fakeRunner{}
	w, _, _ := newSteamcmdWorkshop(t, `
[SteamWorkshop]
User=bob
Password=secret
BetaName=public

[SteamWorkshop:host1]
BetaName=beta
BetaPassword=pw
`, runner)

	if err := w.UpdateToxikk(context.Background(), true); err != nil {
		t.Fatalf("UpdateToxikk failed: %v", err)
	}

	want := [][]string{{
		"+login", "bob", "secret",
		"+force_install_dir", testToxikkDir,
		"+app_update", "324810", "-beta", "beta", "-betapassword", "pw", "validate",
		"+quit",
	}}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Errorf("steamcmd args mismatch (-want +got):\n%s", diff)
	}
}

func TestSteamcmdRetriesExitCode5(t *testing.T) {
	runner := &fakeRunner{codes: []int{5, 0x10005, 0}}
	w, _, _ := newSteamcmdWorkshop(t, "[SteamWorkshop]\nUser=bob\n", runner)

	if err := w.UpdateToxikk(context.Background(), false); err != nil {
		t.Fatalf("UpdateToxikk failed: %v", err)
	}
	if len(runner.calls) != 3 {
		t.Errorf("steamcmd ran %d times, want 3", len(runner.calls))
	}
}

func TestSteamcmdPermanentFailure(t *testing.T) {
	runner := &fakeRunner{codes: []int{2}}
	w, _, _ := newSteamcmdWorkshop(t, "[SteamWorkshop]\nUser=bob\n", runner)

	err := w.UpdateToxikk(context.Background(), false)
	var serr *SteamcmdError
	if !errors.As(err, &serr) {
		t.Fatalf("UpdateToxikk error = %v, want *SteamcmdError", err)
	}
	if serr.ExitCode != 2 || serr.Retryable() {
		t.Errorf("ExitCode = %d, Retryable = %v, want 2, false", serr.ExitCode, serr.Retryable())
	}
	if len(runner.calls) != 1 {
		t.Errorf("steamcmd ran %d times, want 1", len(runner.calls))
	}
}

func TestSteamcmdSkippedWithoutUserOrExe(t *testing.T) {
	runner := &fakeRunner{}
	w, _, _ := newSteamcmdWorkshop(t, "[SteamWorkshop]\nItem=111\n", runner)
	if err := w.UpdateToxikk(context.Background(), false); err != nil {
		t.Fatalf("UpdateToxikk failed: %v", err)
	}

	w2, _, buf := newTestWorkshop(t, "[SteamWorkshop]\nUser=bob\n")
	w2.cfg.Runner = runner
	if err := w2.UpdateToxikk(context.Background(), false); err != nil {
		t.Fatalf("UpdateToxikk failed: %v", err)
	}

	if len(runner.calls) != 0 {
		t.Errorf("steamcmd ran %d times, want 0", len(runner.calls))
	}
	if !strings.Contains(buf.String(), "steamcmd not found") {
		t.Errorf("expected a steamcmd-not-found warning, got %q", buf.String())
	}
}

func TestDownloadSteamItems(t *testing.T) {
	runner := &fakeRunner{}
	w, fsys, _ := newSteamcmdWorkshop(t, "[SteamWorkshop]\nUser=bob\nItem=111\nItem=222\nItem=DevContent\n", runner)
	writeTestFile(t, fsys, testWorkshopDir+"/111/Published/x.u", "")

	needed, err := w.UpdateWorkshop(context.Background(), false, true, false)
	if err != nil {
		t.Fatalf("UpdateWorkshop failed: %v", err)
	}
	if !needed {
		t.Error("UpdateWorkshop should report a required download")
	}

	want := [][]string{{
		"+login", "bob",
		"+force_install_dir", "/steam",
		"+workshop_download_item", "324810", "222",
		"+quit",
	}}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Errorf("steamcmd args mismatch (-want +got):\n%s", diff)
	}
}

func TestScrubConnectCache(t *testing.T) {
	fsys := afero.NewMemMapFs()
	vdf := "\"InstallConfigStore\"\n{\n\t\"Software\"\n\t{\n\t}\n\t\"ConnectCache\"\n\t{\n\t\t\"abc\"\t\t\"def\"\n\t\t\"ghi\"\t\t\"jkl\"\n\t}\n}\n"
	writeTestFile(t, fsys, "/steamcmd/config/config.vdf", vdf)

	if err := scrubConnectCache(fsys, "/steamcmd/config/config.vdf"); err != nil {
		t.Fatalf("scrubConnectCache failed: %v", err)
	}
	data, _ := afero.ReadFile(fsys, "/steamcmd/config/config.vdf")
	want := "\"InstallConfigStore\"\n{\n\t\"Software\"\n\t{\n\t}\n\t\"ConnectCache\"\n\t{\n\t}\n}\n"
	if string(data) != want {
		t.Errorf("config.vdf = %q, want %q", data, want)
	}

	if err := scrubConnectCache(fsys, "/missing/config.vdf"); err != nil {
		t.Errorf("scrubConnectCache on a missing file = %v, want nil", err)
	}
}

func TestLoginWithoutPasswordScrubsCache(t *testing.T) {
	runner := &fakeRunner{}
	w, fsys, _ := newSteamcmdWorkshop(t, "[SteamWorkshop]\nUser=bob\n", runner)
	writeTestFile(t, fsys, "/steamcmd/config/config.vdf", "\"ConnectCache\"\n{\n\t\"a\"\t\"b\"\n}\n")

	if err := w.UpdateToxikk(context.Background(), false); err != nil {
		t.Fatalf("UpdateToxikk failed: %v", err)
	}
	data, _ := afero.ReadFile(fsys, "/steamcmd/config/config.vdf")
	if strings.Contains(string(data), `"a"`) {
		t.Errorf("cached login should have been removed: %q", data)
	}
}

func TestOutputFormatter(t *testing.T) {
	var out bytes.Buffer
	f := newOutputFormatter(&out)
	input := "Downloading item 111 ...\r\nSuccess. Downloaded item 111 to \"C:\\steam\\111\" (1024 bytes) \r\n" +
		"Downloading item 222 ...\r\nERROR! Download item 222 failed (Failure).\r\nLogging in user 'bob' to Steam Public..."

	// split writes exercise line buffering
	_, _ = f.Write([]byte(input[:30]))
	_, _ = f.Write([]byte(input[30:]))
	f.Flush()

	want := "Downloading item 111 ...Success.\nDownloading item 222 ...ERROR! Failure\nLogging in user 'bob' to Steam Public..."
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestOutputFormatterPasswordPrompt(t *testing.T) {
	var out bytes.Buffer
	f := newOutputFormatter(&out)
	_, _ = f.Write([]byte("Logging in user 'bob' to Steam Public...\npassword: "))

	if !strings.HasSuffix(out.String(), "\nPassword: ") {
		t.Errorf("output = %q, want the password prompt", out.String())
	}
}

func TestSteamRoot(t *testing.T) {
	if got := steamRoot(testWorkshopDir); got != "/steam" {
		t.Errorf("steamRoot = %q, want /steam", got)
	}
}
