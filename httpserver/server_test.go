package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	launcher "github.com/toxikkmodding/toxikk-launcher"
	"github.com/toxikkmodding/toxikk-launcher/generator"
	"github.com/toxikkmodding/toxikk-launcher/logging"
	"github.com/toxikkmodding/toxikk-launcher/ratelimit"
)

// fakeServers is an in-memory launcher with profiles 1 and 2
type fakeServers struct {
	mu      sync.Mutex
	running map[string]bool
	noMap   map[string]bool
	actions []string
}

func newFakeServers() *fakeServers {
	return &fakeServers{running: make(map[string]bool), noMap: make(map[string]bool)}
}

func (f *fakeServers) profile(id string) (launcher.Profile, error) {
	if id != "1" && id != "2" {
		return launcher.Profile{}, fmt.Errorf("%w: %s", launcher.ErrUnknownProfile, id)
	}
	p := launcher.Profile{ID: id, Section: "DedicatedServer" + id, Name: "Server " + id, Running: f.running[id]}
	if p.Running {
		p.PID = 4000 + int(id[0]-'0')
	}
	return p, nil
}

func (f *fakeServers) Profiles(context.Context) []launcher.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []launcher.Profile
	for _, id := range []string{"1", "2"} {
		p, _ := f.profile(id)
		out = append(out, p)
	}
	return out
}

func (f *fakeServers) Profile(_ context.Context, id string) (launcher.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile(id)
}

func (f *fakeServers) StartServer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.profile(id)
	if err != nil {
		return err
	}
	if p.Running {
		return fmt.Errorf("%s: %w", p.Section, launcher.ErrAlreadyRunning)
	}
	if f.noMap[id] {
		return fmt.Errorf("%s: %w", p.Section, generator.ErrNoMap)
	}
	f.running[id] = true
	f.actions = append(f.actions, "start "+id)
	return nil
}

func (f *fakeServers) StopServer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.profile(id)
	if err != nil {
		return err
	}
	if !p.Running {
		return fmt.Errorf("%s: %w", p.Section, launcher.ErrNotRunning)
	}
	delete(f.running, id)
	f.actions = append(f.actions, "stop "+id)
	return nil
}

func (f *fakeServers) RestartServer(ctx context.Context, id string) error {
	if err := f.StopServer(ctx, id); err != nil && !errors.Is(err, launcher.ErrNotRunning) {
		return err
	}
	return f.StartServer(ctx, id)
}

func (f *fakeServers) Generate(id string) (*launcher.Generated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.profile(id)
	if err != nil {
		return nil, err
	}
	f.actions = append(f.actions, "generate "+id)
	return &launcher.Generated{
		Artifacts: &generator.Artifacts{
			Map:     "CC-Foundation",
			Options: "?Port=7777",
			CmdLine: "-configsubdir=" + p.Section,
			Files:   []string{"UDKGame.ini"},
		},
		Section:   p.Section,
		TargetDir: "/toxikk/UDKGame/Config/" + p.Section,
		Dedicated: true,
	}, nil
}

func (f *fakeServers) Actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.actions...)
	sort.Strings(out)
	return out
}

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(&logging.Config{
		OutputPath:   "stderr",
		MinVerbosity: logging.VerbosityError, // Use Error level to reduce test output
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func newTestServer(t *testing.T, limits *ratelimit.Manager) (*Server, *fakeServers) {
	t.Helper()
	servers := newFakeServers()
	s, err := NewServer(Config{
		ListenAddr: "127.0.0.1:0",
		Servers:    servers,
		SigningKey: testKey,
		RateLimits: limits,
		Logger:     newTestLogger(t),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s, servers
}

func TestNewServerRequiresKeyAndLauncher(t *testing.T) {
	if _, err := NewServer(Config{Servers: newFakeServers()}); err == nil {
		t.Error("NewServer without signing key succeeded")
	}
	if _, err := NewServer(Config{SigningKey: testKey}); err == nil {
		t.Error("NewServer without launcher succeeded")
	}
}

// TestServerShutdown tests the graceful shutdown of the server
func TestServerShutdown(t *testing.T) {
	s, _ := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ln)
	}()

	url := "http://" + ln.Addr().String() + "/healthz"
	var resp *http.Response
	for range 50 {
		resp, err = http.Get(url) //nolint:noctx // test request
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve = %v, want nil after Shutdown", err)
		}
	case <-ctx.Done():
		t.Error("Serve did not return within timeout")
	}
}
