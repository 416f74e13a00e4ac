package workshop

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/toxikkmodding/toxikk-launcher/ratelimit"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return buf.Bytes()
}

type zipServer struct {
	*httptest.Server
	gets     atomic.Int32
	modified atomic.Int64
}

func (s *zipServer) lastModified() time.Time {
	return time.Unix(s.modified.Load(), 0).UTC()
}

func newZipServer(t *testing.T, archive []byte) *zipServer {
	t.Helper()
	s := &zipServer{}
	s.modified.Store(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix())
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.zip" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Last-Modified", s.lastModified().Format(http.TimeFormat))
		if r.Method == http.MethodHead {
			return
		}
		s.gets.Add(1)
		_, _ = w.Write(archive)
	}))
	t.Cleanup(s.Close)
	return s
}

func TestDownloadZipItem(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"MyMod/Published/CookedPC/MyMod.u": "code",
		"MyMod/Config/UDKMyMod.ini":        "[MyMod]",
	})
	srv := newZipServer(t, archive)

	w, fsys, _ := newTestWorkshop(t, "[SteamWorkshop]\nItem="+srv.URL+"/files/MyMod.zip\n")
	w.cfg.Downloads = ratelimit.NewByteLimiter(1 << 20)
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenLedger failed: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	w.cfg.Ledger = ledger

	needed, err := w.UpdateWorkshop(context.Background(), false, false, true)
	if err != nil {
		t.Fatalf("UpdateWorkshop failed: %v", err)
	}
	if !needed {
		t.Error("UpdateWorkshop should report a required download")
	}

	dir := filepath.Join(testWorkshopDir, "MyMod")
	if ok, _ := afero.Exists(fsys, filepath.Join(dir, "Published", "CookedPC", "MyMod.u")); !ok {
		t.Error("expected the flattened package in the item folder")
	}
	if ok, _ := afero.DirExists(fsys, filepath.Join(dir, "MyMod")); ok {
		t.Error("duplicate top folder should have been flattened")
	}
	if ok, _ := afero.Exists(fsys, dir+".zip"); ok {
		t.Error("archive should have been removed")
	}
	info, err := fsys.Stat(dir)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !info.ModTime().Equal(srv.lastModified()) {
		t.Errorf("folder time = %v, want %v", info.ModTime(), srv.lastModified())
	}

	rec, ok, err := ledger.Get(context.Background(), "MyMod")
	if err != nil || !ok {
		t.Fatalf("ledger.Get = %v, %v", ok, err)
	}
	if rec.URL != srv.URL+"/files/MyMod.zip" || !rec.LastModified.Equal(srv.lastModified()) {
		t.Errorf("ledger record = %+v", rec)
	}

	// a present item is not downloaded again, a forced one is checked against Last-Modified
	if needed, _ := w.UpdateWorkshop(context.Background(), false, false, true); needed {
		t.Error("second UpdateWorkshop should not need a download")
	}
	if _, err := w.UpdateWorkshop(context.Background(), true, false, true); err != nil {
		t.Fatalf("forced UpdateWorkshop failed: %v", err)
	}
	if got := srv.gets.Load(); got != 1 {
		t.Errorf("GET requests = %d, want 1", got)
	}

	srv.modified.Add(int64(time.Hour / time.Second))
	if _, err := w.UpdateWorkshop(context.Background(), true, false, true); err != nil {
		t.Fatalf("forced UpdateWorkshop failed: %v", err)
	}
	if got := srv.gets.Load(); got != 2 {
		t.Errorf("GET requests after a remote change = %d, want 2", got)
	}
}

func TestDownloadZipItemFailure(t *testing.T) {
	srv := newZipServer(t, nil)
	w, fsys, buf := newTestWorkshop(t, "[SteamWorkshop]\nItem="+srv.URL+"/missing.zip\n")

	if _, err := w.UpdateWorkshop(context.Background(), false, false, true); err != nil {
		t.Fatalf("UpdateWorkshop failed: %v", err)
	}
	if ok, _ := afero.Exists(fsys, filepath.Join(testWorkshopDir, "missing")); ok {
		t.Error("no folder should be created for a failed download")
	}
	if !bytes.Contains(buf.Bytes(), []byte("404")) {
		t.Errorf("expected the HTTP status in the log, got %q", buf.String())
	}
}

func TestExtractZipRejectsEscapingPaths(t *testing.T) {
	fsys := afero.NewMemMapFs()
	archive := buildZip(t, map[string]string{"../evil.u": "x"})
	writeTestFile(t, fsys, "/work/Evil.zip", string(archive))

	if err := extractZip(fsys, "/work/Evil.zip", "/work/Evil", "Evil"); err == nil {
		t.Error("expected an error for a path outside the item folder")
	}
	if ok, _ := afero.Exists(fsys, "/work/evil.u"); ok {
		t.Error("file outside the item folder was written")
	}
}
