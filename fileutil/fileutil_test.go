package fileutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func readFile(t *testing.T, fsys afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		t.Fatalf("ReadFile(%s) failed: %v", path, err)
	}
	return string(data)
}

func TestCopyFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/src/a.ini", "new")

	if err := CopyFile(fsys, "/src/a.ini", "/dst/sub/a.ini", true); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	if got := readFile(t, fsys, "/dst/sub/a.ini"); got != "new" {
		t.Errorf("content = %q, want new", got)
	}

	writeFile(t, fsys, "/dst/sub/b.ini", "old")
	if err := CopyFile(fsys, "/src/a.ini", "/dst/sub/b.ini", false); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	if got := readFile(t, fsys, "/dst/sub/b.ini"); got != "old" {
		t.Errorf("content = %q, want old (no overwrite)", got)
	}

	if err := CopyFile(fsys, "/src/missing.ini", "/dst/missing.ini", true); err == nil {
		t.Error("Expected an error for a missing source")
	}
}

func TestCopyFileKeepsModTime(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/src/a.upk", "data")
	stamp := time.Date(2016, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := fsys.Chtimes("/src/a.upk", stamp, stamp); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	if err := CopyFile(fsys, "/src/a.upk", "/dst/a.upk", true); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	if !SameFile(fsys, "/src/a.upk", "/dst/a.upk") {
		t.Error("Expected copied file to match size and modification time")
	}
}

func TestMirror(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/item/Maps/CC-Foo.udk", "map")
	writeFile(t, fsys, "/item/Config/Foo.ini", "[S]")

	var seen []string
	err := Mirror(fsys, "/item", "/game/Workshop", func(_, rel string) error {
		seen = append(seen, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("Mirror failed: %v", err)
	}

	if diff := cmp.Diff([]string{"Config/Foo.ini", "Maps/CC-Foo.udk"}, seen); diff != "" {
		t.Errorf("visited files mismatch (-want +got):\n%s", diff)
	}
	if got := readFile(t, fsys, "/game/Workshop/Maps/CC-Foo.udk"); got != "map" {
		t.Errorf("content = %q, want map", got)
	}
}

func TestClearDirectory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/cfg/UDKGame.ini", "x")
	writeFile(t, fsys, "/cfg/MyBans.ini", "x")
	writeFile(t, fsys, "/cfg/sub/Other.txt", "x")
	writeFile(t, fsys, "/cfg/keep/myStats.INI", "x")

	empty, err := ClearDirectory(fsys, "/cfg", ParseKeepGlobs("My*.ini", `"?ans.txt"`))
	if err != nil {
		t.Fatalf("ClearDirectory failed: %v", err)
	}
	if empty {
		t.Error("Expected directory not to be empty")
	}

	for path, want := range map[string]bool{
		"/cfg/UDKGame.ini":       false,
		"/cfg/MyBans.ini":        true,
		"/cfg/sub":               false,
		"/cfg/keep/myStats.INI":  true,
		"/cfg":                   true,
	} {
		if got, _ := afero.Exists(fsys, path); got != want {
			t.Errorf("Exists(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestKeepListMatches(t *testing.T) {
	keep := ParseKeepGlobs("", "Ban?.ini", "*.log")
	if len(keep) != 2 {
		t.Fatalf("len(keep) = %d, want 2", len(keep))
	}
	if !keep.Matches("/x/Bans.ini") || keep.Matches("/x/Banned.ini") || !keep.Matches("server.LOG") {
		t.Error("KeepList matched the wrong files")
	}
}

func TestGlob(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/cfg/DefaultGame.ini", "")
	writeFile(t, fsys, "/cfg/DefaultEngine.ini", "")
	writeFile(t, fsys, "/cfg/UDKGame.ini", "")
	if err := fsys.MkdirAll("/cfg/DefaultDir.ini", 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	files, err := Glob(fsys, "/cfg", "Default*.ini")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	want := []string{"/cfg/DefaultEngine.ini", "/cfg/DefaultGame.ini"}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("Glob mismatch (-want +got):\n%s", diff)
	}
}
