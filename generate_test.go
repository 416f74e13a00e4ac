package launcher

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/toxikkmodding/toxikk-launcher/generator"
)

func seedGameConfig(t *testing.T, fsys afero.Fs) {
	t.Helper()
	writeTestFile(t, fsys, testConfigDir+"/DefaultGame.ini", "[Engine.GameInfo]\nMaxPlayers=8\n")
	writeTestFile(t, fsys, testConfigDir+"/UDKGame.ini", "[Engine.GameInfo]\nMaxPlayers=8\n")
	writeTestFile(t, fsys, testConfigDir+"/UDKEngine.ini", "[Engine.Engine]\n")
	writeTestFile(t, fsys, testLauncherDir+"/UDKCustom.ini", "[Custom]\n")
	writeTestFile(t, fsys, "/toxikk/UDKGame/Workshop/Config/UDKWorkshopMod.ini", "[Mod]\n")
}

func TestGenerateDedicatedServer(t *testing.T) {
	env := newTestEnv(t, testServerConfig)
	seedGameConfig(t, env.fs)

	targetDir := filepath.Join(testConfigDir, "DedicatedServer1")
	writeTestFile(t, env.fs, targetDir+"/Launch.log", "old log")
	writeTestFile(t, env.fs, targetDir+"/Stale.ini", "")

	g, err := env.launcher.Generate("1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if g.TargetDir != targetDir {
		t.Errorf("TargetDir = %q, want %q", g.TargetDir, targetDir)
	}
	if !g.Dedicated || g.Client {
		t.Errorf("Dedicated = %v, Client = %v, want true, false", g.Dedicated, g.Client)
	}
	if g.Map != "CC-Foundation" {
		t.Errorf("Map = %q, want CC-Foundation", g.Map)
	}
	if want := "?Port=7777?ServerName=Alpha_Hello"; g.Options != want {
		t.Errorf("Options = %q, want %q", g.Options, want)
	}
	if want := "-configsubdir=DedicatedServer1 -nohomedir -unattended -seekfreeloading"; g.CmdLine != want {
		t.Errorf("CmdLine = %q, want %q", g.CmdLine, want)
	}

	present := []string{"DefaultGame.ini", "UDKEngine.ini", "UDKCustom.ini", "UDKWorkshopMod.ini", "UDKGame.ini", "Launch.log"}
	for _, name := range present {
		if ok, _ := afero.Exists(env.fs, filepath.Join(targetDir, name)); !ok {
			t.Errorf("expected %s in the target folder", name)
		}
	}
	if ok, _ := afero.Exists(env.fs, filepath.Join(targetDir, "Stale.ini")); ok {
		t.Error("Stale.ini should have been cleared")
	}
	if diff := cmp.Diff([]string{filepath.Join(targetDir, "UDKGame.ini")}, g.Files); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateListenServer(t *testing.T) {
	env := newTestEnv(t, testServerConfig)
	seedGameConfig(t, env.fs)

	s := env.launcher.Switches()
	s.Dedicated = false
	s.SeekFreeLoading = false
	env.launcher.SetSwitches(s)

	g, err := env.launcher.Generate("2")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if g.TargetDir != testConfigDir {
		t.Errorf("TargetDir = %q, want %q", g.TargetDir, testConfigDir)
	}
	if g.CmdLine != "-log -nostartupmovies" {
		t.Errorf("CmdLine = %q, want %q", g.CmdLine, "-log -nostartupmovies")
	}
	if ok, _ := afero.Exists(env.fs, testConfigDir+"/UDKCustom.ini"); !ok {
		t.Error("launcher UDK*.ini files should be copied for listen servers too")
	}
	if ok, _ := afero.Exists(env.fs, testConfigDir+"/UDKWorkshopMod.ini"); ok {
		t.Error("workshop config should only be copied for dedicated servers")
	}
}

func TestGenerateNoMap(t *testing.T) {
	env := newTestEnv(t, "[DedicatedServer1]\nServerName=Empty\n")

	_, err := env.launcher.Generate("1")
	if !errors.Is(err, generator.ErrNoMap) {
		t.Fatalf("Generate error = %v, want ErrNoMap", err)
	}
}

func TestGenerateUnknownProfile(t *testing.T) {
	env := newTestEnv(t, testServerConfig)

	if _, err := env.launcher.Generate("9"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("Generate error = %v, want ErrUnknownProfile", err)
	}
}
