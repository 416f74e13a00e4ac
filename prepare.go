package launcher

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/toxikkmodding/toxikk-launcher/config"
	"github.com/toxikkmodding/toxikk-launcher/fileutil"
	"github.com/toxikkmodding/toxikk-launcher/logging"
)

// keepList collects the @keep globs of every applicable section
func keepList(sections []*config.Section) fileutil.KeepList {
	var globs []string
	for _, sec := range sections {
		for _, e := range sec.GetAll("@keep") {
			globs = append(globs, config.SplitUnquoted(e.Value, ',')...)
		}
	}
	return fileutil.ParseKeepGlobs(globs...)
}

// prepareConfigFolder seeds targetDir with the game's ini files before generation.
// Dedicated servers get a fresh copy of the base configuration; files matching @keep survive.
func (l *Launcher) prepareConfigFolder(targetDir string, sections []*config.Section, dedicated bool) {
	l.mu.RLock()
	configDir, toxikkDir := l.configDir, l.toxikkDir
	l.mu.RUnlock()

	if dedicated {
		if ok, _ := afero.DirExists(l.fs, targetDir); ok {
			if _, err := fileutil.ClearDirectory(l.fs, targetDir, keepList(sections)); err != nil {
				l.log.Warnf(logging.DestinationGenerator, "failed to clear %s: %v", targetDir, err)
			}
		}

		// Default*.ini, plus UDK*.ini that have no Default twin
		defaults, _ := fileutil.Glob(l.fs, configDir, "Default*.ini")
		l.copyInto(defaults, targetDir, true)

		udk, _ := fileutil.Glob(l.fs, configDir, "UDK*.ini")
		var orphans []string
		for _, file := range udk {
			twin := filepath.Join(configDir, "Default"+filepath.Base(file)[3:])
			if ok, _ := afero.Exists(l.fs, twin); !ok {
				orphans = append(orphans, file)
			}
		}
		l.copyInto(orphans, targetDir, true)
	}

	launcherFiles, _ := fileutil.Glob(l.fs, l.opts.LauncherDir, "UDK*.ini")
	l.copyInto(launcherFiles, targetDir, true)

	if dedicated {
		workshopConfig, _ := fileutil.Glob(l.fs, filepath.Join(toxikkDir, "UDKGame", "Workshop", "Config"), "*.ini")
		l.copyInto(workshopConfig, targetDir, false)
	}
}

func (l *Launcher) copyInto(files []string, targetDir string, overwrite bool) {
	for _, file := range files {
		if err := fileutil.CopyFile(l.fs, file, filepath.Join(targetDir, filepath.Base(file)), overwrite); err != nil {
			l.log.Warnf(logging.DestinationGenerator, "%v", err)
		}
	}
}
