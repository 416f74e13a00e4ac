package workshop

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/toxikkmodding/toxikk-launcher/fileutil"
	"github.com/toxikkmodding/toxikk-launcher/logging"
)

// redirectExtensions are the package types clients download from the HTTP redirect
var redirectExtensions = map[string]bool{".u": true, ".upk": true, ".udk": true}

// GameWorkshopDir returns TOXIKK's UDKGame/Workshop folder
func (w *Workshop) GameWorkshopDir() string {
	return filepath.Join(w.cfg.ToxikkDir, "UDKGame", "Workshop")
}

// Deploy replaces TOXIKK's UDKGame/Workshop folder with the content of the configured items
// and copies their packages to the HTTP redirect folder
func (w *Workshop) Deploy(ctx context.Context) error {
	if ok, _ := afero.DirExists(w.fs, w.cfg.WorkshopDir); !ok {
		return nil
	}

	w.log.Info(logging.DestinationWorkshop, "Copying workshop item contents to TOXIKK and HTTP redirect folders...")
	if w.cfg.GameRunning != nil && w.cfg.GameRunning(ctx) {
		w.log.Warn(logging.DestinationWorkshop, "TOXIKK.exe is already running, updates may fail.")
	}
	if w.cfg.HTTPRedirectDir == "" {
		w.log.Warn(logging.DestinationWorkshop, "no HTTP redirect folder configured. Clients won't be able to auto-download workshop items.")
	}

	target := w.GameWorkshopDir()
	// only content of the listed items survives
	if err := w.fs.RemoveAll(target); err != nil {
		w.log.Errorf(logging.DestinationWorkshop, "Failed to delete %s: %v", target, err)
	}

	for _, it := range w.Items() {
		if err := ctx.Err(); err != nil {
			return err
		}
		itemPath := filepath.Join(w.cfg.WorkshopDir, it.FolderName)
		if ok, _ := afero.DirExists(w.fs, itemPath); !ok {
			w.log.Warnf(logging.DestinationWorkshop, "Workshop item folder not found: %s", itemPath)
			continue
		}
		if err := fileutil.Mirror(w.fs, itemPath, target, w.copyToRedirect); err != nil {
			w.log.Errorf(logging.DestinationWorkshop, "Failed to copy workshop item %s: %v", itemPath, err)
			continue
		}
		if w.cfg.Ledger != nil {
			if err := w.cfg.Ledger.RecordDeploy(ctx, it.FolderName, time.Now()); err != nil {
				w.log.Warnf(logging.DestinationWorkshop, "%v", err)
			}
		}
	}
	return nil
}

// copyToRedirect copies game packages to the flat HTTP redirect folder
func (w *Workshop) copyToRedirect(src, _ string) error {
	if w.cfg.HTTPRedirectDir == "" || !redirectExtensions[strings.ToLower(filepath.Ext(src))] {
		return nil
	}
	dst := filepath.Join(w.cfg.HTTPRedirectDir, filepath.Base(src))
	if fileutil.SameFile(w.fs, src, dst) {
		return nil
	}
	return fileutil.CopyFile(w.fs, src, dst, true)
}
