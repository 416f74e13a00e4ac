// Package workshop keeps TOXIKK and its workshop items up to date.
//
// Steam workshop items and the game itself are fetched with steamcmd; items given as
// http(s) .zip URLs are downloaded directly. Deploy mirrors the item folders into
// TOXIKK's UDKGame/Workshop folder and copies packages to the HTTP redirect folder.
package workshop

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"github.com/toxikkmodding/toxikk-launcher/config"
	"github.com/toxikkmodding/toxikk-launcher/logging"
	"github.com/toxikkmodding/toxikk-launcher/ratelimit"
)

// AppID is TOXIKK's Steam application id
const AppID = 324810

// Config configures a Workshop
type Config struct {
	FS afero.Fs
	// ToxikkDir is the game folder
	ToxikkDir string
	// WorkshopDir holds one folder per item (steamapps/workshop/content/324810)
	WorkshopDir string
	// HTTPRedirectDir receives .u, .upk and .udk files for client auto-download
	HTTPRedirectDir string
	// SteamcmdDir holds steamcmd.exe or steamcmd.sh
	SteamcmdDir string
	// Sections are the applicable [SteamWorkshop] sections, generic sections first
	Sections []*config.Section

	// Runner runs steamcmd; defaults to ExecRunner
	Runner SteamcmdRunner
	// Out receives the reformatted steamcmd output; defaults to os.Stdout
	Out io.Writer
	// HTTPClient fetches zip items; defaults to a client with a 10 minute timeout
	HTTPClient *http.Client
	// Downloads throttles zip downloads; nil means unlimited
	Downloads *ratelimit.ByteLimiter
	// Ledger records zip downloads and deployments; optional
	Ledger *Ledger
	// GameRunning reports running TOXIKK processes before files are replaced; optional
	GameRunning func(ctx context.Context) bool
	// RetryInterval is the first delay between steamcmd retries; defaults to 2s
	RetryInterval time.Duration

	Log *logging.Logger
}

// Workshop performs updates and deployments for one configuration
type Workshop struct {
	cfg Config
	fs  afero.Fs
	log *logging.Logger
}

// New creates a Workshop, filling in defaults
func New(cfg Config) *Workshop {
	if cfg.FS == nil {
		cfg.FS = afero.NewOsFs()
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 2 * time.Second
	}
	if cfg.Log == nil {
		cfg.Log = logging.Default()
	}
	return &Workshop{cfg: cfg, fs: cfg.FS, log: cfg.Log}
}

// Items returns the configured items
func (w *Workshop) Items() []Item {
	return CollectItems(w.cfg.Sections)
}

// Clean deletes the steamcmd item folders and the workshop manifest so that the next update
// downloads everything again. Folders with non-numeric names hold developer content and are kept.
func (w *Workshop) Clean() error {
	w.log.Infof(logging.DestinationWorkshop, "Cleaning %s", w.cfg.WorkshopDir)

	manifest := filepath.Join(w.cfg.WorkshopDir, "..", "..", "appworkshop_"+strconv.Itoa(AppID)+".acf")
	if err := w.fs.Remove(manifest); err != nil && !os.IsNotExist(err) {
		w.log.Warnf(logging.DestinationWorkshop, "failed to delete %s: %v", manifest, err)
	}

	entries, err := afero.ReadDir(w.fs, w.cfg.WorkshopDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(w.cfg.WorkshopDir, e.Name())
		if _, err := strconv.ParseInt(e.Name(), 10, 64); err != nil {
			w.log.Infof(logging.DestinationWorkshop, "keeping non-steam folder %s", dir)
			continue
		}
		if err := w.fs.RemoveAll(dir); err != nil {
			w.log.Errorf(logging.DestinationWorkshop, "couldn't delete %s: %v", dir, err)
		}
	}
	return nil
}

// UpdateWorkshop downloads missing items, or all downloadable items when force is set.
// steam and zip select the item kinds. It reports whether anything needed a download.
func (w *Workshop) UpdateWorkshop(ctx context.Context, force, steam, zip bool) (bool, error) {
	var todo []Item
	for _, it := range w.Items() {
		if requiresDownload(w.fs, w.cfg.WorkshopDir, it, force) {
			todo = append(todo, it)
		}
	}
	if len(todo) == 0 {
		return false, nil
	}

	if err := w.fs.MkdirAll(w.cfg.WorkshopDir, 0o755); err != nil {
		return true, err
	}
	if steam {
		if err := w.downloadSteamItems(ctx, todo); err != nil {
			return true, err
		}
	}
	if zip {
		if err := w.downloadZipItems(ctx, todo); err != nil {
			return true, err
		}
	}
	return true, nil
}
