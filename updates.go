package launcher

import (
	"github.com/toxikkmodding/toxikk-launcher/workshop"
)

// WorkshopSection holds the workshop items and the steamcmd login
const WorkshopSection = "SteamWorkshop"

// WorkshopConfig returns the workshop settings of the current configuration.
// Callers add the steamcmd runner, download throttle and ledger.
func (l *Launcher) WorkshopConfig() workshop.Config {
	settings := l.Settings()
	return workshop.Config{
		FS:              l.fs,
		ToxikkDir:       settings.ToxikkDir,
		WorkshopDir:     settings.WorkshopDir,
		HTTPRedirectDir: settings.HTTPRedirectDir,
		SteamcmdDir:     settings.SteamcmdDir,
		Sections:        l.Resolver().ApplicableSections(l.Store(), WorkshopSection, false),
		GameRunning:     l.GameRunning,
		Log:             l.log,
	}
}
