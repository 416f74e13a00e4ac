package launcher

import (
	"github.com/toxikkmodding/toxikk-launcher/config"
)

// Settings are the [ServerLauncher] values. When several host-scoped sections apply,
// the most specific section that sets a key wins.
type Settings struct {
	ToxikkDir       string
	WorkshopDir     string
	HTTPRedirectDir string
	SteamcmdDir     string
	LaunchPrefix    string

	UpdateToxikk   bool
	CleanWorkshop  bool
	UpdateWorkshop bool
	SyncWorkshop   bool
	ShowCommand    bool

	// APIListen enables the control API on this address (e.g. "127.0.0.1:7780")
	APIListen string
	// APIKeyFile holds the HS256 signing key of the control API
	APIKeyFile string
}

// ReadSettings collects the settings from sections ordered most specific first
func ReadSettings(sections []*config.Section) Settings {
	s := Settings{
		ToxikkDir:       firstString(sections, "ToxikkDir"),
		WorkshopDir:     firstString(sections, "WorkshopDir"),
		HTTPRedirectDir: firstString(sections, "HttpRedirectDir"),
		SteamcmdDir:     firstString(sections, "SteamcmdDir"),
		LaunchPrefix:    firstString(sections, "LaunchPrefix"),
		UpdateToxikk:    firstBool(sections, "UpdateToxikk", false),
		CleanWorkshop:   firstBool(sections, "CleanWorkshop", false),
		UpdateWorkshop:  firstBool(sections, "UpdateWorkshop", false),
		ShowCommand:     firstBool(sections, "ShowCommand", false),
		APIListen:       firstString(sections, "ApiListen"),
		APIKeyFile:      firstString(sections, "ApiKeyFile"),
	}
	// updating implies deploying unless SyncWorkshop says otherwise
	s.SyncWorkshop = firstBool(sections, "SyncWorkshop", s.UpdateWorkshop)
	return s
}

// firstString returns the first non-empty value of key
func firstString(sections []*config.Section, key string) string {
	for _, sec := range sections {
		if v := sec.GetString(key, ""); v != "" {
			return v
		}
	}
	return ""
}

// firstBool returns the first boolean value of key
func firstBool(sections []*config.Section, key string, def bool) bool {
	for _, sec := range sections {
		if v := sec.GetString(key, ""); v != "" {
			return sec.GetBool(key, def)
		}
	}
	return def
}
