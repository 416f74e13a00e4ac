package workshop

import (
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/toxikkmodding/toxikk-launcher/config"
)

// Item is one Item= entry of [SteamWorkshop]
type Item struct {
	// FolderName is the item's folder below the workshop folder
	FolderName string
	// WorkshopID is set for Steam workshop items
	WorkshopID int64
	// ZipURL is set for items downloaded from an http(s) .zip archive
	ZipURL string
}

// Downloadable reports whether the item can be fetched by steamcmd or HTTP
func (it Item) Downloadable() bool {
	return it.WorkshopID != 0 || it.ZipURL != ""
}

// ParseItem parses a workshop id, a .zip URL or a plain folder name.
// Text after ';' is a comment.
func ParseItem(value string) (Item, bool) {
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Item{}, false
	}

	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		return Item{FolderName: strconv.FormatInt(id, 10), WorkshopID: id}, true
	}

	lower := strings.ToLower(value)
	if (strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) && strings.HasSuffix(lower, ".zip") {
		u, err := url.Parse(value)
		if err != nil {
			return Item{}, false
		}
		base := path.Base(u.Path)
		return Item{FolderName: strings.TrimSuffix(base, path.Ext(base)), ZipURL: value}, true
	}

	return Item{FolderName: value}, true
}

// CollectItems merges the Item entries of sections, generic sections first.
// ":=" and "!=" clear the list, "-=" removes an item, other operators add it once.
func CollectItems(sections []*config.Section) []Item {
	var items []Item
	for _, sec := range sections {
		for _, e := range sec.GetAll("Item") {
			if e.Op.Clears() {
				items = nil
				continue
			}

			item, ok := ParseItem(e.Value)
			if !ok {
				continue
			}
			idx := indexOf(items, item.FolderName)
			switch {
			case e.Op == config.OpRemove && idx >= 0:
				items = append(items[:idx], items[idx+1:]...)
			case e.Op != config.OpRemove && idx < 0:
				items = append(items, item)
			}
		}
	}
	return items
}

func indexOf(items []Item, folder string) int {
	for i, it := range items {
		if it.FolderName == folder {
			return i
		}
	}
	return -1
}

// requiresDownload reports whether a downloadable item is missing or forced.
// A folder without subdirectories counts as missing.
func requiresDownload(fsys afero.Fs, workshopDir string, it Item, force bool) bool {
	if !it.Downloadable() {
		return false
	}
	if force {
		return true
	}
	entries, err := afero.ReadDir(fsys, filepath.Join(workshopDir, it.FolderName))
	if err != nil {
		return true
	}
	for _, e := range entries {
		if e.IsDir() {
			return false
		}
	}
	return true
}
