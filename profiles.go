package launcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/toxikkmodding/toxikk-launcher/generator"
)

// Profile is a server configuration of MyServerConfig.ini
type Profile struct {
	// ID is the number after DedicatedServer, or "0" for the client
	ID string
	// Section is the logical section name
	Section string
	// Name is the display name from @ServerName or ServerName
	Name    string
	Running bool
	PID     int
}

// IsClient reports whether p is the client profile
func (p Profile) IsClient() bool {
	return p.ID == "0"
}

// SectionName maps a profile id to its logical section name
func (l *Launcher) SectionName(id string) (string, error) {
	id = strings.TrimSpace(id)
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownProfile, id)
	}

	name := ClientSection
	if n > 0 {
		name = generator.DefaultProfilePrefix + strconv.Itoa(n)
	}
	if len(l.Resolver().ApplicableSections(l.Store(), name, false)) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownProfile, id)
	}
	return name, nil
}

// profileIDs returns the ids of every profile in the configuration, the client first
func (l *Launcher) profileIDs() []string {
	store := l.Store()
	seen := make(map[int]bool)
	var ids []int
	hasClient := false

	for _, sec := range store.Sections() {
		name := sec.Name()
		if idx := strings.IndexByte(name, ':'); idx >= 0 {
			name = name[:idx]
		}
		if strings.EqualFold(name, ClientSection) {
			hasClient = true
			continue
		}

		prefix := generator.DefaultProfilePrefix
		if len(name) <= len(prefix) || !strings.EqualFold(name[:len(prefix)], prefix) {
			continue
		}
		n, err := strconv.Atoi(name[len(prefix):])
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		ids = append(ids, n)
	}
	sort.Ints(ids)

	var out []string
	if hasClient {
		out = append(out, "0")
	}
	for _, n := range ids {
		out = append(out, strconv.Itoa(n))
	}
	return out
}

// Profiles lists the profiles applicable to this host with their display names and running state
func (l *Launcher) Profiles(ctx context.Context) []Profile {
	var profiles []Profile
	for _, id := range l.profileIDs() {
		section, err := l.SectionName(id)
		if err != nil {
			// only host-scoped sections for other machines
			continue
		}
		p := Profile{ID: id, Section: section, Name: l.displayName(id, section)}
		if id != "0" {
			p.PID, p.Running = l.runningPID(ctx, section)
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// Profile returns a single profile
func (l *Launcher) Profile(ctx context.Context, id string) (Profile, error) {
	section, err := l.SectionName(id)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{ID: id, Section: section, Name: l.displayName(id, section)}
	if id != "0" {
		p.PID, p.Running = l.runningPID(ctx, section)
	}
	return p, nil
}

// displayName expands @ServerName or ServerName of the most specific section that sets one
func (l *Launcher) displayName(id, section string) string {
	if id == "0" {
		return "update base configuration and start client"
	}

	l.mu.RLock()
	macros, globals, configDir := l.macros, l.globals, l.configDir
	l.mu.RUnlock()

	for _, key := range []string{"@ServerName", "ServerName"} {
		for _, sec := range l.Resolver().ApplicableSections(l.Store(), section, true) {
			if raw := sec.GetString(key, ""); raw != "" {
				if name := macros.Expand(filepath.Join(configDir, section), raw, globals, false); name != "" {
					return name
				}
			}
		}
	}
	return section
}

// runningPID returns the recorded pid of section when that process is still alive
func (l *Launcher) runningPID(ctx context.Context, section string) (int, bool) {
	pid, err := l.pids.Read(ctx, section)
	if err != nil || pid == 0 {
		return 0, false
	}
	if !l.processes.Alive(ctx, pid) {
		return pid, false
	}
	return pid, true
}
