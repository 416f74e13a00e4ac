package generator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/toxikkmodding/toxikk-launcher/config"
	"github.com/toxikkmodding/toxikk-launcher/logging"
)

var (
	// ErrNoMap is returned for server profiles that do not resolve a Map parameter
	ErrNoMap = errors.New("no map specified")
	// ErrNoSection is returned when no section applies to the requested profile
	ErrNoSection = errors.New("no configuration section")
)

// Artifacts are the results of one generation pass
type Artifacts struct {
	// Map is the primary target, taken from the Map parameter
	Map string
	// Options is the connection string: "?key=value" per parameter, sorted by key
	Options string
	// CmdLine holds the command line arguments
	CmdLine string
	// Files lists the generated ini files
	Files []string
}

// Generate runs a full pass for the profile section logicalName and writes its files
func (g *Generator) Generate(pass *Pass, store *config.File, logicalName string) (*Artifacts, error) {
	if id, ok := g.macros().ProfileID(pass.TargetDir); ok {
		pass.Vars.Set("Id", strconv.Itoa(id))
	}

	if !g.ProcessApplicable(pass, "", store, logicalName) {
		return nil, fmt.Errorf("%w for %s", ErrNoSection, logicalName)
	}
	return g.Finish(pass)
}

// Finish assembles the connection string and command line, then writes every generated file.
// Server profiles without a map fail with ErrNoMap before anything is written.
func (g *Generator) Finish(pass *Pass) (*Artifacts, error) {
	mapName, _ := pass.Param("map")
	if !pass.Client && mapName == "" {
		return nil, fmt.Errorf("%s: %w", TargetBase(pass.TargetDir), ErrNoMap)
	}

	var options strings.Builder
	for _, p := range pass.Params() {
		if strings.EqualFold(p[0], "map") {
			continue
		}
		options.WriteString("?")
		options.WriteString(p[0])
		if p[1] != "" {
			options.WriteString("=")
			options.WriteString(strings.ReplaceAll(p[1], " ", "_"))
		}
	}
	if pass.SteamSockets {
		options.WriteString("?steamsockets")
	}

	cmdLine := pass.CmdLine
	if pass.SeekFreeLoading {
		cmdLine = strings.TrimSpace(cmdLine + " -seekfreeloading")
	}

	files := pass.Files()
	for _, path := range files {
		store, _ := pass.File(path)
		if err := store.Save(g.FS, path); err != nil {
			return nil, fmt.Errorf("failed to write generated config: %w", err)
		}
		g.logger().Debug(logging.DestinationGenerator, "Wrote generated config", "path", path)
	}

	return &Artifacts{
		Map:     mapName,
		Options: options.String(),
		CmdLine: cmdLine,
		Files:   files,
	}, nil
}
