package shell

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	launcher "github.com/toxikkmodding/toxikk-launcher"
	"github.com/toxikkmodding/toxikk-launcher/logging"
)

var variableAssignment = regexp.MustCompile(`^(@[0-9A-Za-z_]+@)\s*(\??=)\s*(.*)$`)

// onValues are the values that turn a switch on
var onValues = map[string]bool{"on": true, "y": true, "yes": true, "t": true, "true": true, "1": true}

const helpText = `
^AToxikkServerLauncher^7 [^Fcommand^7 | ^Bserver-id^7]...

Multiple commands and server numbers can be mixed, e.g.: stop 1 start 2

^FBasic commands^7:
  help, h, ?:          This help screen
  list, l:             Lists the available servers and their status
  start, s:            Start servers with the following ids
  restart, r:          Restart servers with following ids
  stop, x:             Stop servers with the following ids
  focus, f:            Focuses the console window of the specified server id
  generate, g:         Generates the specified server id's config folder without starting anything
  test, t:             Test if the specified server(s) are running. Exit code is the number of servers that are NOT running
  *:                   Applies the current command to all servers
  quit, exit:          Quit the server launcher

^FAdvanced commands^7:
  updateToxikk, ut:    Update TOXIKK game files with steamcmd
  cleanWorkshop, cw:   Delete content of the steamcmd workshop folder
  updateWorkshop, uw:  Update steam + zip workshop items (implies syncWorkshop)
  us:                  Update steam workshop only (implies syncWorkshop)
  uz:                  Update zip workshop items only (implies syncWorkshop)
  syncWorkshop, sw:    Deploy workshop items to TOXIKK/UDKGame/Workshop and HTTP redirect folder
  showCommand[=1]:     Print the generated TOXIKK.exe command line on screen before starting TOXIKK
  verbose, v[=1]:      More log output
  interactive, i[=1]:  Run in interactive command line interface mode
  steamSockets[=1]:    Append ?steamsockets to the launch URL
  lan[=1]:             Start server(s) in LAN or internet mode

^FVariables^7:
  @variable@=value     Sets a value for a variable. Inside the INI you can define a default with @variable@ ?= value

^FExperimental commands^7:
  dedicated=0:         Start a listen server instead of a dedicated server
  seekFreeLoading=0:   Don't append -seekfreeloading to the command line
`

// ProcessCommand executes a single command or server id
func (s *Shell) ProcessCommand(ctx context.Context, cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd = strings.TrimPrefix(cmd, "-")
	if _, err := strconv.Atoi(cmd); err == nil {
		s.executeAction(ctx, cmd)
		return
	}
	if cmd == "*" {
		s.globAction(ctx)
		return
	}
	if m := variableAssignment.FindStringSubmatch(cmd); m != nil {
		if err := s.l.SetVariable(m[1] + m[2] + m[3]); err != nil {
			s.log.Errorf(logging.DestinationConfig, "%v", err)
		}
		return
	}

	switch strings.ToLower(cmd) {
	case "h", "?", "help":
		s.con.Write(helpText)
	case "l", "list":
		s.listConfigurations(ctx)
	case "g", "generate":
		s.action = actionGenerate
	case "s", "start":
		s.action = actionStart
	case "r", "restart":
		s.action = actionRestart
	case "x", "stop":
		s.action = actionStop
	case "f", "focus":
		s.action = actionFocus
	case "t", "test":
		s.action = actionTest
		s.exitCode = 0
	case "ut", "updatetoxikk":
		s.logError(s.newWorkshop().UpdateToxikk(ctx, true))
	case "cw", "cleanworkshop":
		s.logError(s.newWorkshop().Clean())
	case "uw", "updateworkshop":
		s.updateItems(ctx, true, true)
	case "us":
		s.updateItems(ctx, true, false)
	case "uz":
		s.updateItems(ctx, false, true)
	case "sw", "syncworkshop":
		s.deploy(ctx)
	case "quit", "exit":
		s.interactive = false
	default:
		s.processSwitch(cmd)
	}
}

func (s *Shell) logError(err error) {
	if err != nil {
		s.log.Errorf(logging.DestinationGeneral, "%v", err)
	}
}

// executeAction applies the current action to server id
func (s *Shell) executeAction(ctx context.Context, id string) {
	if _, err := s.l.SectionName(id); err != nil {
		s.log.Errorf(logging.DestinationProcess, "No configuration with ID %s", id)
		return
	}

	var err error
	switch s.action {
	case actionStart:
		if s.updateWorkshop.Load() {
			s.maybeRedeploy(ctx)
		}
		err = s.l.StartServer(ctx, id)
	case actionGenerate:
		_, err = s.l.Generate(id)
	case actionRestart:
		s.restarts.Request(id)
	case actionStop:
		err = s.l.StopServer(ctx, id)
	case actionFocus:
		err = s.l.FocusServer(ctx, id)
	case actionTest:
		s.exitCode += s.l.TestServers(ctx, []string{id})
	}
	if err != nil {
		s.log.Errorf(logging.DestinationProcess, "%v", err)
	}
}

// globAction applies the current action to every server profile.
// Stop and restart only affect running servers.
func (s *Shell) globAction(ctx context.Context) {
	for _, id := range s.l.ServerIDs() {
		switch s.action {
		case actionStop, actionRestart:
			if p, err := s.l.Profile(ctx, id); err == nil && p.Running {
				s.executeAction(ctx, id)
			}
		case actionFocus:
		default:
			s.executeAction(ctx, id)
		}
	}
}

// processSwitch handles "name" and "name=value" switches
func (s *Shell) processSwitch(cmd string) {
	key, value, hasValue := strings.Cut(cmd, "=")
	on := !hasValue || onValues[strings.ToLower(value)]

	sw := s.l.Switches()
	switch strings.ToLower(key) {
	case "dedicated":
		sw.Dedicated = on
	case "steamsockets":
		sw.SteamSockets = on
	case "seekfreeloading":
		sw.SeekFreeLoading = on
	case "showcommand":
		sw.ShowCommand = on
	case "lan":
		sw.Lan = on
	case "verbose", "v":
		if on {
			s.log.SetVerbosity(logging.VerbosityDebug)
		} else {
			s.log.SetVerbosity(logging.VerbosityInfo)
		}
		return
	case "interactive", "i":
		s.interactive = on
		return
	default:
		s.con.Printf("^Eunknown command^7: %s\n", key)
		return
	}
	s.l.SetSwitches(sw)
}

// listConfigurations prints the server profiles, marking running servers with '*'
func (s *Shell) listConfigurations(ctx context.Context) {
	s.con.Write("\nAvailable server configurations:\n")
	for _, p := range s.l.Profiles(ctx) {
		mark := " "
		if p.Running {
			mark = "*"
		}
		s.con.Printf("^B%3s^7: ^A%s^7 %s\n", p.ID, mark, p.Name)
	}
}

// updateItems updates the workshop items and deploys them
func (s *Shell) updateItems(ctx context.Context, steam, zip bool) {
	_, err := s.newWorkshop().UpdateWorkshop(ctx, true, steam, zip)
	s.logError(err)
	s.deploy(ctx)
}

// deploy copies the workshop items into the game
func (s *Shell) deploy(ctx context.Context) {
	s.logError(s.newWorkshop().Deploy(ctx))
	s.deployMu.Lock()
	s.lastDeploy = s.now()
	s.deployMu.Unlock()
}

// maybeRedeploy fetches missing items and deploys when something changed
// or the last deployment is older than the redeploy interval
func (s *Shell) maybeRedeploy(ctx context.Context) {
	ws := s.newWorkshop()
	updated, err := ws.UpdateWorkshop(ctx, false, true, true)
	s.logError(err)

	s.deployMu.Lock()
	due := updated || s.now().Sub(s.lastDeploy) >= s.redeployInterval
	s.deployMu.Unlock()
	if !due {
		return
	}
	s.logError(ws.Deploy(ctx))
	s.deployMu.Lock()
	s.lastDeploy = s.now()
	s.deployMu.Unlock()
}

// restartServer stops id, refreshes the workshop items and starts it again.
// It gives up between steps once ctx is cancelled by a newer restart of the same server.
func (s *Shell) restartServer(ctx context.Context, id string) error {
	if err := s.l.StopServer(ctx, id); err != nil && !errors.Is(err, launcher.ErrNotRunning) {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.updateWorkshop.Load() {
		s.maybeRedeploy(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return s.l.StartServer(ctx, id)
}
