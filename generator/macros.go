package generator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/toxikkmodding/toxikk-launcher/logging"
)

// DefaultProfilePrefix is the section name prefix of numbered server profiles
const DefaultProfilePrefix = "DedicatedServer"

// maxExpansionRounds bounds repeated variable substitution for self-referencing values
const maxExpansionRounds = 100

var (
	variableRefRegex = regexp.MustCompile(`@((?:[A-Za-z_][A-Za-z0-9_]*)|(?:\d+(?:\.\d+)?))@`)
	portRegex        = regexp.MustCompile(`(?i)^@port,\s*(\d+)\s*,\s*(-?\d+)\s*$`)
	skillClassRegex  = regexp.MustCompile(`(?i)^@(?:sc|skillclass),\s*(-?\d+)\s*$`)
)

// skillClassTiers maps skill classes 1..12 to bot difficulty tiers
var skillClassTiers = [12]int{0, 1, 2, 2, 3, 4, 4, 5, 6, 6, 7, 8}

// Macros expands variable references and built-in value macros
type Macros struct {
	// Env is read by @env,NAME; nil means the process environment
	Env Environment
	// ProfilePrefix precedes the profile id in target directory names; empty means DefaultProfilePrefix
	ProfilePrefix string
	// Log receives warnings about malformed loops
	Log *logging.Logger
}

func (m *Macros) env() Environment {
	if m.Env == nil {
		return OSEnvironment{}
	}
	return m.Env
}

func (m *Macros) logger() *logging.Logger {
	if m.Log == nil {
		m.Log = logging.Default()
	}
	return m.Log
}

// ProfileID extracts the numeric profile id from the last element of targetDir,
// which is named after the profile section (e.g. ".../DedicatedServer3" -> 3)
func (m *Macros) ProfileID(targetDir string) (int, bool) {
	prefix := m.ProfilePrefix
	if prefix == "" {
		prefix = DefaultProfilePrefix
	}

	base := TargetBase(targetDir)
	if len(base) <= len(prefix) || !strings.EqualFold(base[:len(prefix)], prefix) {
		return 0, false
	}
	id, err := strconv.Atoi(base[len(prefix):])
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// Expand substitutes @name@ references in raw and evaluates built-in value macros.
// Unbound variables become empty strings. Numeric loop bindings (@1@, @2.1@) are only
// substituted when expandLoopVars is set, and lose their surrounding quotes when they are.
func (m *Macros) Expand(targetDir, raw string, vars *Variables, expandLoopVars bool) string {
	value := m.substitute(raw, vars, expandLoopVars)

	// @port,base,multiplier derives a unique port per profile
	if match := portRegex.FindStringSubmatch(value); match != nil {
		if id, ok := m.ProfileID(targetDir); ok {
			base, _ := strconv.Atoi(match[1])
			mult, _ := strconv.Atoi(match[2])
			return strconv.Itoa(base + mult*(id-1))
		}
		return value
	}

	// @sc,n or @skillclass,n
	if match := skillClassRegex.FindStringSubmatch(value); match != nil {
		n, _ := strconv.Atoi(match[1])
		n = max(1, min(n, len(skillClassTiers)))
		return strconv.Itoa(skillClassTiers[n-1])
	}

	// @env,NAME
	if len(value) >= 5 && strings.EqualFold(value[:5], "@env,") {
		v, _ := m.env().LookupEnv(strings.TrimSpace(value[5:]))
		return v
	}

	// @id
	if strings.EqualFold(strings.TrimSpace(value), "@id") {
		if id, ok := m.ProfileID(targetDir); ok {
			return strconv.Itoa(id)
		}
		return ""
	}

	return value
}

// substitute replaces variable references until the value no longer changes
func (m *Macros) substitute(raw string, vars *Variables, expandLoopVars bool) string {
	value := raw
	for round := 0; round < maxExpansionRounds; round++ {
		next := variableRefRegex.ReplaceAllStringFunc(value, func(ref string) string {
			isLoopVar := ref[1] >= '0' && ref[1] <= '9'
			if isLoopVar && !expandLoopVars {
				return ref
			}

			var bound string
			if vars != nil {
				bound, _ = vars.Get(ref)
			}
			if isLoopVar {
				bound = strings.Trim(bound, `"`)
			}
			return bound
		})
		if next == value {
			break
		}
		value = next
	}
	return value
}

// TargetBase returns the last element of a target directory.
// Windows separators are accepted on every platform.
func TargetBase(targetDir string) string {
	targetDir = strings.TrimRight(targetDir, `/\`)
	if idx := strings.LastIndexAny(targetDir, `/\`); idx >= 0 {
		return targetDir[idx+1:]
	}
	return targetDir
}
