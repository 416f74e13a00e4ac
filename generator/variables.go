package generator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/toxikkmodding/toxikk-launcher/config"
)

// Variables maps @name@ references to values. Names are case-insensitive.
type Variables struct {
	values map[string]string
	// loopBound lists the numeric names set by the current loop combination
	loopBound []string
}

// NewVariables creates an empty variable table
func NewVariables() *Variables {
	return &Variables{values: make(map[string]string)}
}

// variableKey normalizes "Name" and "@Name@" to the same map key
func variableKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) >= 2 && strings.HasPrefix(name, "@") && strings.HasSuffix(name, "@") {
		return name
	}
	return "@" + name + "@"
}

// IsVariableName reports whether key has the @name@ form of a variable definition
func IsVariableName(key string) bool {
	return len(key) >= 3 && strings.HasPrefix(key, "@") && strings.HasSuffix(key, "@")
}

// Get returns the value of a variable
func (v *Variables) Get(name string) (string, bool) {
	val, ok := v.values[variableKey(name)]
	return val, ok
}

// Set assigns a variable
func (v *Variables) Set(name, value string) {
	v.values[variableKey(name)] = value
}

// Delete removes a variable
func (v *Variables) Delete(name string) {
	delete(v.values, variableKey(name))
}

// Len returns the number of variables
func (v *Variables) Len() int {
	return len(v.values)
}

// Names returns the normalized variable names in sorted order
func (v *Variables) Names() []string {
	names := make([]string, 0, len(v.values))
	for name := range v.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy
func (v *Variables) Clone() *Variables {
	c := NewVariables()
	for k, val := range v.values {
		c.values[k] = val
	}
	return c
}

// BindLoop replaces the previous loop bindings with @1@..@N@ for combination,
// plus @i.j@ for the '|'-separated parts of every value
func (v *Variables) BindLoop(combination []string) {
	for _, name := range v.loopBound {
		delete(v.values, name)
	}
	v.loopBound = v.loopBound[:0]

	for i, value := range combination {
		v.bind(strconv.Itoa(i+1), value)
		for j, part := range config.SplitUnquoted(value, '|') {
			v.bind(strconv.Itoa(i+1)+"."+strconv.Itoa(j+1), part)
		}
	}
}

func (v *Variables) bind(name, value string) {
	key := variableKey(name)
	v.values[key] = value
	v.loopBound = append(v.loopBound, key)
}

// DefineFromSection sets every @name@ key of sec, expanding values with m against the table itself
func (v *Variables) DefineFromSection(sec *config.Section, m *Macros) {
	if sec == nil {
		return
	}
	for _, key := range sec.Keys() {
		if !IsVariableName(key) {
			continue
		}
		if _, exists := v.Get(key); exists {
			// first found wins when sections are read most specific first
			continue
		}
		v.Set(key, m.Expand("", sec.GetString(key, ""), v, true))
	}
}
