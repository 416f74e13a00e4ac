package generator

import (
	"strings"
	"testing"
)

func TestExpandVariables(t *testing.T) {
	m := &Macros{Env: MapEnvironment{}}
	vars := NewVariables()
	vars.Set("@Name@", "World")
	vars.Set("Greeting", "Hello @name@")

	if got := m.Expand("", "Say @Greeting@!", vars, true); got != "Say Hello World!" {
		t.Errorf("Expand = %q, want %q", got, "Say Hello World!")
	}
}

func TestExpandUnresolvedVariable(t *testing.T) {
	m := &Macros{Env: MapEnvironment{}}

	if got := m.Expand("", "@undefined@", NewVariables(), true); got != "" {
		t.Errorf("Expand(@undefined@) = %q, want empty string", got)
	}
	if got := m.Expand("", "a@undefined@b", nil, true); got != "ab" {
		t.Errorf("Expand = %q, want ab", got)
	}
}

func TestExpandLoopVariables(t *testing.T) {
	m := &Macros{Env: MapEnvironment{}}
	vars := NewVariables()
	vars.BindLoop([]string{`"A,B"`, "x|y"})

	if got := m.Expand("", "v=@1@ @2.2@", vars, false); got != "v=@1@ @2.2@" {
		t.Errorf("Expand without loop vars = %q", got)
	}
	if got := m.Expand("", "v=@1@ @2.2@", vars, true); got != "v=A,B y" {
		t.Errorf("Expand with loop vars = %q, want %q", got, "v=A,B y")
	}

	// a new combination replaces every previous binding
	vars.BindLoop([]string{"C"})
	if got := m.Expand("", "@1@/@2@/@2.1@", vars, true); got != "C//" {
		t.Errorf("Expand after rebinding = %q, want C//", got)
	}
}

func TestExpandSelfReferenceTerminates(t *testing.T) {
	m := &Macros{Env: MapEnvironment{}}
	vars := NewVariables()
	vars.Set("a", "x@a@")

	got := m.Expand("", "@a@", vars, true)
	if !strings.HasPrefix(got, "xxxx") || !strings.HasSuffix(got, "@a@") {
		t.Errorf("Expand = %q, want a bounded expansion", got)
	}
}

func TestPortMacro(t *testing.T) {
	m := &Macros{Env: MapEnvironment{}}
	vars := NewVariables()
	vars.Set("BasePort", "7777")

	tests := []struct {
		targetDir string
		value     string
		want      string
	}{
		{"/toxikk/UDKGame/Config/DedicatedServer3", "@port,7000,10", "7020"},
		{`C:\TOXIKK\UDKGame\Config\DedicatedServer3`, "@Port, 7000, 10", "7020"},
		{"/toxikk/UDKGame/Config/DedicatedServer1", "@port,@BasePort@,1", "7777"},
		{"/toxikk/UDKGame/Config/dedicatedserver2", "@port,27015,-2", "27013"},
		{"/toxikk/UDKGame/Config", "@port,7000,10", "@port,7000,10"},
	}

	for _, tt := range tests {
		if got := m.Expand(tt.targetDir, tt.value, vars, true); got != tt.want {
			t.Errorf("Expand(%q, %q) = %q, want %q", tt.targetDir, tt.value, got, tt.want)
		}
	}
}

func TestSkillClassMacro(t *testing.T) {
	m := &Macros{Env: MapEnvironment{}}

	tests := map[string]string{
		"@sc,1":          "0",
		"@sc,2":          "1",
		"@sc,5":          "3",
		"@SkillClass,12": "8",
		"@sc,0":          "0",
		"@sc,99":         "8",
		"@skillclass, 9": "6",
	}
	for value, want := range tests {
		if got := m.Expand("", value, nil, true); got != want {
			t.Errorf("Expand(%q) = %q, want %q", value, got, want)
		}
	}
}

func TestEnvMacro(t *testing.T) {
	m := &Macros{Env: MapEnvironment{"SERVER_PW": "secret"}}

	if got := m.Expand("", "@env,SERVER_PW", nil, true); got != "secret" {
		t.Errorf("Expand(@env,SERVER_PW) = %q, want secret", got)
	}
	if got := m.Expand("", "@Env, MISSING", nil, true); got != "" {
		t.Errorf("Expand(@Env, MISSING) = %q, want empty", got)
	}
}

func TestIDMacro(t *testing.T) {
	m := &Macros{Env: MapEnvironment{}}

	if got := m.Expand("/cfg/DedicatedServer12", "@id", nil, true); got != "12" {
		t.Errorf("Expand(@id) = %q, want 12", got)
	}
	if got := m.Expand("/cfg", "@ID", nil, true); got != "" {
		t.Errorf("Expand(@ID) without profile = %q, want empty", got)
	}
}

func TestProfileID(t *testing.T) {
	m := &Macros{ProfilePrefix: "Server"}

	if id, ok := m.ProfileID("/cfg/Server7/"); !ok || id != 7 {
		t.Errorf("ProfileID = (%d, %v), want (7, true)", id, ok)
	}
	if _, ok := m.ProfileID("/cfg/DedicatedServer7"); ok {
		t.Error("ProfileID should not match a different prefix")
	}
	if _, ok := m.ProfileID("/cfg/ServerX"); ok {
		t.Error("ProfileID should require digits")
	}
}

func TestTargetBase(t *testing.T) {
	tests := map[string]string{
		`C:\Games\Config\DedicatedServer1`: "DedicatedServer1",
		"/games/config/DedicatedServer2/":  "DedicatedServer2",
		"Client":                           "Client",
	}
	for in, want := range tests {
		if got := TargetBase(in); got != want {
			t.Errorf("TargetBase(%q) = %q, want %q", in, got, want)
		}
	}
}
