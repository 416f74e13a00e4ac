package generator

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func expandAll(m *Macros, info LoopInfo, vars *Variables) []string {
	var out []string
	for _, combination := range info.Combinations {
		vars.BindLoop(combination)
		out = append(out, m.Expand("", info.Template, vars, true))
	}
	return out
}

func TestLoopCartesianProduct(t *testing.T) {
	m := &Macros{Env: MapEnvironment{}}
	vars := NewVariables()

	info := m.ExpandLoop("@loop {A,B}{X,Y}: @1@-@2@", "", vars)
	if !info.IsLoop {
		t.Fatal("Expected IsLoop")
	}
	want := [][]string{{"A", "X"}, {"A", "Y"}, {"B", "X"}, {"B", "Y"}}
	if diff := cmp.Diff(want, info.Combinations); diff != "" {
		t.Errorf("Combinations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A-X", "A-Y", "B-X", "B-Y"}, expandAll(m, info, vars)); diff != "" {
		t.Errorf("expanded values mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopSyntaxVariants(t *testing.T) {
	m := &Macros{Env: MapEnvironment{}}

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"template after last group", "@loop {1,2}Bot@1@", []string{"Bot1", "Bot2"}},
		{"spaces between groups", "@loop {a, b} {x} : @1@@2@", []string{"ax", "bx"}},
		{"custom separator", "@loop ; {a,b;c}{x}: @1@", []string{"a,b", "c"}},
		{"quoted separator", `@loop {"a,b",c}: [@1@]`, []string{"[a,b]", "[c]"}},
		{"quoted brace", `@loop {"}",x}: @1@`, []string{"}", "x"}},
		{"sub bindings", "@loop {Foo|1,Bar|2}: @1.1@=@1.2@", []string{"Foo=1", "Bar=2"}},
		{"three lists", "@LOOP {a,b}{c}{d,e}: @1@@2@@3@", []string{"acd", "ace", "bcd", "bce"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := NewVariables()
			got := expandAll(m, m.ExpandLoop(tt.raw, "", vars), vars)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestLoopListFromVariable(t *testing.T) {
	m := &Macros{Env: MapEnvironment{}}
	vars := NewVariables()
	vars.Set("Maps", "CC-Foundation,CC-Citadel")

	got := expandAll(m, m.ExpandLoop("@loop {@Maps@}: @1@", "", vars), vars)
	if diff := cmp.Diff([]string{"CC-Foundation", "CC-Citadel"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopMalformed(t *testing.T) {
	m, buf := newTestMacros(t)

	for _, raw := range []string{"@loop {A,B: x", "@loop nothing", "@loop"} {
		info := m.ExpandLoop(raw, "", NewVariables())
		if !info.IsLoop || len(info.Combinations) != 0 {
			t.Errorf("ExpandLoop(%q) = %+v, want a loop with zero combinations", raw, info)
		}
	}

	if got := strings.Count(buf.String(), "WARNING: bad @loop statement"); got != 3 {
		t.Errorf("Expected 3 warnings, got %d: %q", got, buf.String())
	}
}

func TestNotALoop(t *testing.T) {
	m := &Macros{Env: MapEnvironment{}}

	for _, raw := range []string{"@looped", "plain", ""} {
		info := m.ExpandLoop(raw, "", NewVariables())
		if info.IsLoop || len(info.Combinations) != 1 || info.Template != raw {
			t.Errorf("ExpandLoop(%q) = %+v, want the value unchanged", raw, info)
		}
	}
}
