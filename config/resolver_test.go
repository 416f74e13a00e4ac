package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const scopedConfig = `
[Foo:hostA]
Key=specific
[Foo]
Key=generic
[Foo:!hostB]
Key=negated
[Foo:hostC,hostD]
Key=other
[Foobar]
Key=unrelated
[Foo:!hostA]
Key=excluded
`

func sectionNames(secs []*Section) []string {
	names := make([]string, 0, len(secs))
	for _, s := range secs {
		names = append(names, s.Name())
	}
	return names
}

func TestApplicableSections(t *testing.T) {
	f, err := ParseString(scopedConfig)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	tests := []struct {
		host              string
		mostSpecificFirst bool
		want              []string
	}{
		{"hostA", false, []string{"Foo", "Foo:!hostB", "Foo:hostA"}},
		{"hostA", true, []string{"Foo:hostA", "Foo:!hostB", "Foo"}},
		{"HOSTB", false, []string{"Foo", "Foo:!hostA"}},
		{"hostD", false, []string{"Foo", "Foo:!hostB", "Foo:!hostA", "Foo:hostC,hostD"}},
	}

	for _, tt := range tests {
		r := NewResolver(tt.host, nil)
		got := sectionNames(r.ApplicableSections(f, "foo", tt.mostSpecificFirst))
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("host %s, mostSpecificFirst=%v (-want +got):\n%s", tt.host, tt.mostSpecificFirst, diff)
		}
	}
}

func TestResolverHostsTable(t *testing.T) {
	f, err := ParseString(`
[Hosts]
Cluster=box1, box2
Solo=box3

[ServerLauncher]
ToxikkDir=default
[ServerLauncher:Cluster]
ToxikkDir=cluster
`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	r := NewResolver("BOX2", f.GetSection("Hosts", false))
	if r.Host() != "Cluster" {
		t.Errorf("Host() = %q, want Cluster", r.Host())
	}
	if r.MachineName() != "BOX2" {
		t.Errorf("MachineName() = %q, want BOX2", r.MachineName())
	}

	sec := r.FirstApplicable(f, "ServerLauncher")
	if sec == nil {
		t.Fatal("Expected an applicable ServerLauncher section")
	}
	if val := sec.GetString("ToxikkDir", ""); val != "cluster" {
		t.Errorf("ToxikkDir = %q, want cluster", val)
	}

	unmapped := NewResolver("box9", f.GetSection("Hosts", false))
	if unmapped.Host() != "box9" {
		t.Errorf("Host() = %q, want box9", unmapped.Host())
	}
	if got := sectionNames(unmapped.ApplicableSections(f, "ServerLauncher", false)); len(got) != 1 {
		t.Errorf("ApplicableSections = %v, want only the generic section", got)
	}
}

func TestResolverMatchesPhysicalName(t *testing.T) {
	f, err := ParseString("[Foo:box1]\nKey=1\n[Foo:!box1]\nKey=2\n")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	hosts, _ := ParseString("[Hosts]\nCluster=box1\n")

	r := NewResolver("box1", hosts.GetSection("Hosts", false))
	got := sectionNames(r.ApplicableSections(f, "Foo", false))
	if diff := cmp.Diff([]string{"Foo:box1"}, got); diff != "" {
		t.Errorf("ApplicableSections mismatch (-want +got):\n%s", diff)
	}
}
