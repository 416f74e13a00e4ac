package config

import (
	"strings"
)

// scope describes how a concrete section relates to a logical section name
type scope int

const (
	scopeNone    scope = iota // not applicable to this host
	scopeGeneric              // [Name]
	scopeNegated              // [Name:!other] that does not exclude this host
	scopeHost                 // [Name:host] that names this host
)

// Resolver finds the sections that apply to the current machine
type Resolver struct {
	machine string
	host    string
}

// NewResolver creates a Resolver for machineName.
// When hosts is non-nil, a key whose value list contains machineName becomes the
// logical host name (e.g. "Cluster=box1,box2" maps box1 and box2 to "Cluster").
func NewResolver(machineName string, hosts *Section) *Resolver {
	r := &Resolver{machine: machineName, host: machineName}
	if hosts == nil {
		return r
	}

	for _, key := range hosts.Keys() {
		for _, e := range hosts.GetAll(key) {
			for _, m := range SplitUnquoted(e.Value, ',') {
				if strings.EqualFold(strings.Trim(strings.TrimSpace(m), `"`), machineName) {
					r.host = key
					return r
				}
			}
		}
	}
	return r
}

// Host returns the logical host name used for section resolution
func (r *Resolver) Host() string {
	return r.host
}

// MachineName returns the physical machine name the resolver was created with
func (r *Resolver) MachineName() string {
	return r.machine
}

// ApplicableSections returns every section of f that applies to this host for logicalName.
// Generic sections come first, then negated-scope sections, then sections naming the host;
// mostSpecificFirst reverses that order.
func (r *Resolver) ApplicableSections(f *File, logicalName string, mostSpecificFirst bool) []*Section {
	if f == nil {
		return nil
	}

	var generic, negated, specific []*Section
	for _, sec := range f.sections {
		switch r.scopeOf(sec.name, logicalName) {
		case scopeGeneric:
			generic = append(generic, sec)
		case scopeNegated:
			negated = append(negated, sec)
		case scopeHost:
			specific = append(specific, sec)
		}
	}

	result := make([]*Section, 0, len(generic)+len(negated)+len(specific))
	result = append(result, generic...)
	result = append(result, negated...)
	result = append(result, specific...)

	if mostSpecificFirst {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	return result
}

// FirstApplicable returns the most specific applicable section, or nil
func (r *Resolver) FirstApplicable(f *File, logicalName string) *Section {
	secs := r.ApplicableSections(f, logicalName, true)
	if len(secs) == 0 {
		return nil
	}
	return secs[0]
}

// scopeOf classifies sectionName against logicalName for this host
func (r *Resolver) scopeOf(sectionName, logicalName string) scope {
	if strings.EqualFold(sectionName, logicalName) {
		return scopeGeneric
	}

	prefix := logicalName + ":"
	if len(sectionName) <= len(prefix) || !strings.EqualFold(sectionName[:len(prefix)], prefix) {
		return scopeNone
	}

	hostList := strings.TrimSpace(sectionName[len(prefix):])
	negate := strings.HasPrefix(hostList, "!")
	if negate {
		hostList = hostList[1:]
	}

	listed := false
	for _, h := range strings.Split(hostList, ",") {
		h = strings.TrimSpace(h)
		if strings.EqualFold(h, r.host) || strings.EqualFold(h, r.machine) {
			listed = true
			break
		}
	}

	switch {
	case negate && !listed:
		return scopeNegated
	case !negate && listed:
		return scopeHost
	default:
		return scopeNone
	}
}
