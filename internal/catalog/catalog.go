// Package catalog holds the partner organizations eligible for
// recommendation. The catalog is read-only during normal operation; a new
// snapshot can be swapped in atomically while in-flight turns keep the one
// they started with.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/act-mass/pendo/internal/state"
)

// Entry is a static descriptor of one partner organization.
type Entry struct {
	Name          string                `json:"name"`
	Type          state.OpportunityType `json:"type"`
	Specialties   []string              `json:"specialties"`
	PriorityScore float64               `json:"priority_score"`
	Contact       string                `json:"contact,omitempty"`
	Roles         []string              `json:"roles,omitempty"`
}

// ServesRole reports whether the entry is in scope for a specialist role.
// An entry with no role tags serves every role.
func (e Entry) ServesRole(role state.SpecialistRole) bool {
	if len(e.Roles) == 0 {
		return true
	}
	for _, r := range e.Roles {
		if strings.EqualFold(r, string(role)) {
			return true
		}
	}
	return false
}

type snapshot struct {
	entries []Entry
}

// Catalog is a process-wide handle over the current partner snapshot.
type Catalog struct {
	current atomic.Pointer[snapshot]
}

// New builds a catalog from the given entries. Duplicate (name, type) pairs
// collapse to the last occurrence.
func New(entries []Entry) *Catalog {
	c := &Catalog{}
	c.Swap(entries)
	return c
}

// Swap atomically replaces the current snapshot.
func (c *Catalog) Swap(entries []Entry) {
	c.current.Store(&snapshot{entries: dedupe(entries)})
}

// ListEntries returns the current snapshot. The returned slice is shared and
// must be treated as read-only.
func (c *Catalog) ListEntries() []Entry {
	snap := c.current.Load()
	if snap == nil {
		return nil
	}
	return snap.entries
}

// EntriesForRole returns the subset of the current snapshot serving a role.
func (c *Catalog) EntriesForRole(role state.SpecialistRole) []Entry {
	all := c.ListEntries()
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.ServesRole(role) {
			out = append(out, e)
		}
	}
	return out
}

func dedupe(entries []Entry) []Entry {
	type key struct {
		name string
		typ  state.OpportunityType
	}
	index := make(map[key]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		k := key{name: strings.ToLower(strings.TrimSpace(e.Name)), typ: e.Type}
		if i, ok := index[k]; ok {
			out[i] = e
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}
	return out
}

// LoadFile reads a catalog snapshot from a JSON file.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
		switch e.Type {
		case state.OpportunityJob, state.OpportunityTraining, state.OpportunityNetworking, state.OpportunityResource:
		default:
			return nil, fmt.Errorf("catalog entry %q has unknown type %q", e.Name, e.Type)
		}
	}
	return entries, nil
}
