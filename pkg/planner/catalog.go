// Package planner turns a natural-language query into an a2a.ExecutionPlan,
// either via an LLM prompted with the static agent catalog (autonomous.go)
// or via a deterministic keyword fallback (fallback.go), per SPEC_FULL.md
// §4.4. Adapted from pkg/routing.
package planner

import "sort"

// CatalogEntry describes one agent available to the planner: its id, a
// free-text description for the LLM prompt, and a keyword vocabulary used
// by the deterministic fallback.
type CatalogEntry struct {
	AgentID     string
	Description string
	Keywords    []string
}

// Catalog is the static, declaration-ordered list of agents the planner may
// target. Declaration order breaks ties in the fallback planner, per
// SPEC_FULL.md §4.4.
type Catalog struct {
	entries []CatalogEntry
	index   map[string]int
}

// NewCatalog builds a Catalog preserving the given declaration order.
func NewCatalog(entries []CatalogEntry) *Catalog {
	idx := make(map[string]int, len(entries))
	for i, e := range entries {
		idx[e.AgentID] = i
	}
	return &Catalog{entries: entries, index: idx}
}

// Entries returns the catalog in declaration order.
func (c *Catalog) Entries() []CatalogEntry {
	out := make([]CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Has reports whether agentID exists in the catalog.
func (c *Catalog) Has(agentID string) bool {
	_, ok := c.index[agentID]
	return ok
}

// Order returns the declaration index of agentID, or -1 if absent. Used to
// break fallback-planner ties by earliest declaration.
func (c *Catalog) Order(agentID string) int {
	if i, ok := c.index[agentID]; ok {
		return i
	}
	return -1
}

// PromptSummary renders the catalog into the "id: description" lines the
// LLM prompt lists, in declaration order.
func (c *Catalog) PromptSummary() string {
	sorted := append([]CatalogEntry(nil), c.entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return c.Order(sorted[i].AgentID) < c.Order(sorted[j].AgentID) })
	out := ""
	for _, e := range sorted {
		out += e.AgentID + ": " + e.Description + "\n"
	}
	return out
}
