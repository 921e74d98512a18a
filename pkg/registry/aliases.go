// Package registry assigns short aliases to package registry endpoints.
//
// Cargo refers to alternative registries by name, declared under
// [registries] in .cargo/config.toml. An [AliasTable] hands out "reg1",
// "reg2", ... in first-seen order, so the same lockfile always produces the
// same aliases.
package registry

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// AliasPrefix is prepended to the sequence number of every alias.
const AliasPrefix = "reg"

// Entry is one alias assignment.
type Entry struct {
	Alias    string `json:"alias" yaml:"alias"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// AliasTable maps canonical registry endpoints to aliases.
//
// Equal endpoints always get the same alias, distinct endpoints always get
// distinct aliases, and an alias is never renumbered once assigned. The
// zero value is not usable; create tables with [NewAliasTable]. A table is
// not safe for concurrent use.
type AliasTable struct {
	aliases map[string]string
}

// NewAliasTable returns an empty table.
func NewAliasTable() *AliasTable {
	return &AliasTable{aliases: make(map[string]string)}
}

// EndpointKey returns the canonical key for a registry endpoint. Sparse and
// git-based indexes at the same URL are different endpoints.
func EndpointKey(endpoint string, sparse bool) string {
	if sparse {
		return "sparse+" + endpoint
	}
	return "registry+" + endpoint
}

// GetOrCreate returns the alias for endpoint, assigning the next free one
// on first use.
func (t *AliasTable) GetOrCreate(endpoint string) string {
	if alias, ok := t.aliases[endpoint]; ok {
		return alias
	}
	alias := fmt.Sprintf("%s%d", AliasPrefix, len(t.aliases)+1)
	t.aliases[endpoint] = alias
	return alias
}

// Lookup returns the alias of endpoint without assigning one.
func (t *AliasTable) Lookup(endpoint string) (string, bool) {
	alias, ok := t.aliases[endpoint]
	return alias, ok
}

// Len returns the number of assigned aliases.
func (t *AliasTable) Len() int { return len(t.aliases) }

// Entries returns all assignments in ascending endpoint order.
func (t *AliasTable) Entries() []Entry {
	out := make([]Entry, 0, len(t.aliases))
	for _, endpoint := range slices.Sorted(maps.Keys(t.aliases)) {
		out = append(out, Entry{Alias: t.aliases[endpoint], Endpoint: endpoint})
	}
	return out
}

// Snapshot returns an independent copy of the table.
func (t *AliasTable) Snapshot() *AliasTable {
	return &AliasTable{aliases: maps.Clone(t.aliases)}
}

// IndexURL returns the value cargo expects for the index of an endpoint
// key: git-based indexes are plain URLs, sparse ones keep their prefix.
func IndexURL(endpoint string) string {
	return strings.TrimPrefix(endpoint, "registry+")
}
