// Package sources decides which holograms a run reads from.
//
// Three role holograms (memory, research, learning) are cached in the
// store and discovered from the API when the cache is incomplete. Project
// holograms come from a projects.json file maintained by other tooling.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/felixgeelhaar/kudzu-context/internal/kudzu"
	"github.com/felixgeelhaar/kudzu-context/internal/observe"
)

const (
	MemoryRole   = "MEMORY_ID"
	ResearchRole = "RESEARCH_ID"
	LearningRole = "LEARNING_ID"
)

// Roles lists the role holograms in fetch order.
var Roles = []string{MemoryRole, ResearchRole, LearningRole}

var purposeRoles = map[string]string{
	"claude_memory":   MemoryRole,
	"claude_research": ResearchRole,
	"claude_learning": LearningRole,
}

// ErrNoSources means neither the cache nor the API produced a hologram id.
var ErrNoSources = errors.New("no holograms found")

// IDs maps a role to its hologram id. Unknown roles map to "".
type IDs map[string]string

func emptyIDs() IDs {
	ids := make(IDs, len(Roles))
	for _, role := range Roles {
		ids[role] = ""
	}
	return ids
}

// Complete reports whether every role has an id.
func (ids IDs) Complete() bool {
	for _, role := range Roles {
		if ids[role] == "" {
			return false
		}
	}
	return true
}

// Any reports whether at least one role has an id.
func (ids IDs) Any() bool {
	for _, role := range Roles {
		if ids[role] != "" {
			return true
		}
	}
	return false
}

// Cache persists role ids between runs.
type Cache interface {
	LoadSourceIDs() (map[string]string, error)
	SaveSourceIDs(ids map[string]string) error
}

// Lister discovers holograms from the API.
type Lister interface {
	ListHolograms(ctx context.Context) ([]kudzu.Hologram, error)
}

type Resolver struct {
	cache   Cache
	lister  Lister
	observe *observe.Observer
}

// NewResolver builds a resolver. cache may be nil when no store is available.
func NewResolver(cache Cache, lister Lister, o *observe.Observer) *Resolver {
	return &Resolver{cache: cache, lister: lister, observe: o}
}

// Resolve returns the role ids for this run. Cached ids win over discovered
// ones; discovery only fills gaps. Cache failures never fail the run.
func (r *Resolver) Resolve(ctx context.Context) (IDs, error) {
	ids := emptyIDs()

	if r.cache != nil {
		cached, err := r.cache.LoadSourceIDs()
		if err != nil {
			r.observe.Log().Debug().Err(err).Msg("failed to load cached hologram ids")
		}
		for _, role := range Roles {
			ids[role] = cached[role]
		}
	}

	if ids.Complete() {
		return ids, nil
	}

	discovered := r.discover(ctx)
	for _, role := range Roles {
		if ids[role] == "" && discovered[role] != "" {
			ids[role] = discovered[role]
		}
	}

	if !ids.Any() {
		return ids, ErrNoSources
	}

	if r.cache != nil {
		if err := r.cache.SaveSourceIDs(ids); err != nil {
			r.observe.Log().Debug().Err(err).Msg("failed to cache hologram ids")
		}
	}
	return ids, nil
}

func (r *Resolver) discover(ctx context.Context) IDs {
	ids := emptyIDs()
	holograms, err := r.lister.ListHolograms(ctx)
	if err != nil {
		r.observe.Log().Debug().Err(err).Msg("hologram discovery failed")
		return ids
	}
	for _, h := range holograms {
		if role, ok := purposeRoles[h.Purpose]; ok {
			ids[role] = h.ID
		}
	}
	return ids
}

// Project is one entry of projects.json.
type Project struct {
	Name       string `json:"name"`
	Path       string `json:"path,omitempty"`
	HologramID string `json:"hologram_id"`
}

// ProjectIDs returns the hologram ids listed in a projects.json file whose
// project name matches one of patterns. No patterns selects every project.
// A missing or unreadable file yields no projects.
func ProjectIDs(path string, patterns []string) []string {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil
	}

	var file struct {
		Projects []Project `json:"projects"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil
	}

	var ids []string
	for _, p := range file.Projects {
		if p.HologramID == "" || !selected(p.Name, patterns) {
			continue
		}
		ids = append(ids, p.HologramID)
	}
	return ids
}

func selected(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if match, err := doublestar.Match(pattern, name); err == nil && match {
			return true
		}
	}
	return false
}
