package platform

import (
	"sort"

	"github.com/dailylance/crowdscrape/internal/relevance"
	"github.com/dailylance/crowdscrape/internal/render"
)

// Metadata describes a supported platform for discovery endpoints.
type Metadata struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Language    string `json:"language"`
	Currency    string `json:"currency"`
}

// Registry creates adapters by platform id.
type Registry struct {
	adapters map[string]Adapter
	meta     map[string]Metadata
}

// NewRegistry wires every supported adapter with shared collaborators.
func NewRegistry(renderer render.Renderer, filter *relevance.Filter, cfg Config) *Registry {
	base := site{renderer: renderer, filter: filter, cfg: cfg.withDefaults()}

	r := &Registry{
		adapters: make(map[string]Adapter),
		meta:     make(map[string]Metadata),
	}
	r.register(newKickstarter(base), Metadata{DisplayName: "Kickstarter", Language: "english", Currency: "$"})
	r.register(newIndiegogo(base), Metadata{DisplayName: "Indiegogo", Language: "english", Currency: "$"})
	r.register(newMakuake(base), Metadata{DisplayName: "Makuake", Language: "japanese", Currency: "¥"})
	r.register(newCampfire(base), Metadata{DisplayName: "CAMPFIRE", Language: "japanese", Currency: "¥"})
	r.register(newWadiz(base), Metadata{DisplayName: "Wadiz", Language: "korean", Currency: "₩"})
	r.register(newGreenFunding(base), Metadata{DisplayName: "GREEN FUNDING", Language: "japanese", Currency: "¥"})
	return r
}

func (r *Registry) register(a Adapter, meta Metadata) {
	meta.ID = a.Name()
	r.adapters[a.Name()] = a
	r.meta[a.Name()] = meta
}

// Get returns the adapter for a platform id, or ErrUnsupportedPlatform.
func (r *Registry) Get(id string) (Adapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, ErrUnsupportedPlatform
	}
	return a, nil
}

// Platforms lists supported platforms sorted by id.
func (r *Registry) Platforms() []Metadata {
	out := make([]Metadata, 0, len(r.meta))
	for _, m := range r.meta {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Categories returns a platform's taxonomy. Unknown ids get an empty map so
// discovery endpoints degrade instead of erroring.
func (r *Registry) Categories(id string) map[string]map[string]string {
	a, ok := r.adapters[id]
	if !ok {
		return map[string]map[string]string{}
	}
	return a.Categories()
}
