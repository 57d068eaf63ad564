// Package filter derives the visible, ordered subset of pipelines from the
// live/test and active/stopped facet toggles.
package filter

import (
	"sort"
	"sync"

	"pipeline-dashboard-go/internal/models"
)

// EmptyMessage is shown when no pipeline matches the chosen facets.
const EmptyMessage = "There are no trading bots matching the chosen filters."

// Options are the facet toggles. Facets are OR-ed within a dimension and
// AND-ed across dimensions.
type Options struct {
	Live    bool `json:"live"`
	Test    bool `json:"test"`
	Active  bool `json:"active"`
	Stopped bool `json:"stopped"`
}

// DefaultOptions shows every pipeline.
func DefaultOptions() Options {
	return Options{Live: true, Test: true, Active: true, Stopped: true}
}

// Match reports whether p passes both facet dimensions.
func (o Options) Match(p models.Pipeline) bool {
	activity := (p.Active && o.Active) || (!p.Active && o.Stopped)
	mode := (p.PaperTrading && o.Test) || (!p.PaperTrading && o.Live)
	return activity && mode
}

// Toggle carries the facets to change; nil fields are left untouched.
type Toggle struct {
	Live    *bool `json:"live,omitempty"`
	Test    *bool `json:"test,omitempty"`
	Active  *bool `json:"active,omitempty"`
	Stopped *bool `json:"stopped,omitempty"`
}

// Apply returns o with the toggled facets replaced.
func (o Options) Apply(t Toggle) Options {
	if t.Live != nil {
		o.Live = *t.Live
	}
	if t.Test != nil {
		o.Test = *t.Test
	}
	if t.Active != nil {
		o.Active = *t.Active
	}
	if t.Stopped != nil {
		o.Stopped = *t.Stopped
	}
	return o
}

// Pipelines returns the ids of the matching pipelines, active ones first.
// The relative input order is preserved otherwise.
func Pipelines(pipelines []models.Pipeline, opts Options) []int64 {
	matched := make([]models.Pipeline, 0, len(pipelines))
	for _, p := range pipelines {
		if opts.Match(p) {
			matched = append(matched, p)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Active && !matched[j].Active
	})

	ids := make([]int64, len(matched))
	for i, p := range matched {
		ids[i] = p.ID
	}
	return ids
}

// Source provides the ordered pipelines and the version they were read at.
type Source interface {
	PipelinesSnapshot() ([]models.Pipeline, uint64)
}

// Engine memoizes the filtered ids and recomputes them only when the source's
// pipeline version or the options change.
type Engine struct {
	source Source

	mu           sync.Mutex
	options      Options
	computed     bool
	lastVersion  uint64
	lastOptions  Options
	visible      []int64
	recomputeCnt int
}

// NewEngine creates an engine showing every pipeline.
func NewEngine(source Source) *Engine {
	return &Engine{source: source, options: DefaultOptions()}
}

// Options returns the current facet toggles.
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.options
}

// SetOptions replaces the facet toggles.
func (e *Engine) SetOptions(o Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.options = o
}

// Toggle changes individual facets and returns the resulting options.
func (e *Engine) Toggle(t Toggle) Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.options = e.options.Apply(t)
	return e.options
}

// Visible returns the filtered, ordered pipeline ids.
func (e *Engine) Visible() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	pipelines, version := e.source.PipelinesSnapshot()
	if !e.computed || version != e.lastVersion || e.options != e.lastOptions {
		e.visible = Pipelines(pipelines, e.options)
		e.lastVersion = version
		e.lastOptions = e.options
		e.computed = true
		e.recomputeCnt++
	}

	out := make([]int64, len(e.visible))
	copy(out, e.visible)
	return out
}

// Recomputations reports how many times the filter actually ran.
func (e *Engine) Recomputations() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recomputeCnt
}
