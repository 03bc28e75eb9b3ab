package dispatch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
)

// Route is one worker endpoint: the dispatch request goes to BaseURL + Path.
type Route struct {
	BaseURL string `yaml:"base_url"`
	Path    string `yaml:"path"`
}

// Table maps job types to worker routes. It is built once at startup and
// never mutated; hand a fake map to NewTable in tests.
type Table struct {
	routes map[domain.JobType]Route
}

// NewTable builds a dispatch table from an explicit mapping.
func NewTable(routes map[domain.JobType]Route) *Table {
	copied := make(map[domain.JobType]Route, len(routes))
	for t, r := range routes {
		copied[t] = r
	}
	return &Table{routes: copied}
}

// Route returns the worker route for a job type. A missing entry is a
// deployment defect, reported as domain.ErrNoWorkerRoute.
func (t *Table) Route(jobType domain.JobType) (Route, error) {
	r, ok := t.routes[jobType]
	if !ok {
		return Route{}, fmt.Errorf("%w: %s", domain.ErrNoWorkerRoute, jobType)
	}
	return r, nil
}

// Types returns the job types the table can dispatch.
func (t *Table) Types() []domain.JobType {
	types := make([]domain.JobType, 0, len(t.routes))
	for jt := range t.routes {
		types = append(types, jt)
	}
	return types
}

type tableFile struct {
	Workers map[string]Route `yaml:"workers"`
}

// LoadTable reads a worker routing file. The file may configure a subset of
// the known job types; unknown keys and incomplete routes fail fast.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workers config: %w", err)
	}
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse workers config: %w", err)
	}
	routes := make(map[domain.JobType]Route, len(f.Workers))
	for key, r := range f.Workers {
		jt := domain.JobType(key)
		if !domain.ValidJobType(jt) {
			return nil, fmt.Errorf("workers config: unknown job type %q", key)
		}
		if r.BaseURL == "" || r.Path == "" {
			return nil, fmt.Errorf("workers config: %s needs base_url and path", key)
		}
		routes[jt] = r
	}
	return NewTable(routes), nil
}
