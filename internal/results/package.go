// Package results derives post-processing results from a solved OSeMOSYS
// model. A Package answers lookups by name from the solver output, the model
// input or a formula over other names, computing each derived table at most
// once.
package results

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"osemosys_toolkit/internal/model"
)

// Formula derives one result from other tables of the package.
type Formula func(p *Package) (*model.Table, error)

// Package resolves named tables lazily and memoises derived results.
// It is not safe for concurrent use; use one Package per solution.
type Package struct {
	results  map[string]*model.Table
	data     map[string]*model.Table
	cache    map[string]*model.Table
	formulas map[string]Formula
	pending  map[string]bool

	logger   *slog.Logger
	callback Callback
}

// Option configures a Package.
type Option func(*Package)

// WithFormula registers f under name, replacing any built-in formula.
func WithFormula(name string, f Formula) Option {
	return func(p *Package) { p.formulas[name] = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Package) { p.logger = l }
}

// WithCallback sets the receiver of Calculate events.
func WithCallback(cb Callback) Option {
	return func(p *Package) { p.callback = cb }
}

// New builds a package over the solver results and the model input data.
// Neither map is modified.
func New(results, data map[string]*model.Table, opts ...Option) *Package {
	p := &Package{
		results:  results,
		data:     data,
		cache:    make(map[string]*model.Table),
		formulas: make(map[string]Formula, len(builtinFormulas)),
		pending:  make(map[string]bool),
		logger:   slog.Default(),
	}
	for name, f := range builtinFormulas {
		p.formulas[name] = f
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the table called name. Supplied results take precedence over
// input data, then over cached and freshly derived results.
func (p *Package) Get(name string) (*model.Table, error) {
	if t, ok := p.results[name]; ok {
		return t, nil
	}
	if t, ok := p.data[name]; ok {
		return t, nil
	}
	if t, ok := p.cache[name]; ok {
		cacheHits.Inc()
		return t, nil
	}

	f, ok := p.formulas[name]
	if !ok {
		return nil, &NotAvailableError{Name: name}
	}
	if p.pending[name] {
		return nil, fmt.Errorf("%w: %s", ErrCycle, name)
	}

	p.pending[name] = true
	defer delete(p.pending, name)

	start := time.Now()
	t, err := f(p)
	if err != nil {
		return nil, err
	}
	calculationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	resultsCalculated.WithLabelValues(name).Inc()
	p.logger.Debug("calculated result", "result", name, "rows", t.Len(), "elapsed", time.Since(start))

	p.cache[name] = t
	return t, nil
}

// Has reports whether name is supplied or has a formula.
func (p *Package) Has(name string) bool {
	if _, ok := p.results[name]; ok {
		return true
	}
	if _, ok := p.data[name]; ok {
		return true
	}
	_, ok := p.formulas[name]
	return ok
}

// Formulas lists the names of every derivable result.
func (p *Package) Formulas() []string {
	names := make([]string, 0, len(p.formulas))
	for name := range p.formulas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// need fetches the dependencies of result in order. The first one that is
// absent is reported as a MissingDataError. Any other failure, such as a
// malformed dependency, is wrapped as is.
func (p *Package) need(result string, names ...string) ([]*model.Table, error) {
	tables := make([]*model.Table, len(names))
	for i, name := range names {
		t, err := p.Get(name)
		if errors.Is(err, ErrMissingData) {
			return nil, &MissingDataError{Result: result, Err: err}
		}
		if err != nil {
			return nil, fmt.Errorf("calculating %s: %w", result, err)
		}
		tables[i] = t
	}
	return tables, nil
}

// optional fetches name, returning nil when it is simply not available.
func (p *Package) optional(name string) (*model.Table, error) {
	t, err := p.Get(name)
	var na *NotAvailableError
	if errors.As(err, &na) && na.Name == name {
		return nil, nil
	}
	return t, err
}
