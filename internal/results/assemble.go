package results

import (
	"errors"
	"sort"
	"time"

	"osemosys_toolkit/internal/model"
)

// Callback receives Calculate events.
type Callback interface {
	OnResult(name string, t *model.Table, elapsed time.Duration)
	OnMissing(name string, err error)
}

// Calculate produces every requested result it can, in name order. Results
// that cannot be produced are logged, reported to the callback and listed in
// missing. An error is returned only when nothing could be produced.
func Calculate(p *Package, names []string) (map[string]*model.Table, []string, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	out := make(map[string]*model.Table, len(sorted))
	var missing []string
	for _, name := range sorted {
		start := time.Now()
		t, err := p.Get(name)
		if err != nil {
			if errors.Is(err, ErrMissingData) {
				p.logger.Info("no calculation available", "result", name)
				p.logger.Debug("missing data for result", "result", name, "error", err)
			} else {
				p.logger.Warn("error calculating result", "result", name, "error", err)
			}
			resultsMissing.WithLabelValues(name).Inc()
			missing = append(missing, name)
			if p.callback != nil {
				p.callback.OnMissing(name, err)
			}
			continue
		}

		out[name] = t
		if p.callback != nil {
			p.callback.OnResult(name, t, time.Since(start))
		}
	}

	if len(out) == 0 && len(sorted) > 0 {
		return nil, missing, ErrNoResults
	}
	return out, missing, nil
}
