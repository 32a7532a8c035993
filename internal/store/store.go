package store

import (
	"sort"
	"sync"
	"time"

	"osemosys_toolkit/internal/model"
)

// Run is one processed solution and the results calculated from it.
type Run struct {
	ID         string
	Solver     string
	Started    time.Time
	Finished   time.Time
	Infeasible bool
	NotFound   []string
	Missing    []string
	Results    map[string]*model.Table
}

// Store holds completed runs in memory, indexed by run ID.
type Store struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string // run IDs sorted by start time
	limit int
}

// New returns a store keeping at most limit runs. Older runs are evicted
// first. A limit of 0 keeps every run.
func New(limit int) *Store {
	return &Store{
		runs:  make(map[string]*Run),
		limit: limit,
	}
}

// AddRun stores r, replacing any run with the same ID.
func (s *Store) AddRun(r *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[r.ID]; ok {
		s.removeLocked(r.ID)
	}
	s.runs[r.ID] = r

	idx := sort.Search(len(s.order), func(i int) bool {
		return s.runs[s.order[i]].Started.After(r.Started)
	})
	s.order = append(s.order, "")
	copy(s.order[idx+1:], s.order[idx:])
	s.order[idx] = r.ID

	for s.limit > 0 && len(s.order) > s.limit {
		s.removeLocked(s.order[0])
	}
}

func (s *Store) removeLocked(id string) {
	delete(s.runs, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Run returns the run with the given ID.
func (s *Store) Run(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok
}

// Runs returns all stored runs, oldest first.
func (s *Store) Runs() []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*Run, len(s.order))
	for i, id := range s.order {
		runs[i] = s.runs[id]
	}
	return runs
}

// Latest returns the most recently started run.
func (s *Store) Latest() (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, false
	}
	return s.runs[s.order[len(s.order)-1]], true
}

// Table returns one result table of a run.
func (s *Store) Table(runID, name string) (*model.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	t, ok := r.Results[name]
	return t, ok
}

// RunCount returns the number of stored runs.
func (s *Store) RunCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
