package ws

import (
	"encoding/json"
	"sort"
	"time"

	"osemosys_toolkit/internal/ingest"
	"osemosys_toolkit/internal/model"
	"osemosys_toolkit/internal/store"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server messages

type RunPayload struct {
	Solver   string `json:"solver"`
	Solution string `json:"solution"`
}

type GetTablePayload struct {
	RunID string `json:"run_id"`
	Name  string `json:"name"`
}

// Server -> Client messages

type ServerInfoPayload struct {
	Inputs   []string  `json:"inputs"`
	Formulas []string  `json:"formulas"`
	Runs     []RunInfo `json:"runs"`
}

type RunInfo struct {
	RunID    string `json:"run_id"`
	Solver   string `json:"solver"`
	Started  string `json:"started"`
	Finished string `json:"finished"`
}

type SolutionParsedPayload struct {
	RunID      string   `json:"run_id"`
	Solver     string   `json:"solver"`
	Tables     []string `json:"tables"`
	NotFound   []string `json:"not_found"`
	Infeasible bool     `json:"infeasible"`
}

type ResultComputedPayload struct {
	RunID     string   `json:"run_id"`
	Name      string   `json:"name"`
	Dims      []string `json:"dims"`
	Rows      int      `json:"rows"`
	ElapsedMs float64  `json:"elapsed_ms"`
}

type ResultMissingPayload struct {
	RunID string `json:"run_id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

type ResultsDonePayload struct {
	RunID    string   `json:"run_id"`
	Computed []string `json:"computed"`
	Missing  []string `json:"missing"`
}

type ErrorPayload struct {
	RunID string `json:"run_id,omitempty"`
	Error string `json:"error"`
}

type TableRow struct {
	Key   []string `json:"key"`
	Value float64  `json:"value"`
}

type TablePayload struct {
	RunID string     `json:"run_id"`
	Name  string     `json:"name"`
	Dims  []string   `json:"dims"`
	Rows  []TableRow `json:"rows"`
}

// Message type constants
const (
	// Client -> Server
	TypeResultsRun = "results:run"
	TypeResultsGet = "results:get"

	// Server -> Client
	TypeServerInfo     = "server:info"
	TypeSolutionParsed = "solution:parsed"
	TypeResultComputed = "result:computed"
	TypeResultMissing  = "result:missing"
	TypeResultsDone    = "results:done"
	TypeResultsError   = "results:error"
	TypeResultTable    = "result:table"
)

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func SolutionParsedFromIngest(runID, solver string, sol *ingest.Solution) SolutionParsedPayload {
	tables := make([]string, 0, len(sol.Tables))
	for name := range sol.Tables {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return SolutionParsedPayload{
		RunID:      runID,
		Solver:     solver,
		Tables:     tables,
		NotFound:   nonNil(sol.NotFound),
		Infeasible: sol.Infeasible,
	}
}

func RunInfoFromStore(r *store.Run) RunInfo {
	return RunInfo{
		RunID:    r.ID,
		Solver:   r.Solver,
		Started:  r.Started.Format(time.RFC3339),
		Finished: r.Finished.Format(time.RFC3339),
	}
}

func TableFromModel(runID string, t *model.Table) TablePayload {
	rows := t.Rows()
	out := TablePayload{
		RunID: runID,
		Name:  t.Name,
		Dims:  t.Dims,
		Rows:  make([]TableRow, len(rows)),
	}
	for i, row := range rows {
		key := make([]string, len(row.Key))
		for j, l := range row.Key {
			key[j] = l.String()
		}
		out.Rows[i] = TableRow{Key: key, Value: row.Value}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
