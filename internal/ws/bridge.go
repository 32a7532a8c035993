package ws

import (
	"time"

	"osemosys_toolkit/internal/ingest"
	"osemosys_toolkit/internal/model"
)

// Bridge implements results.Callback for a single run and broadcasts its
// events to the WebSocket hub.
type Bridge struct {
	hub   *Hub
	runID string
}

func NewBridge(hub *Hub, runID string) *Bridge {
	return &Bridge{hub: hub, runID: runID}
}

func (b *Bridge) OnParsed(solver string, sol *ingest.Solution) {
	b.broadcast(TypeSolutionParsed, SolutionParsedFromIngest(b.runID, solver, sol))
}

func (b *Bridge) OnResult(name string, t *model.Table, elapsed time.Duration) {
	b.broadcast(TypeResultComputed, ResultComputedPayload{
		RunID:     b.runID,
		Name:      name,
		Dims:      t.Dims,
		Rows:      t.Len(),
		ElapsedMs: float64(elapsed.Microseconds()) / 1000,
	})
}

func (b *Bridge) OnMissing(name string, err error) {
	b.broadcast(TypeResultMissing, ResultMissingPayload{
		RunID: b.runID,
		Name:  name,
		Error: err.Error(),
	})
}

func (b *Bridge) OnDone(computed, missing []string) {
	b.broadcast(TypeResultsDone, ResultsDonePayload{
		RunID:    b.runID,
		Computed: nonNil(computed),
		Missing:  nonNil(missing),
	})
}

func (b *Bridge) OnError(err error) {
	b.broadcast(TypeResultsError, ErrorPayload{RunID: b.runID, Error: err.Error()})
}

func (b *Bridge) broadcast(msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		b.hub.logger.Error("marshaling message", "type", msgType, "run_id", b.runID, "error", err)
		return
	}
	b.hub.Broadcast(msg)
}
