package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"osemosys_toolkit/internal/config"
	"osemosys_toolkit/internal/ingest"
	"osemosys_toolkit/internal/model"
	"osemosys_toolkit/internal/results"
	"osemosys_toolkit/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler manages WebSocket connections and runs results requests. Each
// run parses its solution into a fresh results package.
type Handler struct {
	hub    *Hub
	schema config.Schema
	data   map[string]*model.Table
	years  []model.Label
	runs   *store.Store
	logger *slog.Logger
}

// NewHandler serves runs against the model input data. The YEAR set of data,
// when present, bounds CPLEX solutions.
func NewHandler(hub *Hub, schema config.Schema, data map[string]*model.Table, runs *store.Store) *Handler {
	h := &Handler{
		hub:    hub,
		schema: schema,
		data:   data,
		runs:   runs,
		logger: hub.logger,
	}
	if years, ok := data["YEAR"]; ok {
		h.years = years.Members()
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade", "error", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendServerInfo(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read", "error", err)
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.logger.Warn("invalid message", "error", err)
		return
	}

	switch env.Type {
	case TypeResultsRun:
		var p RunPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.logger.Warn("invalid results:run payload", "error", err)
			h.sendError(c, "", err)
			return
		}
		if p.Solver == "" || p.Solution == "" {
			h.sendError(c, "", errors.New("solver and solution are required"))
			return
		}
		go h.run(uuid.NewString(), p)

	case TypeResultsGet:
		var p GetTablePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.logger.Warn("invalid results:get payload", "error", err)
			h.sendError(c, "", err)
			return
		}
		// An empty run ID reads from the most recent run.
		if p.RunID == "" {
			if latest, ok := h.runs.Latest(); ok {
				p.RunID = latest.ID
			}
		}
		t, ok := h.runs.Table(p.RunID, p.Name)
		if !ok {
			h.sendError(c, p.RunID, errors.New("no result "+p.Name+" for run "+p.RunID))
			return
		}
		h.send(c, TypeResultTable, TableFromModel(p.RunID, t))

	default:
		h.logger.Warn("unknown message type", "type", env.Type)
	}
}

// run parses one solution, calculates every derivable result and stores
// the run. Progress is broadcast through a Bridge.
func (h *Handler) run(id string, p RunPayload) {
	started := time.Now()
	logger := h.logger.With("run_id", id, "solver", p.Solver)
	bridge := NewBridge(h.hub, id)

	sol, err := ingest.Parse(p.Solver, strings.NewReader(p.Solution), h.schema, h.years)
	if err != nil {
		logger.Error("parsing solution", "error", err)
		bridge.OnError(err)
		return
	}
	sol.Log(logger)
	bridge.OnParsed(p.Solver, sol)

	pkg := results.New(sol.Tables, h.data, results.WithLogger(logger), results.WithCallback(bridge))
	computed, missing, err := results.Calculate(pkg, h.schema.Calculated())
	if err != nil {
		logger.Warn("no results calculated", "error", err)
	}

	h.runs.AddRun(&store.Run{
		ID:         id,
		Solver:     p.Solver,
		Started:    started,
		Finished:   time.Now(),
		Infeasible: sol.Infeasible,
		NotFound:   sol.NotFound,
		Missing:    missing,
		Results:    computed,
	})
	logger.Info("run complete", "computed", len(computed), "missing", len(missing), "elapsed", time.Since(started))

	names := make([]string, 0, len(computed))
	for name := range computed {
		names = append(names, name)
	}
	sort.Strings(names)
	bridge.OnDone(names, missing)
}

func (h *Handler) sendServerInfo(c *Client) {
	inputs := make([]string, 0, len(h.data))
	for name := range h.data {
		inputs = append(inputs, name)
	}
	sort.Strings(inputs)

	runs := h.runs.Runs()
	info := ServerInfoPayload{
		Inputs:   inputs,
		Formulas: results.New(nil, nil).Formulas(),
		Runs:     make([]RunInfo, len(runs)),
	}
	for i, r := range runs {
		info.Runs[i] = RunInfoFromStore(r)
	}
	h.send(c, TypeServerInfo, info)
}

func (h *Handler) sendError(c *Client, runID string, err error) {
	h.send(c, TypeResultsError, ErrorPayload{RunID: runID, Error: err.Error()})
}

func (h *Handler) send(c *Client, msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		h.logger.Error("marshaling message", "type", msgType, "error", err)
		return
	}
	c.trySend(msg)
}
