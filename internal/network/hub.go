package network

import (
	"context"
	"encoding/json"

	"github.com/MRamiBalles/vitals/internal/domain/player"
	"github.com/MRamiBalles/vitals/internal/engine"
	"github.com/MRamiBalles/vitals/internal/platform/logger"
	"github.com/MRamiBalles/vitals/internal/platform/metrics"
	"github.com/MRamiBalles/vitals/internal/platform/optimization"
)

// Message types sent to views.
const (
	MsgTypeSnapshot = "snapshot"
	MsgTypeCell     = "cell"
)

// Message is the wire format pushed to every view.
//
// Seq is an event-log sequence number. On a cell message it is the seq of
// the CELL_CHANGED event; on a snapshot it is the newest seq the snapshot
// already covers. A view drops cell messages whose Seq is not above the
// last snapshot it applied.
type Message struct {
	Type     string        `json:"type"`
	Cell     string        `json:"cell,omitempty"`
	Value    int           `json:"value"`
	Snapshot *player.Stats `json:"snapshot,omitempty"`
	Tick     int64         `json:"tick"`
	Seq      int64         `json:"seq"`
}

// Stale reports whether a cell message is already covered by a snapshot
// taken at snapshotSeq.
func (m Message) Stale(snapshotSeq int64) bool {
	return m.Type == MsgTypeCell && m.Seq <= snapshotSeq
}

// Hub is the remote view of the store: it binds to every cell while it runs
// and fans each change out to the connected websocket clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	refresh    chan *Client
	done       chan struct{}
	logger     *logger.Logger
	metrics    *metrics.Collector
	engine     *engine.Engine
	tuning     *optimization.Config
}

// NewHub initializes a new WebSocket Hub for the engine's store.
func NewHub(eng *engine.Engine, log *logger.Logger, tuning *optimization.Config) *Hub {
	if tuning == nil {
		tuning = optimization.DefaultConfig()
	}
	return &Hub{
		broadcast:  make(chan []byte, tuning.BroadcastChannelBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		refresh:    make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     log,
		metrics:    metrics.Get(),
		engine:     eng,
		tuning:     tuning,
	}
}

// Run binds to the store and serves clients until ctx is done. On exit every
// binding is released and every client is disconnected.
func (h *Hub) Run(ctx context.Context) {
	unbinds := h.bind()
	defer func() {
		close(h.done)
		for _, unbind := range unbinds {
			unbind()
		}
		for client := range h.clients {
			h.drop(client)
		}
		h.logger.Info("WebSocket Hub shutting down.")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			if len(h.clients) >= h.tuning.MaxClients {
				h.logger.Warn("Client limit reached, rejecting connection")
				close(client.send)
				continue
			}
			h.clients[client] = true
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
			h.sendSnapshot(client)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("WebSocket client disconnected")
			}
		case client := <-h.refresh:
			if _, ok := h.clients[client]; ok {
				h.sendSnapshot(client)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				h.send(client, message)
			}
		}
	}
}

// enqueue hands a client to the Run loop. It gives up once the hub has
// stopped so that pumps never block on a dead hub.
func (h *Hub) enqueue(ch chan *Client, client *Client) bool {
	select {
	case ch <- client:
		return true
	case <-h.done:
		return false
	}
}

// bind subscribes to every cell. There is no mount render here: new clients
// get a full snapshot on register.
func (h *Hub) bind() []func() {
	cells := h.engine.Player().Cells()
	unbinds := make([]func(), 0, len(cells))
	for _, cell := range cells {
		name := cell.Name
		unbinds = append(unbinds, cell.Value.Subscribe(func(v int) {
			h.publish(Message{
				Type:  MsgTypeCell,
				Cell:  name,
				Value: v,
				Tick:  h.engine.TickNumber(),
				Seq:   h.engine.ChangeSeq(name),
			})
		}))
	}
	return unbinds
}

// publish is called from the store's notification path and must not block
// the writer: when the hub falls behind, the update is dropped.
func (h *Hub) publish(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Failed to serialize cell update for WebSocket broadcast: %v", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.metrics.RecordWSError()
		h.logger.Warn("Broadcast buffer full, dropping update for " + msg.Cell)
	}
}

// sendSnapshot reads the seq before the cells, so a change that lands in
// between is resent rather than skipped.
func (h *Hub) sendSnapshot(client *Client) {
	seq := h.engine.EventLog().LastSeq()
	snap := h.engine.Player().Snapshot()
	payload, err := json.Marshal(Message{Type: MsgTypeSnapshot, Snapshot: &snap, Tick: h.engine.TickNumber(), Seq: seq})
	if err != nil {
		h.logger.Errorf("Failed to serialize snapshot: %v", err)
		return
	}
	h.send(client, payload)
}

// send must only be called from Run.
func (h *Hub) send(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.metrics.RecordWSError()
		h.drop(client)
	}
}

// drop must only be called from Run.
func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.metrics.RecordWSConnection(-1)
}
