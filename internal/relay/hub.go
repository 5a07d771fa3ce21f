// Package relay is the live room relay: websocket clients join driver and ride rooms and
// receive the events emitted to them. Delivery is best effort.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/example/voyya/internal/models"
	"github.com/example/voyya/internal/observability"
)

const (
	sendBuffer     = 256
	brokerBuffer   = 1024
	pingInterval   = 50 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 64 << 10
)

// Broker carries emits to other instances.
type Broker interface {
	Publish(ctx context.Context, m Message) error
}

// LocationSink receives driver locations reported over the socket.
type LocationSink interface {
	PublishLocation(ctx context.Context, loc models.DriverLocation) error
}

// Message is an emit as seen by the broker. An empty Room addresses every client.
type Message struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

type client struct {
	id    string
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]struct{} // guarded by Hub.mu
}

type Hub struct {
	id  string
	log *slog.Logger
	now func() time.Time

	mu      sync.RWMutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}

	broker   Broker
	outbox   chan Message
	stop     chan struct{}
	stopOnce sync.Once
	sink     LocationSink
	upgrader websocket.Upgrader
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		id:      uuid.NewString(),
		log:     log.With("component", "relay"),
		now:     func() time.Time { return time.Now().UTC() },
		clients: make(map[*client]struct{}),
		rooms:   make(map[string]map[*client]struct{}),
		stop:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// InstanceID tags messages this hub hands to the broker.
func (h *Hub) InstanceID() string { return h.id }

// SetBroker starts forwarding emits to b. Call it once, before serving.
func (h *Hub) SetBroker(b Broker) {
	h.broker = b
	h.outbox = make(chan Message, brokerBuffer)
	go h.publishLoop(b, h.outbox)
}

func (h *Hub) SetLocationSink(s LocationSink) { h.sink = s }

// SetCheckOrigin restricts websocket origins; the default accepts all.
func (h *Hub) SetCheckOrigin(fn func(r *http.Request) bool) { h.upgrader.CheckOrigin = fn }

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws_upgrade_failed", "err", err)
		return
	}
	c := &client{
		id:    uuid.NewString(),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	observability.RelayConnections.Inc()
	h.log.Debug("ws_connected", "conn_id", c.id, "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("ws_read_error", "conn_id", c.id, "err", err)
			}
			return
		}
		h.handle(c, raw)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	close(c.send)
	h.mu.Unlock()
	observability.RelayConnections.Dec()
	h.log.Debug("ws_disconnected", "conn_id", c.id)
}

func (h *Hub) join(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members := h.rooms[room]
	if members == nil {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *client, room string) {
	delete(c.rooms, room)
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomSize reports how many local connections are in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// handle applies one client message. Bad input is logged and dropped.
func (h *Hub) handle(c *client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		h.log.Debug("ws_bad_frame", "conn_id", c.id, "err", err)
		return
	}
	observability.RelayEvents.WithLabelValues(env.Event, "in").Inc()

	var err error
	switch env.Event {
	case EventDriverJoin, EventDriverLeave, EventRideJoin, EventRideLeave:
		var id int64
		if id, err = parseID(env.Data); err != nil {
			break
		}
		switch env.Event {
		case EventDriverJoin:
			h.join(c, DriverRoom(id))
		case EventDriverLeave:
			h.leave(c, DriverRoom(id))
		case EventRideJoin:
			h.join(c, RideRoom(id))
		case EventRideLeave:
			h.leave(c, RideRoom(id))
		}
	case EventDriverLocation:
		var in locationIn
		if err = json.Unmarshal(env.Data, &in); err != nil {
			break
		}
		loc := models.DriverLocation{DriverID: in.DriverID, Latitude: in.Latitude, Longitude: in.Longitude, Timestamp: h.now()}
		h.BroadcastDriverLocation(loc)
		observability.DriverLocationUpdates.WithLabelValues("socket").Inc()
		if h.sink != nil {
			go h.sinkLocation(loc)
		}
	case EventRideStatus:
		var in statusIn
		if err = json.Unmarshal(env.Data, &in); err != nil {
			break
		}
		h.EmitToRoom(RideRoom(in.RideID), EventStatusUpdate, StatusUpdate{RideID: in.RideID, Status: in.Status, Timestamp: h.now()})
	case EventRideRequest:
		var in requestIn
		if err = json.Unmarshal(env.Data, &in); err != nil {
			break
		}
		h.EmitToRoom(DriverRoom(in.DriverID), EventRequestNew, RequestNew{RideID: in.RideID, PickupLocation: in.PickupLocation, Timestamp: h.now()})
	case EventRideAccepted:
		var in acceptedIn
		if err = json.Unmarshal(env.Data, &in); err != nil {
			break
		}
		h.EmitToRoom(RideRoom(in.RideID), EventAcceptedUpdate, AcceptedUpdate{DriverID: in.DriverID, DriverName: in.DriverName, Timestamp: h.now()})
	default:
		h.log.Debug("ws_unknown_event", "conn_id", c.id, "event", env.Event)
		return
	}
	if err != nil {
		h.log.Debug("ws_bad_payload", "conn_id", c.id, "event", env.Event, "err", err)
	}
}

func (h *Hub) sinkLocation(loc models.DriverLocation) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.sink.PublishLocation(ctx, loc); err != nil {
		h.log.Warn("location_sink_failed", "driver_id", loc.DriverID, "err", err)
	}
}

// EmitToRoom sends an event to every connection in room, here and on other instances.
func (h *Hub) EmitToRoom(room, event string, data any) {
	h.emit(room, event, data)
}

// EmitToAll sends an event to every connection.
func (h *Hub) EmitToAll(event string, data any) {
	h.emit("", event, data)
}

func (h *Hub) BroadcastDriverLocation(loc models.DriverLocation) {
	h.EmitToRoom(DriverRoom(loc.DriverID), EventLocationUpdate, LocationUpdate{
		DriverID:  loc.DriverID,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Timestamp: loc.Timestamp,
	})
}

func (h *Hub) NotifyRideStatus(rideID int64, status models.RideStatus) {
	h.EmitToRoom(RideRoom(rideID), EventStatusUpdate, StatusUpdate{RideID: rideID, Status: string(status), Timestamp: h.now()})
}

func (h *Hub) NotifyDriverArrival(rideID, driverID int64, driverName string) {
	h.EmitToRoom(RideRoom(rideID), EventDriverArrived, DriverArrived{DriverID: driverID, DriverName: driverName, Timestamp: h.now()})
}

func (h *Hub) NotifyRideCompletion(rideID int64, fare float64) {
	h.EmitToRoom(RideRoom(rideID), EventRideCompleted, RideCompleted{RideID: rideID, Fare: fare, Timestamp: h.now()})
}

func (h *Hub) emit(room, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.log.Error("relay_encode_failed", "event", event, "err", err)
		return
	}
	m := Message{Origin: h.id, Room: room, Event: event, Data: payload}
	h.deliver(m)
	if h.outbox == nil {
		return
	}
	select {
	case h.outbox <- m:
	default:
		observability.RelayDropped.Inc()
		h.log.Warn("relay_broker_backlog", "event", event)
	}
}

func (h *Hub) publishLoop(b Broker, out <-chan Message) {
	for {
		select {
		case <-h.stop:
			return
		case m := <-out:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := b.Publish(ctx, m)
			cancel()
			if err != nil {
				h.log.Warn("relay_broker_publish_failed", "event", m.Event, "err", err)
			}
		}
	}
}

// Deliver hands a message received from the broker to local connections. Messages this
// instance published itself are ignored.
func (h *Hub) Deliver(m Message) {
	if m.Origin == h.id {
		return
	}
	h.deliver(m)
}

func (h *Hub) deliver(m Message) {
	frame, err := json.Marshal(Envelope{Event: m.Event, Data: m.Data})
	if err != nil {
		return
	}
	observability.RelayEvents.WithLabelValues(m.Event, "out").Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()
	targets := h.clients
	if m.Room != "" {
		targets = h.rooms[m.Room]
	}
	for c := range targets {
		select {
		case c.send <- frame:
		default:
			observability.RelayDropped.Inc()
			h.log.Debug("relay_drop", "conn_id", c.id, "event", m.Event)
		}
	}
}

// Close stops broker forwarding and disconnects every client.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.RUnlock()
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"), time.Now().Add(time.Second))
		_ = conn.Close()
	}
}
