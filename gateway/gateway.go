package gateway

import (
	"sync"

	"github.com/cameroncuttingedge/tic_tac_toe_online/events"
	"github.com/cameroncuttingedge/tic_tac_toe_online/game"
	"github.com/cameroncuttingedge/tic_tac_toe_online/room"
	"github.com/rs/zerolog"
)

// Session is the room binding of one connection.
type Session struct {
	RoomCode string
	Symbol   game.Symbol
}

// Bound reports whether the connection is in a room.
func (s Session) Bound() bool {
	return s.RoomCode != "" && s.Symbol != game.None
}

// Gateway turns client commands into room operations. It is transport
// independent: the caller supplies connection ids and ships the acks, and
// room pushes go out through the Publisher.
type Gateway struct {
	registry  *room.Registry
	publisher events.Publisher
	logger    zerolog.Logger

	mu       sync.Mutex
	sessions map[string]Session
}

func New(registry *room.Registry, publisher events.Publisher, logger zerolog.Logger) *Gateway {
	return &Gateway{
		registry:  registry,
		publisher: publisher,
		logger:    logger,
		sessions:  make(map[string]Session),
	}
}

// Session returns the binding of connID.
func (g *Gateway) Session(connID string) Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[connID]
}

// Handle runs one command for connID. The second result is false for
// commands that are not acknowledged.
func (g *Gateway) Handle(connID string, req Request) (Ack, bool) {
	logger := g.logger.With().Str("conn", connID).Str("event", string(req.Event)).Logger()

	var ack Ack
	switch req.Event {
	case CreateRoom:
		ack = g.createRoom(connID)
	case JoinRoom:
		ack = g.joinRoom(connID, req)
	case PlayerMove:
		ack = g.playerMove(connID, req)
	case RequestRematch:
		ack = g.requestRematch(connID)
	case Leave:
		g.Disconnect(connID)
		logger.Debug().Msg("Connection left its room")
		return Ack{}, false
	default:
		ack = Fail(CodeBadRequest)
	}

	if ack.OK {
		logger.Debug().Msg("Command accepted")
	} else {
		logger.Info().Str("error", ack.Error).Msg("Command rejected")
	}
	return ack, true
}

// Disconnect vacates whatever slot connID holds and forgets its session.
// It never fails.
func (g *Gateway) Disconnect(connID string) {
	g.mu.Lock()
	s, ok := g.sessions[connID]
	delete(g.sessions, connID)
	g.mu.Unlock()

	if ok && s.Bound() {
		g.vacate(connID, s)
	}
}

func (g *Gateway) createRoom(connID string) Ack {
	r, err := g.registry.CreateRoom(connID)
	if err != nil {
		g.logger.Error().Err(err).Str("conn", connID).Msg("Failed to create room")
		return Fail(ErrorCode(err, CodeCreateFailed))
	}

	g.rebind(connID, Session{RoomCode: r.Code(), Symbol: game.PlayerX})

	state := r.PublicState()
	return Ack{OK: true, Code: r.Code(), Symbol: game.PlayerX, State: &state}
}

func (g *Gateway) joinRoom(connID string, req Request) Ack {
	code, ok := decodeJoin(req.Payload)
	if !ok {
		return Fail(CodeNotFound)
	}

	r, err := g.registry.Get(code)
	if err != nil {
		return Fail(ErrorCode(err, CodeNotFound))
	}
	res, err := r.Join(connID, g.publisher)
	if err != nil {
		return Fail(ErrorCode(err, CodeNotFound))
	}

	g.rebind(connID, Session{RoomCode: r.Code(), Symbol: res.Symbol})
	return Ack{OK: true, Code: r.Code(), Symbol: res.Symbol, State: &res.State}
}

func (g *Gateway) playerMove(connID string, req Request) Ack {
	r, ok := g.boundRoom(connID)
	if !ok {
		return Fail(CodeNoRoom)
	}
	if err := r.Move(connID, decodeIndex(req.Payload), g.publisher); err != nil {
		return Fail(ErrorCode(err, CodeNoRoom))
	}
	return Ack{OK: true}
}

func (g *Gateway) requestRematch(connID string) Ack {
	r, ok := g.boundRoom(connID)
	if !ok {
		return Fail(CodeNoRoom)
	}
	started, err := r.RequestRematch(connID, g.publisher)
	if err != nil {
		return Fail(ErrorCode(err, CodeNoRoom))
	}
	return Ack{OK: true, Started: &started}
}

func (g *Gateway) boundRoom(connID string) (*room.Room, bool) {
	s := g.Session(connID)
	if !s.Bound() {
		return nil, false
	}
	r, err := g.registry.Get(s.RoomCode)
	if err != nil {
		return nil, false
	}
	return r, true
}

// rebind stores the new session and leaves the previous room, if any.
func (g *Gateway) rebind(connID string, next Session) {
	g.mu.Lock()
	prev := g.sessions[connID]
	g.sessions[connID] = next
	g.mu.Unlock()

	if prev.Bound() && prev.RoomCode != next.RoomCode {
		g.logger.Info().
			Str("conn", connID).
			Str("from", prev.RoomCode).
			Str("to", next.RoomCode).
			Msg("Connection switched rooms")
		g.vacate(connID, prev)
	}
}

func (g *Gateway) vacate(connID string, s Session) {
	r, err := g.registry.Get(s.RoomCode)
	if err != nil {
		return
	}
	g.registry.Disconnect(r, connID, g.publisher)
}
