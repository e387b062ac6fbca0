package room

import (
	"sync"
	"time"

	"github.com/cameroncuttingedge/tic_tac_toe_online/events"
	"github.com/cameroncuttingedge/tic_tac_toe_online/game"
	"github.com/rs/zerolog"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
	StatusPlayerLeft Status = "player_left"
)

// PublicState is the part of a room that clients may see.
type PublicState struct {
	Code   string      `json:"code"`
	Board  game.Board  `json:"board"`
	Turn   game.Symbol `json:"turn"`
	Status Status      `json:"status"`
	Winner game.Symbol `json:"winner"`
}

// JoinResult is the binding handed to a connection that entered a room.
type JoinResult struct {
	Symbol game.Symbol
	State  PublicState
}

// Room is a single match between two connections. All methods are safe for
// concurrent use; each one runs under the room lock, events included, so
// every participant sees broadcasts in the order the mutations happened.
type Room struct {
	mu sync.Mutex

	code      string
	players   map[game.Symbol]string
	board     game.Board
	turn      game.Symbol
	status    Status
	winner    game.Symbol
	rematch   map[game.Symbol]struct{}
	createdAt time.Time
	updatedAt time.Time

	// closed is set once the room has no occupants and is on its way out
	// of the registry. A closed room behaves as if it did not exist.
	closed bool

	now    func() time.Time
	logger zerolog.Logger
}

func newRoom(code, ownerID string, now func() time.Time, logger zerolog.Logger) *Room {
	t := now()
	return &Room{
		code:      code,
		players:   map[game.Symbol]string{game.PlayerX: ownerID, game.PlayerO: ""},
		turn:      game.PlayerX,
		status:    StatusWaiting,
		rematch:   make(map[game.Symbol]struct{}),
		createdAt: t,
		updatedAt: t,
		now:       now,
		logger:    logger.With().Str("code", code).Logger(),
	}
}

func (r *Room) Code() string {
	return r.code
}

// PublicState returns a copy of the client-visible state.
func (r *Room) PublicState() PublicState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.publicState()
}

// Occupant returns the connection holding symbol, or "" if the slot is empty.
func (r *Room) Occupant(symbol game.Symbol) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.players[symbol]
}

// RematchRequests lists the symbols that asked to play again, X first.
func (r *Room) RematchRequests() []game.Symbol {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []game.Symbol
	for _, s := range []game.Symbol{game.PlayerX, game.PlayerO} {
		if _, ok := r.rematch[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *Room) CreatedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createdAt
}

func (r *Room) UpdatedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updatedAt
}

// Join puts connID into the first free slot, O before X. A connection that
// already holds a slot gets its existing binding back without a broadcast.
func (r *Room) Join(connID string, pub events.Publisher) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return JoinResult{}, ErrNotFound
	}
	if s := r.symbolOf(connID); s != game.None {
		return JoinResult{Symbol: s, State: r.publicState()}, nil
	}

	var symbol game.Symbol
	switch {
	case r.players[game.PlayerO] == "":
		symbol = game.PlayerO
	case r.players[game.PlayerX] == "":
		symbol = game.PlayerX
	default:
		return JoinResult{}, ErrRoomFull
	}

	refill := r.status == StatusPlayerLeft
	r.players[symbol] = connID
	r.updatedAt = r.now()

	full := r.occupied() == 2
	if full {
		if refill {
			// A refilled room starts a fresh match.
			r.reset()
		}
		r.status = StatusInProgress
	} else {
		r.status = StatusWaiting
	}

	r.logger.Info().
		Str("symbol", string(symbol)).
		Str("status", string(r.status)).
		Bool("refill", refill).
		Msg("Player joined room")

	r.broadcastState(pub)
	if full {
		if other := r.players[game.NextTurn(symbol)]; other != "" {
			pub.Publish(events.Event{
				Name:       events.OpponentJoined,
				RoomCode:   r.code,
				Recipients: []string{other},
			})
		}
	}

	return JoinResult{Symbol: symbol, State: r.publicState()}, nil
}

// Move places the caller's symbol at index (0-8, row-major). Index is
// validated only after the room, status and turn checks pass.
func (r *Room) Move(connID string, index int, pub events.Publisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbol := r.symbolOf(connID)
	if r.closed || symbol == game.None {
		return ErrNoRoom
	}
	if r.status != StatusInProgress {
		return ErrNotInProgress
	}
	if symbol != r.turn {
		return ErrNotYourTurn
	}
	if index < 0 || index >= game.Cells {
		return ErrBadIndex
	}
	if r.board[index] != game.None {
		return ErrCellTaken
	}

	r.board[index] = symbol
	r.updatedAt = r.now()

	outcome := game.Evaluate(r.board)
	switch outcome.Result {
	case game.Win:
		r.status = StatusFinished
		r.winner = outcome.Winner
	case game.Draw:
		r.status = StatusFinished
		r.winner = game.None
	default:
		r.turn = game.NextTurn(r.turn)
	}

	r.logger.Info().
		Str("symbol", string(symbol)).
		Int("index", index).
		Str("result", outcome.Result.String()).
		Msg("Move accepted")
	r.logger.Debug().Str("board", r.board.String()).Msg("Current board")

	r.broadcastState(pub)
	return nil
}

// RequestRematch records the caller's wish to play again. The board is reset
// once both symbols have asked; started reports whether that happened.
func (r *Room) RequestRematch(connID string, pub events.Publisher) (started bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbol := r.symbolOf(connID)
	if r.closed || symbol == game.None {
		return false, ErrNoRoom
	}

	r.rematch[symbol] = struct{}{}
	if other := r.players[game.NextTurn(symbol)]; other != "" {
		pub.Publish(events.Event{
			Name:       events.OpponentRequestedRematch,
			RoomCode:   r.code,
			Recipients: []string{other},
		})
	}

	_, x := r.rematch[game.PlayerX]
	_, o := r.rematch[game.PlayerO]
	if !x || !o {
		r.logger.Info().
			Str("symbol", string(symbol)).
			Int("rematchRequests", len(r.rematch)).
			Msg("Rematch requested, waiting for the other player")
		return false, nil
	}

	r.reset()
	r.status = StatusInProgress
	r.updatedAt = r.now()
	r.logger.Info().Msg("Both players requested rematch. Game state reset.")

	r.broadcastState(pub)
	return true, nil
}

// Disconnect vacates the slot held by connID. It reports whether a slot was
// vacated and whether the room is now empty; an empty room is closed and
// must be removed from its registry. Unknown connections are a no-op.
func (r *Room) Disconnect(connID string, pub events.Publisher) (vacated, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbol := r.symbolOf(connID)
	if r.closed || symbol == game.None {
		return false, false
	}

	r.players[symbol] = ""
	r.status = StatusPlayerLeft
	r.winner = game.None
	clear(r.rematch)
	r.updatedAt = r.now()

	if other := r.players[game.NextTurn(symbol)]; other != "" {
		pub.Publish(events.Event{
			Name:       events.OpponentLeft,
			RoomCode:   r.code,
			Recipients: []string{other},
		})
	}
	r.broadcastState(pub)

	empty = r.occupied() == 0
	if empty {
		r.closed = true
	}

	r.logger.Info().
		Str("symbol", string(symbol)).
		Bool("empty", empty).
		Msg("Player left room")
	return true, empty
}

// expire closes the room if nobody occupies it and it has been idle for
// longer than ttl. Already closed rooms are reported as expired.
func (r *Room) expire(now time.Time, ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return true
	}
	if r.occupied() > 0 || now.Sub(r.updatedAt) <= ttl {
		return false
	}
	r.closed = true
	return true
}

func (r *Room) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *Room) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Room) reset() {
	r.board = game.Board{}
	r.turn = game.PlayerX
	r.winner = game.None
	clear(r.rematch)
}

func (r *Room) symbolOf(connID string) game.Symbol {
	if connID == "" {
		return game.None
	}
	for _, s := range []game.Symbol{game.PlayerX, game.PlayerO} {
		if r.players[s] == connID {
			return s
		}
	}
	return game.None
}

func (r *Room) occupied() int {
	n := 0
	for _, id := range r.players {
		if id != "" {
			n++
		}
	}
	return n
}

func (r *Room) occupants() []string {
	var ids []string
	for _, s := range []game.Symbol{game.PlayerX, game.PlayerO} {
		if id := r.players[s]; id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Room) publicState() PublicState {
	return PublicState{
		Code:   r.code,
		Board:  r.board,
		Turn:   r.turn,
		Status: r.status,
		Winner: r.winner,
	}
}

func (r *Room) broadcastState(pub events.Publisher) {
	recipients := r.occupants()
	if len(recipients) == 0 {
		return
	}
	pub.Publish(events.Event{
		Name:       events.GameUpdate,
		RoomCode:   r.code,
		Recipients: recipients,
		Data:       r.publicState(),
	})
}
