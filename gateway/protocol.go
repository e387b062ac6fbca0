package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cameroncuttingedge/tic_tac_toe_online/game"
	"github.com/cameroncuttingedge/tic_tac_toe_online/room"
	"github.com/go-playground/validator/v10"
)

// Command is the name of a client-to-server event.
type Command string

const (
	CreateRoom     Command = "create_room"
	JoinRoom       Command = "join_room"
	PlayerMove     Command = "player_move"
	RequestRematch Command = "request_rematch"
	Leave          Command = "leave"
)

// Error codes carried in a failed Ack.
const (
	CodeCreateFailed  = "CREATE_FAILED"
	CodeNotFound      = "NOT_FOUND"
	CodeRoomFull      = "ROOM_FULL"
	CodeNoRoom        = "NO_ROOM"
	CodeNotInProgress = "NOT_IN_PROGRESS"
	CodeNotYourTurn   = "NOT_YOUR_TURN"
	CodeBadIndex      = "BAD_INDEX"
	CodeCellTaken     = "CELL_TAKEN"
	CodeBadRequest    = "BAD_REQUEST"
	CodeRateLimited   = "RATE_LIMITED"
)

// Request is one inbound frame.
type Request struct {
	Event   Command         `json:"event" validate:"required,max=64"`
	ID      *int64          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Ack answers a Request. Only the fields relevant to the command are set.
type Ack struct {
	OK      bool              `json:"ok"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Symbol  game.Symbol       `json:"symbol,omitempty"`
	State   *room.PublicState `json:"state,omitempty"`
	Started *bool             `json:"started,omitempty"`
}

// Fail builds a failed Ack.
func Fail(code string) Ack {
	return Ack{OK: false, Error: code}
}

type joinPayload struct {
	Code string `json:"code" validate:"required,max=32"`
}

type movePayload struct {
	Index json.RawMessage `json:"index"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses and validates an inbound frame.
func Decode(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if err := validate.Struct(req); err != nil {
		return Request{}, fmt.Errorf("validate request: %w", err)
	}
	return req, nil
}

// ErrorCode maps a room error to its wire code. fallback is used for errors
// the protocol has no code for.
func ErrorCode(err error, fallback string) string {
	switch {
	case errors.Is(err, room.ErrCreateFailed):
		return CodeCreateFailed
	case errors.Is(err, room.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, room.ErrRoomFull):
		return CodeRoomFull
	case errors.Is(err, room.ErrNoRoom):
		return CodeNoRoom
	case errors.Is(err, room.ErrNotInProgress):
		return CodeNotInProgress
	case errors.Is(err, room.ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, room.ErrBadIndex):
		return CodeBadIndex
	case errors.Is(err, room.ErrCellTaken):
		return CodeCellTaken
	default:
		return fallback
	}
}

func decodeJoin(raw json.RawMessage) (string, bool) {
	var p joinPayload
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil {
		return "", false
	}
	p.Code = room.NormalizeCode(p.Code)
	if validate.Struct(p) != nil {
		return "", false
	}
	return p.Code, true
}

// decodeIndex accepts a JSON number or a numeric string. Anything that is
// not an integer comes back as -1, which the room rejects as a bad index.
func decodeIndex(raw json.RawMessage) int {
	var p movePayload
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil || len(p.Index) == 0 {
		return -1
	}

	text := strings.TrimSpace(string(p.Index))
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(p.Index, &text); err != nil {
			return -1
		}
		text = strings.TrimSpace(text)
	}
	if text == "" || text == "null" {
		return -1
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return -1
	}
	return int(f)
}
