package gateway_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cameroncuttingedge/tic_tac_toe_online/game"
	"github.com/cameroncuttingedge/tic_tac_toe_online/gateway"
	"github.com/cameroncuttingedge/tic_tac_toe_online/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr bool
		check   func(t *testing.T, req gateway.Request)
	}{
		{
			name:  "command with id and payload",
			frame: `{"event":"join_room","id":7,"payload":{"code":"abc234"}}`,
			check: func(t *testing.T, req gateway.Request) {
				assert.Equal(t, gateway.JoinRoom, req.Event)
				require.NotNil(t, req.ID)
				assert.EqualValues(t, 7, *req.ID)
				assert.JSONEq(t, `{"code":"abc234"}`, string(req.Payload))
			},
		},
		{
			name:  "command without id",
			frame: `{"event":"leave"}`,
			check: func(t *testing.T, req gateway.Request) {
				assert.Equal(t, gateway.Leave, req.Event)
				assert.Nil(t, req.ID)
			},
		},
		{name: "not json", frame: `hello`, wantErr: true},
		{name: "missing event", frame: `{"id":1}`, wantErr: true},
		{name: "event not a string", frame: `{"event":5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := gateway.Decode([]byte(tt.frame))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, req)
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{room.ErrCreateFailed, gateway.CodeCreateFailed},
		{room.ErrNotFound, gateway.CodeNotFound},
		{room.ErrRoomFull, gateway.CodeRoomFull},
		{room.ErrNoRoom, gateway.CodeNoRoom},
		{room.ErrNotInProgress, gateway.CodeNotInProgress},
		{room.ErrNotYourTurn, gateway.CodeNotYourTurn},
		{room.ErrBadIndex, gateway.CodeBadIndex},
		{room.ErrCellTaken, gateway.CodeCellTaken},
		{fmt.Errorf("wrapped: %w", room.ErrRoomFull), gateway.CodeRoomFull},
		{fmt.Errorf("something else"), "FALLBACK"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, gateway.ErrorCode(tt.err, "FALLBACK"), tt.err.Error())
	}
}

func TestAck_JSON(t *testing.T) {
	started := false
	state := room.PublicState{Code: "ABC234", Turn: game.PlayerX, Status: room.StatusWaiting}

	tests := []struct {
		name string
		ack  gateway.Ack
		want string
	}{
		{"failure", gateway.Fail(gateway.CodeRoomFull), `{"ok":false,"error":"ROOM_FULL"}`},
		{"plain success", gateway.Ack{OK: true}, `{"ok":true}`},
		{"rematch", gateway.Ack{OK: true, Started: &started}, `{"ok":true,"started":false}`},
		{
			"create",
			gateway.Ack{OK: true, Code: "ABC234", Symbol: game.PlayerX, State: &state},
			`{"ok":true,"code":"ABC234","symbol":"X","state":{"code":"ABC234","board":[null,null,null,null,null,null,null,null,null],"turn":"X","status":"waiting","winner":null}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ack)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}
