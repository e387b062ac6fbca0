package room_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cameroncuttingedge/tic_tac_toe_online/events"
	"github.com/cameroncuttingedge/tic_tac_toe_online/game"
	"github.com/cameroncuttingedge/tic_tac_toe_online/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateRoom(t *testing.T) {
	reg := newRegistry(t, nil)

	r, err := reg.CreateRoom("owner")
	require.NoError(t, err)
	assert.Equal(t, "ABC234", r.Code())
	assert.Equal(t, "owner", r.Occupant(game.PlayerX))
	assert.Equal(t, "", r.Occupant(game.PlayerO))

	state := r.PublicState()
	assert.Equal(t, room.StatusWaiting, state.Status)
	assert.Equal(t, game.PlayerX, state.Turn)
	assert.Equal(t, game.Board{}, state.Board)
	assert.Equal(t, game.None, state.Winner)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_CreateRoom_RetriesOnCollision(t *testing.T) {
	reg := room.NewRegistry(room.WithCodeGenerator(sequentialCodes("AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB")))

	first, err := reg.CreateRoom("one")
	require.NoError(t, err)
	second, err := reg.CreateRoom("two")
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first.Code())
	assert.Equal(t, "BBBBBB", second.Code())
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_CreateRoom_GeneratorFailure(t *testing.T) {
	reg := room.NewRegistry(room.WithCodeGenerator(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))

	r, err := reg.CreateRoom("owner")
	require.ErrorIs(t, err, room.ErrCreateFailed)
	assert.Nil(t, r)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_ConcurrentCreates(t *testing.T) {
	// a tiny code space forces collisions between concurrent creates
	var mu sync.Mutex
	n := 0
	reg := room.NewRegistry(room.WithCodeGenerator(func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("C%05d", n%64), nil
	}))

	const creators = 64
	var wg sync.WaitGroup
	codes := make(chan string, creators)
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := reg.CreateRoom(fmt.Sprintf("owner-%d", i))
			if assert.NoError(t, err) {
				codes <- r.Code()
			}
		}(i)
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]bool)
	for c := range codes {
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, creators)
	assert.Equal(t, creators, reg.Len())
}

func TestRegistry_Get(t *testing.T) {
	reg := newRegistry(t, nil)
	created, err := reg.CreateRoom("owner")
	require.NoError(t, err)

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"exact", "ABC234", nil},
		{"lower case", "abc234", nil},
		{"surrounding space", "  abc234 ", nil},
		{"unknown", "ZZZZZZ", room.ErrNotFound},
		{"empty", "", room.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := reg.Get(tt.code)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.Same(t, created, r)
		})
	}
}

func TestRegistry_Delete(t *testing.T) {
	reg := newRegistry(t, nil)
	r, err := reg.CreateRoom("owner")
	require.NoError(t, err)

	reg.Delete(r.Code())
	assert.Equal(t, 0, reg.Len())

	// idempotent
	reg.Delete(r.Code())
	reg.Delete("NOPE22")
	assert.Equal(t, 0, reg.Len())

	// a deleted room refuses new players
	_, err = r.Join("late", events.Discard)
	assert.ErrorIs(t, err, room.ErrNotFound)
}

func TestRegistry_Disconnect_OnlyPlayerDeletesRoom(t *testing.T) {
	reg := newRegistry(t, nil)
	r, err := reg.CreateRoom("owner")
	require.NoError(t, err)

	reg.Disconnect(r, "owner", events.Discard)
	assert.Equal(t, 0, reg.Len())

	// nil and repeated disconnects are harmless
	reg.Disconnect(nil, "owner", events.Discard)
	reg.Disconnect(r, "owner", events.Discard)
}

func TestRegistry_SweepIdle_KeepsOccupiedRooms(t *testing.T) {
	clock := newFakeClock()
	reg := newRegistry(t, clock)
	_, err := reg.CreateRoom("owner")
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	assert.Equal(t, 0, reg.SweepIdle(room.DefaultTTL))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_SweepIdle_RacesWithDisconnect(t *testing.T) {
	reg := newRegistry(t, nil)
	r, err := reg.CreateRoom("x")
	require.NoError(t, err)
	_, err = r.Join("o", events.Discard)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, id := range []string{"x", "o"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			reg.Disconnect(r, id, events.Discard)
		}(id)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		reg.SweepIdle(0)
	}()
	wg.Wait()

	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_Run_StopsWithContext(t *testing.T) {
	reg := newRegistry(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		reg.Run(ctx, 5*time.Millisecond, time.Minute)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
