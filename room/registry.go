package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cameroncuttingedge/tic_tac_toe_online/events"
	"github.com/cameroncuttingedge/tic_tac_toe_online/utils"
	"github.com/rs/zerolog"
)

// Default sweep settings.
const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Registry owns every active room, keyed by code.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	generate func() (string, error)
	now      func() time.Time
	logger   zerolog.Logger
}

type Option func(*Registry)

// WithCodeGenerator replaces utils.GenerateCode.
func WithCodeGenerator(fn func() (string, error)) Option {
	return func(reg *Registry) { reg.generate = fn }
}

// WithClock replaces utils.Now.
func WithClock(fn func() time.Time) Option {
	return func(reg *Registry) { reg.now = fn }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(reg *Registry) { reg.logger = logger }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	reg := &Registry{
		rooms:    make(map[string]*Room),
		generate: utils.GenerateCode,
		now:      utils.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// CreateRoom registers a new waiting room with ownerID in the X slot. Code
// generation retries on collision and runs under the registry lock, so two
// concurrent creates never receive the same code.
func (reg *Registry) CreateRoom(ownerID string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var code string
	for {
		c, err := reg.generate()
		if err != nil {
			reg.logger.Error().Err(err).Msg("Failed to generate room code")
			return nil, fmt.Errorf("%w: %v", ErrCreateFailed, err)
		}
		if _, taken := reg.rooms[c]; !taken {
			code = c
			break
		}
		reg.logger.Debug().Str("code", c).Msg("Room code collision, retrying")
	}

	r := newRoom(code, ownerID, reg.now, reg.logger)
	reg.rooms[code] = r
	reg.logger.Info().Str("code", code).Int("rooms", len(reg.rooms)).Msg("Room created")
	return r, nil
}

// Get looks a room up by code, ignoring case and surrounding space.
func (reg *Registry) Get(code string) (*Room, error) {
	code = NormalizeCode(code)

	reg.mu.RLock()
	r, ok := reg.rooms[code]
	reg.mu.RUnlock()

	if !ok || r.isClosed() {
		return nil, ErrNotFound
	}
	return r, nil
}

// Delete removes the room under code. Deleting an absent code is a no-op.
func (reg *Registry) Delete(code string) {
	code = NormalizeCode(code)

	reg.mu.Lock()
	r, ok := reg.rooms[code]
	if ok {
		delete(reg.rooms, code)
		reg.logger.Info().Str("code", code).Int("rooms", len(reg.rooms)).Msg("Room deleted")
	}
	reg.mu.Unlock()

	if ok {
		r.close()
	}
}

// Disconnect vacates connID's slot in r and deletes the room once both
// slots are empty.
func (reg *Registry) Disconnect(r *Room, connID string, pub events.Publisher) {
	if r == nil {
		return
	}
	if _, empty := r.Disconnect(connID, pub); empty {
		reg.remove(r)
	}
}

// SweepIdle deletes rooms without occupants that have been idle for longer
// than ttl and returns how many were removed.
func (reg *Registry) SweepIdle(ttl time.Duration) int {
	reg.mu.RLock()
	candidates := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		candidates = append(candidates, r)
	}
	reg.mu.RUnlock()

	now := reg.now()
	swept := 0
	for _, r := range candidates {
		if r.expire(now, ttl) && reg.remove(r) {
			swept++
		}
	}
	if swept > 0 {
		reg.logger.Info().Int("swept", swept).Msg("Idle rooms swept")
	}
	return swept
}

// Run sweeps idle rooms every interval until ctx is done.
func (reg *Registry) Run(ctx context.Context, interval, ttl time.Duration) {
	reg.logger.Info().
		Dur("interval", interval).
		Dur("ttl", ttl).
		Msg("Room sweeper starting...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			reg.SweepIdle(ttl)
		case <-ctx.Done():
			reg.logger.Info().Msg("Room sweeper exited.")
			return
		}
	}
}

// Len returns the number of registered rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// remove deletes r only if it is still the room registered under its code.
func (reg *Registry) remove(r *Room) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.rooms[r.code] != r {
		return false
	}
	delete(reg.rooms, r.code)
	reg.logger.Info().Str("code", r.code).Int("rooms", len(reg.rooms)).Msg("Room deleted")
	return true
}

// NormalizeCode upper-cases and trims a room code typed by a user.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
