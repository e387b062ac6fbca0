package events

// Name identifies a server-to-client push.
type Name string

const (
	GameUpdate               Name = "game_update"
	OpponentJoined           Name = "opponent_joined"
	OpponentRequestedRematch Name = "opponent_requested_rematch"
	OpponentLeft             Name = "opponent_left"
)

// Event is a push addressed to specific connections of one room.
type Event struct {
	Name       Name     `json:"event"`
	RoomCode   string   `json:"-"`
	Recipients []string `json:"-"`
	Data       any      `json:"data,omitempty"`
}

// Publisher delivers events to connections. Implementations must not block;
// the room state machine publishes while holding the room lock.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(ev Event) { f(ev) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(Event) {})

// Recorder keeps published events in memory. Not safe for concurrent use
// unless the publisher is only called under a single room's lock.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(ev Event) {
	r.Events = append(r.Events, ev)
}

// For returns the events delivered to connID, in publish order.
func (r *Recorder) For(connID string) []Event {
	var out []Event
	for _, ev := range r.Events {
		for _, id := range ev.Recipients {
			if id == connID {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}

// Names lists the event names delivered to connID, in publish order.
func (r *Recorder) Names(connID string) []Name {
	var out []Name
	for _, ev := range r.For(connID) {
		out = append(out, ev.Name)
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.Events = nil
}
