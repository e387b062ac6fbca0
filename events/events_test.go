package events_test

import (
	"testing"

	"github.com/cameroncuttingedge/tic_tac_toe_online/events"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	rec := &events.Recorder{}
	var pub events.Publisher = rec

	pub.Publish(events.Event{Name: events.GameUpdate, Recipients: []string{"a", "b"}})
	pub.Publish(events.Event{Name: events.OpponentLeft, Recipients: []string{"b"}})

	assert.Equal(t, []events.Name{events.GameUpdate}, rec.Names("a"))
	assert.Equal(t, []events.Name{events.GameUpdate, events.OpponentLeft}, rec.Names("b"))
	assert.Empty(t, rec.For("c"))

	rec.Reset()
	assert.Empty(t, rec.Events)
}

func TestPublisherFunc(t *testing.T) {
	var got []events.Name
	pub := events.PublisherFunc(func(ev events.Event) { got = append(got, ev.Name) })

	pub.Publish(events.Event{Name: events.OpponentJoined})
	events.Discard.Publish(events.Event{Name: events.GameUpdate})

	assert.Equal(t, []events.Name{events.OpponentJoined}, got)
}
