package event

import "fmt"

// Message is the unit of delivery on a [Bus].
type Message struct {
	// Data is the payload given to [Bus.Pub].
	Data any

	channels   []string
	publishers []any
}

// Channel returns the channel the message was originally published on.
func (m *Message) Channel() string { return m.channels[0] }

// Publisher returns the owner of the bus that originally published the
// message.
func (m *Message) Publisher() any { return m.publishers[0] }

// Channels returns the channel chain, origin first.
func (m *Message) Channels() []string { return m.channels }

// Publishers returns the publisher chain, origin first.
func (m *Message) Publishers() []any { return m.publishers }

// Forwarded returns the number of forwarding hops the message has taken.
func (m *Message) Forwarded() int { return len(m.channels) - 1 }

// Change returns the payload as a [Change], if it is one.
func (m *Message) Change() (Change, bool) {
	c, ok := m.Data.(Change)

	return c, ok
}

func (m *Message) hop(channel string, publisher any) *Message {
	return &Message{
		Data:       m.Data,
		channels:   append(m.channels[:len(m.channels):len(m.channels)], channel),
		publishers: append(m.publishers[:len(m.publishers):len(m.publishers)], publisher),
	}
}

// Op identifies the kind of mutation described by a [Change].
type Op uint8

const (
	OpInvalidate Op = iota // invalidate
	OpSet                  // set
	OpDelete               // delete
	OpAppend               // append
	OpInsert               // insert
	OpRemove               // remove
	OpSort                 // sort
	OpReverse              // reverse
	OpClear                // clear
)

var opNames = [...]string{
	OpInvalidate: "invalidate",
	OpSet:        "set",
	OpDelete:     "delete",
	OpAppend:     "append",
	OpInsert:     "insert",
	OpRemove:     "remove",
	OpSort:       "sort",
	OpReverse:    "reverse",
	OpClear:      "clear",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}

	return fmt.Sprintf("Op(%d)", o)
}

// Change describes a mutation of an observable value.
//
// When HasValue is set, Value is the complete new value of whatever the
// publisher represents, and observers may use it without re-evaluating.
type Change struct {
	Value    any
	Key      any
	Op       Op
	HasValue bool
}

// Invalidate returns a Change carrying no value.
func Invalidate() Change { return Change{Op: OpInvalidate} }

// Updated returns a Change carrying the new value v.
func Updated(v any) Change { return Change{Value: v, Op: OpSet, HasValue: true} }
