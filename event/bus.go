package event

import "slices"

// ChannelChange is the channel on which observable values announce that their
// content may differ from what observers last saw.
const ChannelChange = "change"

// Handler receives messages published on a channel it subscribed to.
type Handler func(*Message)

// Subscription is a revocable registration of a [Handler] on one channel of a
// [Bus].
type Subscription struct {
	bus     *Bus
	channel string
	handler Handler
}

// Channel returns the channel name the subscription was registered on.
func (s *Subscription) Channel() string { return s.channel }

// Active reports whether the subscription still receives messages.
func (s *Subscription) Active() bool { return s != nil && s.bus != nil }

// Cancel removes the subscription from its bus.
// It is safe to call Cancel more than once, on a nil subscription, or from
// within the handler while a message is being delivered.
func (s *Subscription) Cancel() {
	if s.Active() {
		s.bus.Unsub(s)
	}
}

type forwardKey struct {
	from    *Bus
	channel string
}

// Bus is a set of named channels. The zero value is ready to use.
//
// A Bus is not safe for concurrent use. Messages are delivered synchronously,
// in subscription order, on the goroutine that publishes them.
type Bus struct {
	owner    any
	subs     map[string][]*Subscription
	forwards map[forwardKey]*Subscription
}

// SetOwner sets the value reported as publisher of messages originating from
// or forwarded through b. Types embedding a Bus call this with themselves.
func (b *Bus) SetOwner(owner any) { b.owner = owner }

// Owner returns the value set with [Bus.SetOwner], or b itself.
func (b *Bus) Owner() any {
	if b.owner == nil {
		return b
	}

	return b.owner
}

// Sub registers fn to receive every message published on channel.
func (b *Bus) Sub(channel string, fn Handler) *Subscription {
	if b.subs == nil {
		b.subs = make(map[string][]*Subscription)
	}

	s := &Subscription{bus: b, channel: channel, handler: fn}
	b.subs[channel] = append(b.subs[channel], s)

	return s
}

// Unsub removes s from b. Subscriptions belonging to another bus are ignored.
func (b *Bus) Unsub(s *Subscription) {
	if s == nil || s.bus != b {
		return
	}

	list := b.subs[s.channel]
	if i := slices.Index(list, s); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}

	if len(list) == 0 {
		delete(b.subs, s.channel)
	} else {
		b.subs[s.channel] = list
	}

	s.bus = nil
}

// UnsubAll removes every subscription on channel, or on all channels if
// channel is empty.
func (b *Bus) UnsubAll(channel string) {
	for name, list := range b.subs {
		if channel != "" && name != channel {
			continue
		}

		for _, s := range list {
			s.bus = nil
		}

		delete(b.subs, name)
	}
}

// Subscribers returns the number of active subscriptions on channel.
func (b *Bus) Subscribers(channel string) int { return len(b.subs[channel]) }

// Pub publishes data on channel.
func (b *Bus) Pub(channel string, data any) {
	if len(b.subs[channel]) == 0 {
		return
	}

	b.deliver(&Message{
		Data:       data,
		channels:   []string{channel},
		publishers: []any{b.Owner()},
	})
}

// deliver hands m to every subscriber of its most recent channel.
// Handlers may subscribe or unsubscribe during delivery: the subscriber list
// is snapshotted and cancelled subscriptions are skipped.
func (b *Bus) deliver(m *Message) {
	for _, s := range slices.Clone(b.subs[m.channels[len(m.channels)-1]]) {
		if s.bus == b {
			s.handler(m)
		}
	}
}

// Forward republishes every message that from publishes on channel as a
// message on b's channel as. If as is empty, the channel name is kept.
// The forwarded message records both hops in its channel and publisher chains.
func (b *Bus) Forward(from *Bus, channel, as string) {
	if from == nil || from == b {
		return
	}

	if as == "" {
		as = channel
	}

	key := forwardKey{from: from, channel: channel}
	if b.forwards == nil {
		b.forwards = make(map[forwardKey]*Subscription)
	}

	b.forwards[key].Cancel()
	b.forwards[key] = from.Sub(channel, func(m *Message) {
		if len(b.subs[as]) == 0 {
			return
		}

		b.deliver(m.hop(as, b.Owner()))
	})
}

// StopForwarding undoes a previous [Bus.Forward] of from's channel.
func (b *Bus) StopForwarding(from *Bus, channel string) {
	key := forwardKey{from: from, channel: channel}
	if s, ok := b.forwards[key]; ok {
		s.Cancel()
		delete(b.forwards, key)
	}
}

// StopForwardingAll undoes every forwarding registered on b.
func (b *Bus) StopForwardingAll() {
	for key, s := range b.forwards {
		s.Cancel()
		delete(b.forwards, key)
	}
}
