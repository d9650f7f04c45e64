// Package event implements the synchronous publish/subscribe machinery that
// carries change notifications through livexpr.
//
// A [Bus] holds named channels. Values that want to be observed embed a Bus
// (or a [Tracker], which adds coalesced dirty flags) and publish [Change]
// payloads on [ChannelChange]. Observers subscribe with [Bus.Sub] and keep the
// returned [Subscription] so they can detach with [Subscription.Cancel].
//
// A bus may forward the messages of another bus with [Bus.Forward]; the
// forwarded [Message] records every hop:
//
//	var inner, outer event.Bus
//	outer.Forward(&inner, event.ChannelChange, "")
//	outer.Sub(event.ChannelChange, func(m *event.Message) {
//		fmt.Println(m.Forwarded()) // 1
//	})
//	inner.Pub(event.ChannelChange, event.Invalidate())
//
// Nothing in this package locks. Buses are owned by a single goroutine.
package event
