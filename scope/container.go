package scope

import (
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/ardnew/livexpr/event"
)

// List is an observable sequence. Every mutating method publishes one
// [event.Change] on [event.ChannelChange]; Key holds the affected index and
// Value the affected element where there is one.
type List struct {
	bus   event.Bus
	items []any
}

// NewList returns a List holding a copy of items.
func NewList(items []any) *List {
	l := &List{items: slices.Clone(items)}
	l.bus.SetOwner(l)

	return l
}

// Events returns the bus on which l publishes mutations.
func (l *List) Events() *event.Bus { return &l.bus }

// Len returns the number of elements.
func (l *List) Len() int { return len(l.items) }

// At returns the element at index i.
func (l *List) At(i int) (any, error) {
	if i < 0 || i >= len(l.items) {
		return nil, ErrIndex.With(slog.Int("index", i), slog.Int("len", len(l.items)))
	}

	return l.items[i], nil
}

// Items returns a copy of the elements.
func (l *List) Items() []any { return slices.Clone(l.items) }

// All iterates over the elements with their indices.
func (l *List) All() iter.Seq2[int, any] { return slices.All(l.items) }

// Index returns the index of the first element satisfying match, or -1.
func (l *List) Index(match func(any) bool) int {
	return slices.IndexFunc(l.items, match)
}

// Set replaces the element at index i.
func (l *List) Set(i int, v any) error {
	if i < 0 || i >= len(l.items) {
		return ErrIndex.With(slog.Int("index", i), slog.Int("len", len(l.items)))
	}

	l.items[i] = v
	l.emit(event.OpSet, i, v)

	return nil
}

// Append adds vs to the end of the list, publishing one change per element.
func (l *List) Append(vs ...any) {
	for _, v := range vs {
		l.items = append(l.items, v)
		l.emit(event.OpAppend, len(l.items)-1, v)
	}
}

// Insert places v before index i. An index equal to Len appends.
func (l *List) Insert(i int, v any) error {
	if i < 0 || i > len(l.items) {
		return ErrIndex.With(slog.Int("index", i), slog.Int("len", len(l.items)))
	}

	l.items = slices.Insert(l.items, i, v)
	l.emit(event.OpInsert, i, v)

	return nil
}

// Pop removes and returns the element at index i.
func (l *List) Pop(i int) (any, error) {
	if i < 0 || i >= len(l.items) {
		return nil, ErrIndex.With(slog.Int("index", i), slog.Int("len", len(l.items)))
	}

	v := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	l.emit(event.OpRemove, i, v)

	return v, nil
}

// Remove deletes the element at index i.
func (l *List) Remove(i int) error {
	_, err := l.Pop(i)

	return err
}

// Clear removes every element.
func (l *List) Clear() {
	l.items = l.items[:0]
	l.emit(event.OpClear, nil, nil)
}

// Sort orders the elements with cmp, stably.
func (l *List) Sort(cmp func(a, b any) int) {
	slices.SortStableFunc(l.items, cmp)
	l.emit(event.OpSort, nil, nil)
}

// Reverse reverses the elements in place.
func (l *List) Reverse() {
	slices.Reverse(l.items)
	l.emit(event.OpReverse, nil, nil)
}

// Replace swaps the entire content for a copy of items.
func (l *List) Replace(items []any) {
	l.items = slices.Clone(items)
	l.emit(event.OpSet, nil, nil)
}

func (l *List) emit(op event.Op, key, v any) {
	l.bus.Pub(event.ChannelChange, event.Change{Key: key, Value: v, Op: op})
}

// Dict is an observable string-keyed mapping. Every mutating method publishes
// one [event.Change] on [event.ChannelChange] with the affected key.
type Dict struct {
	bus   event.Bus
	items map[string]any
}

// NewDict returns a Dict holding a copy of items.
func NewDict(items map[string]any) *Dict {
	d := &Dict{items: maps.Clone(items)}
	if d.items == nil {
		d.items = make(map[string]any)
	}

	d.bus.SetOwner(d)

	return d
}

// Events returns the bus on which d publishes mutations.
func (d *Dict) Events() *event.Bus { return &d.bus }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.items) }

// Get returns the value stored under key.
func (d *Dict) Get(key string) (any, bool) {
	v, ok := d.items[key]

	return v, ok
}

// Keys returns the sorted keys.
func (d *Dict) Keys() []string { return slices.Sorted(maps.Keys(d.items)) }

// Items returns a copy of the entries.
func (d *Dict) Items() map[string]any { return maps.Clone(d.items) }

// All iterates over the entries in key order.
func (d *Dict) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range d.Keys() {
			if !yield(k, d.items[k]) {
				return
			}
		}
	}
}

// Set stores v under key.
func (d *Dict) Set(key string, v any) {
	d.items[key] = v
	d.bus.Pub(event.ChannelChange, event.Change{Key: key, Value: v, Op: event.OpSet})
}

// Delete removes key and reports whether it was present.
func (d *Dict) Delete(key string) bool {
	v, ok := d.items[key]
	if !ok {
		return false
	}

	delete(d.items, key)
	d.bus.Pub(event.ChannelChange, event.Change{Key: key, Value: v, Op: event.OpDelete})

	return true
}

// Attr implements attribute-style reads so that d.key works in expressions.
func (d *Dict) Attr(name string) (any, bool) { return d.Get(name) }

// SetAttr implements attribute-style writes.
func (d *Dict) SetAttr(name string, v any) error {
	d.Set(name, v)

	return nil
}
