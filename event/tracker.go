package event

// Tracker is a [Bus] that remembers whether its owner needs to recompute
// itself entirely ("self dirty") or only needs to recombine already known
// parts ("children dirty").
//
// Marking a clean Tracker publishes exactly one message on [ChannelChange].
// Further marks are coalesced until the owner refreshes and the Tracker is
// clean again.
type Tracker struct {
	Bus

	self     bool
	children bool
}

// Dirty reports whether either flag is set.
func (t *Tracker) Dirty() bool { return t.self || t.children }

// SelfDirty reports whether a full recompute is pending.
func (t *Tracker) SelfDirty() bool { return t.self }

// ChildrenDirty reports whether a recombination is pending.
func (t *Tracker) ChildrenDirty() bool { return t.children }

// MarkSelf flags a full recompute and reports whether c was published.
func (t *Tracker) MarkSelf(c Change) bool {
	emit := !t.Dirty()
	t.self = true

	if emit {
		t.Pub(ChannelChange, c)
	}

	return emit
}

// MarkChildren flags a recombination and reports whether c was published.
func (t *Tracker) MarkChildren(c Change) bool {
	emit := !t.Dirty()
	t.children = true

	if emit {
		t.Pub(ChannelChange, c)
	}

	return emit
}

// Clean clears both flags without publishing.
func (t *Tracker) Clean() { t.self, t.children = false, false }

// Refresh runs self if a full recompute is pending, otherwise children if a
// recombination is pending, and then cleans the Tracker.
// Either function may be nil.
func (t *Tracker) Refresh(self, children func()) {
	switch {
	case t.self:
		if self != nil {
			self()
		}

	case t.children:
		if children != nil {
			children()
		}
	}

	t.Clean()
}
