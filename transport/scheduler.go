package transport

import (
	"math"
	"sort"
	"time"

	"loopgrid"
)

// State is the transport state of the scheduler.
type State int

const (
	Stopped State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "stopped"
}

type (
	// Scheduler is the global transport: it owns all channel states, runs
	// the per-frame tick off one shared clock and dispatches note events to
	// the audio sink and the channel delegates. One scheduler instance is
	// constructed by the application root and passed to whoever needs it.
	//
	// The scheduler is single-owner: the host drives it from one goroutine
	// (the per-frame callback) and nothing here blocks or spawns. Delegates
	// and listeners are invoked synchronously and must not re-enter
	// scheduler-mutating APIs.
	Scheduler struct {
		// Now returns the current time in milliseconds. It defaults to the
		// wall clock; tests replace it to drive time exactly. Tick, Play and
		// the recording APIs all read the same clock.
		Now func() float64

		sink     loopgrid.AudioSink
		state    State
		channels map[int]*channel
		order    []int // sorted channel ids; fixes cross-channel dispatch order
		startMs  float64
		masterMs float64

		transportSubs []subscriber[func(State)]
		sequenceSubs  []subscriber[func(channel int, seq *loopgrid.LoopSequence)]
		nextSubID     int
	}

	subscriber[F any] struct {
		id int
		fn F
	}
)

// NewScheduler creates a stopped scheduler dispatching to the given sink. A
// nil sink plays silently.
func NewScheduler(sink loopgrid.AudioSink) *Scheduler {
	if sink == nil {
		sink = loopgrid.NullAudioSink{}
	}
	return &Scheduler{
		Now:      wallClockMs,
		sink:     sink,
		channels: make(map[int]*channel),
	}
}

func wallClockMs() float64 {
	return float64(time.Now().UnixNano()) / 1e6
}

// RegisterChannel creates the channel if it does not exist yet; for an
// existing channel it only hot-swaps the delegate, keeping sequence,
// cursor and recording state intact. A nil delegate means NullDelegate.
func (s *Scheduler) RegisterChannel(id int, delegate Delegate) {
	if delegate == nil {
		delegate = NullDelegate{}
	}
	if ch, ok := s.channels[id]; ok {
		ch.delegate = delegate
		return
	}
	s.channels[id] = &channel{
		id:       id,
		delegate: delegate,
		active:   make(map[int]struct{}),
	}
	s.order = append(s.order, id)
	sort.Ints(s.order)
}

// UnregisterChannel releases the channel's sounding notes and discards its
// state. When the last channel goes away the transport is forced to
// Stopped. Unknown ids are a silent no-op.
func (s *Scheduler) UnregisterChannel(id int) {
	ch, ok := s.channels[id]
	if !ok {
		return
	}
	s.releaseChannel(ch)
	delete(s.channels, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.recomputeMasterDuration()
	if len(s.channels) == 0 && s.state != Stopped {
		s.state = Stopped
		s.notifyTransport()
	}
}

// DetachDelegate swaps in the no-op delegate without discarding the
// channel, so playback continues silently while no UI is attached.
func (s *Scheduler) DetachDelegate(id int) {
	if ch, ok := s.channels[id]; ok {
		ch.delegate = NullDelegate{}
	}
}

// SetSequence replaces the channel's sequence wholesale. The stored copy is
// re-sorted, the cursor reset and the master duration recomputed; sequence
// listeners are notified. While playing, the channel's sounding notes are
// released and the cursor fast-forwards to the current loop position so the
// first half of the new loop is not replayed in a burst. A nil sequence
// clears the channel.
func (s *Scheduler) SetSequence(id int, seq *loopgrid.LoopSequence) {
	ch, ok := s.channels[id]
	if !ok {
		return
	}
	s.releaseChannel(ch)
	if seq != nil {
		cp := seq.Copy()
		loopgrid.SortEvents(cp.Events)
		ch.sequence = &cp
	} else {
		ch.sequence = nil
	}
	ch.eventIndex = 0
	ch.lastLoopMs = 0
	s.recomputeMasterDuration()
	if s.state == Playing && ch.sequence != nil {
		loopTime := math.Mod(s.Now()-s.startMs, ch.sequence.DurationMs)
		for ch.eventIndex < len(ch.sequence.Events) && ch.sequence.Events[ch.eventIndex].TimestampMs <= loopTime {
			ch.eventIndex++
		}
		ch.lastLoopMs = loopTime
	}
	s.notifySequence(id, ch.sequence)
}

// ClearSequence is SetSequence with a nil sequence.
func (s *Scheduler) ClearSequence(id int) { s.SetSequence(id, nil) }

// GetSequence returns the channel's current sequence, nil when the channel
// is unknown or empty. The returned sequence is shared and must be treated
// as immutable.
func (s *Scheduler) GetSequence(id int) *loopgrid.LoopSequence {
	if ch, ok := s.channels[id]; ok {
		return ch.sequence
	}
	return nil
}

// MasterDuration is the longest loop duration over all channels, in
// milliseconds; the shared grid every channel aligns to. Zero when nothing
// is committed.
func (s *Scheduler) MasterDuration() float64 { return s.masterMs }

// GlobalBPM is the tempo of the sequence owning the master duration, zero
// when nothing is committed. New recordings made against running loops
// inherit it.
func (s *Scheduler) GlobalBPM() float64 {
	bpm := 0.0
	longest := 0.0
	for _, id := range s.order {
		if seq := s.channels[id].sequence; seq != nil && seq.DurationMs > longest {
			longest = seq.DurationMs
			bpm = seq.BPM
		}
	}
	return bpm
}

// HasAnySequence reports whether any channel has a committed sequence.
func (s *Scheduler) HasAnySequence() bool {
	for _, ch := range s.channels {
		if ch.sequence != nil {
			return true
		}
	}
	return false
}

// ActiveChannels returns the registered channel ids in dispatch order.
func (s *Scheduler) ActiveChannels() []int {
	return append([]int(nil), s.order...)
}

// State returns the current transport state.
func (s *Scheduler) State() State { return s.state }

// Play resets every channel's cursor and starts the tick loop. It is a
// no-op while already playing or when no channel has a sequence.
func (s *Scheduler) Play() {
	if s.state == Playing || s.masterMs == 0 {
		return
	}
	s.startMs = s.Now()
	for _, ch := range s.channels {
		ch.eventIndex = 0
		ch.lastLoopMs = 0
	}
	s.state = Playing
	s.notifyTransport()
}

// Stop halts playback and guarantees zero dangling sustained notes: every
// channel's sounding notes are released to both the sink and the delegate.
// Stop is idempotent; a second call observes nothing left to release and
// notifies nobody.
func (s *Scheduler) Stop() {
	for _, id := range s.order {
		ch := s.channels[id]
		s.releaseChannel(ch)
		ch.eventIndex = 0
		ch.lastLoopMs = 0
	}
	if s.state != Stopped {
		s.state = Stopped
		s.notifyTransport()
	}
}

// TogglePlayback stops when playing, plays when stopped.
func (s *Scheduler) TogglePlayback() {
	if s.state == Playing {
		s.Stop()
	} else {
		s.Play()
	}
}

// Tick advances playback to the current time. The host calls it once per
// frame while playing; the cadence may be arbitrarily uneven (a backgrounded
// app may deliver one giant delta) and the tick runs to completion without
// blocking. Within one tick each channel dispatches its due events in
// timestamp order; channels are visited in sorted id order, stable across
// ticks.
func (s *Scheduler) Tick() {
	if s.state != Playing {
		return
	}
	elapsed := s.Now() - s.startMs
	for _, id := range s.order {
		ch := s.channels[id]
		if ch.sequence == nil {
			// keep a recording channel's UI synced to the shared grid
			if s.masterMs > 0 {
				ch.delegate.OnTick(math.Mod(elapsed, s.masterMs), s.masterMs)
			} else {
				ch.delegate.OnTick(0, 0)
			}
			continue
		}
		duration := ch.sequence.DurationMs
		loopTime := math.Mod(elapsed, duration)
		if loopTime < ch.lastLoopMs {
			s.releaseChannel(ch)
			ch.eventIndex = 0
			ch.delegate.OnLoopWrap()
		}
		events := ch.sequence.Events
		for ch.eventIndex < len(events) && events[ch.eventIndex].TimestampMs <= loopTime {
			e := events[ch.eventIndex]
			ch.eventIndex++
			switch e.Kind {
			case loopgrid.NoteOn:
				s.sink.NoteOn(ch.id, e.Pitch, e.Velocity)
				ch.delegate.OnNoteOn(e.Pitch, e.Velocity)
				ch.active[e.Pitch] = struct{}{}
			case loopgrid.NoteOff:
				s.sink.NoteOff(ch.id, e.Pitch)
				ch.delegate.OnNoteOff(e.Pitch)
				delete(ch.active, e.Pitch)
			}
		}
		ch.delegate.OnTick(loopTime, duration)
		ch.lastLoopMs = loopTime
	}
}

// OnTransport subscribes to transport state changes. Subscribers are
// invoked synchronously in registration order; the returned function
// unsubscribes.
func (s *Scheduler) OnTransport(fn func(State)) (unsubscribe func()) {
	s.nextSubID++
	id := s.nextSubID
	s.transportSubs = append(s.transportSubs, subscriber[func(State)]{id, fn})
	return func() { s.transportSubs = removeSubscriber(s.transportSubs, id) }
}

// OnChannelSequence subscribes to sequence replacements on any channel. The
// sequence argument is nil when a channel is cleared.
func (s *Scheduler) OnChannelSequence(fn func(channel int, seq *loopgrid.LoopSequence)) (unsubscribe func()) {
	s.nextSubID++
	id := s.nextSubID
	s.sequenceSubs = append(s.sequenceSubs, subscriber[func(int, *loopgrid.LoopSequence)]{id, fn})
	return func() { s.sequenceSubs = removeSubscriber(s.sequenceSubs, id) }
}

func removeSubscriber[F any](subs []subscriber[F], id int) []subscriber[F] {
	for i, sub := range subs {
		if sub.id == id {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}

func (s *Scheduler) notifyTransport() {
	for _, sub := range append([]subscriber[func(State)](nil), s.transportSubs...) {
		sub.fn(s.state)
	}
}

func (s *Scheduler) notifySequence(id int, seq *loopgrid.LoopSequence) {
	for _, sub := range append([]subscriber[func(int, *loopgrid.LoopSequence)](nil), s.sequenceSubs...) {
		sub.fn(id, seq)
	}
}

// releaseChannel sends a note-off for every sounding note on the channel,
// to both the sink and the delegate, in ascending pitch order.
func (s *Scheduler) releaseChannel(ch *channel) {
	for _, pitch := range ch.activePitches() {
		s.sink.NoteOff(ch.id, pitch)
		ch.delegate.OnNoteOff(pitch)
	}
	clear(ch.active)
}

func (s *Scheduler) recomputeMasterDuration() {
	s.masterMs = 0
	for _, ch := range s.channels {
		if ch.sequence != nil && ch.sequence.DurationMs > s.masterMs {
			s.masterMs = ch.sequence.DurationMs
		}
	}
}
