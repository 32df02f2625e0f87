package loopgrid_test

import (
	"fmt"
	"reflect"
	"testing"

	"loopgrid"
)

func TestPairNotesRoundTrip(t *testing.T) {
	var tests = [][]loopgrid.NotePair{
		{},
		{{Pitch: 60, Velocity: 0.8, StartMs: 0, EndMs: 400}},
		{
			{Pitch: 60, Velocity: 0.8, StartMs: 0, EndMs: 400},
			{Pitch: 62, Velocity: 1, StartMs: 250, EndMs: 450},
			{Pitch: 60, Velocity: 0.5, StartMs: 500, EndMs: 900},
		},
		{
			{Pitch: 36, Velocity: 0.9, StartMs: 0, EndMs: 340},
			{Pitch: 39, Velocity: 0.6, StartMs: 340, EndMs: 680},
			{Pitch: 36, Velocity: 0.7, StartMs: 680, EndMs: 1020},
		},
	}
	for i, pairs := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			got := loopgrid.PairNotes(loopgrid.EventsFromPairs(pairs))
			if len(got) == 0 && len(pairs) == 0 {
				return
			}
			if !reflect.DeepEqual(got, pairs) {
				t.Errorf("round trip got %v, want %v", got, pairs)
			}
		})
	}
}

func TestPairNotesForceClose(t *testing.T) {
	events := []loopgrid.NoteEvent{
		{Kind: loopgrid.NoteOn, Pitch: 60, TimestampMs: 0, Velocity: 0.8},
		{Kind: loopgrid.NoteOn, Pitch: 62, TimestampMs: 100, Velocity: 0.6},
		{Kind: loopgrid.NoteOff, Pitch: 60, TimestampMs: 300},
	}
	want := []loopgrid.NotePair{
		{Pitch: 60, Velocity: 0.8, StartMs: 0, EndMs: 300},
		{Pitch: 62, Velocity: 0.6, StartMs: 100, EndMs: 300},
	}
	if got := loopgrid.PairNotes(events); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPairNotesLastOpenedClosesFirst(t *testing.T) {
	events := []loopgrid.NoteEvent{
		{Kind: loopgrid.NoteOn, Pitch: 60, TimestampMs: 0, Velocity: 1},
		{Kind: loopgrid.NoteOn, Pitch: 60, TimestampMs: 100, Velocity: 0.5},
		{Kind: loopgrid.NoteOff, Pitch: 60, TimestampMs: 200},
		{Kind: loopgrid.NoteOff, Pitch: 60, TimestampMs: 400},
	}
	want := []loopgrid.NotePair{
		{Pitch: 60, Velocity: 1, StartMs: 0, EndMs: 400},
		{Pitch: 60, Velocity: 0.5, StartMs: 100, EndMs: 200},
	}
	if got := loopgrid.PairNotes(events); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPairNotesIgnoresOrphanNoteOff(t *testing.T) {
	events := []loopgrid.NoteEvent{
		{Kind: loopgrid.NoteOff, Pitch: 60, TimestampMs: 50},
		{Kind: loopgrid.NoteOn, Pitch: 62, TimestampMs: 100, Velocity: 0.7},
		{Kind: loopgrid.NoteOff, Pitch: 62, TimestampMs: 200},
	}
	want := []loopgrid.NotePair{{Pitch: 62, Velocity: 0.7, StartMs: 100, EndMs: 200}}
	if got := loopgrid.PairNotes(events); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMergeOverlaps(t *testing.T) {
	var tests = []struct {
		name  string
		pairs []loopgrid.NotePair
		want  []loopgrid.NotePair
	}{
		{
			"disjoint pitches untouched",
			[]loopgrid.NotePair{
				{Pitch: 60, Velocity: 0.5, StartMs: 0, EndMs: 500},
				{Pitch: 62, Velocity: 0.8, StartMs: 100, EndMs: 400},
			},
			[]loopgrid.NotePair{
				{Pitch: 60, Velocity: 0.5, StartMs: 0, EndMs: 500},
				{Pitch: 62, Velocity: 0.8, StartMs: 100, EndMs: 400},
			},
		},
		{
			"overlap keeps later end and higher velocity",
			[]loopgrid.NotePair{
				{Pitch: 60, Velocity: 0.5, StartMs: 0, EndMs: 500},
				{Pitch: 60, Velocity: 0.9, StartMs: 300, EndMs: 450},
			},
			[]loopgrid.NotePair{
				{Pitch: 60, Velocity: 0.9, StartMs: 0, EndMs: 500},
			},
		},
		{
			"chain against already-extended end",
			[]loopgrid.NotePair{
				{Pitch: 60, Velocity: 0.5, StartMs: 0, EndMs: 1000},
				{Pitch: 60, Velocity: 0.6, StartMs: 200, EndMs: 300},
				{Pitch: 60, Velocity: 0.7, StartMs: 400, EndMs: 1200},
			},
			[]loopgrid.NotePair{
				{Pitch: 60, Velocity: 0.7, StartMs: 0, EndMs: 1200},
			},
		},
		{
			"touching pairs stay separate",
			[]loopgrid.NotePair{
				{Pitch: 60, Velocity: 0.5, StartMs: 0, EndMs: 500},
				{Pitch: 60, Velocity: 0.6, StartMs: 500, EndMs: 900},
			},
			[]loopgrid.NotePair{
				{Pitch: 60, Velocity: 0.5, StartMs: 0, EndMs: 500},
				{Pitch: 60, Velocity: 0.6, StartMs: 500, EndMs: 900},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := loopgrid.MergeOverlaps(tt.pairs); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortEventsNoteOffFirst(t *testing.T) {
	events := []loopgrid.NoteEvent{
		{Kind: loopgrid.NoteOn, Pitch: 60, TimestampMs: 500, Velocity: 0.5},
		{Kind: loopgrid.NoteOff, Pitch: 60, TimestampMs: 500},
		{Kind: loopgrid.NoteOn, Pitch: 60, TimestampMs: 0, Velocity: 1},
	}
	loopgrid.SortEvents(events)
	want := []loopgrid.NoteEvent{
		{Kind: loopgrid.NoteOn, Pitch: 60, TimestampMs: 0, Velocity: 1},
		{Kind: loopgrid.NoteOff, Pitch: 60, TimestampMs: 500},
		{Kind: loopgrid.NoteOn, Pitch: 60, TimestampMs: 500, Velocity: 0.5},
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("got %v, want %v", events, want)
	}
}
