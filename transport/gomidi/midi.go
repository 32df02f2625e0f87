// Package gomidi adapts the loopgrid audio sink onto a MIDI output port, so
// the transport can drive any hardware or software synth instead of the
// in-app engine.
package gomidi

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Sink sends note events to a MIDI out port. Scheduler channels map onto
// MIDI channels modulo 16 and velocities scale onto 1..127. Before Open, or
// when no MIDI driver is available at all, the sink is silently inert, so
// the transport keeps running without sound.
type Sink struct {
	driver *rtmididrv.Driver
	out    drivers.Out
	send   func(midi.Message) error
}

// NewSink creates a sink. There is not much to do if the MIDI driver fails
// to load, so driver == nil just means no MIDI available.
func NewSink() *Sink {
	s := &Sink{}
	s.driver, _ = rtmididrv.New()
	return s
}

// Ports lists the names of the available MIDI output ports.
func (s *Sink) Ports() []string {
	if s.driver == nil {
		return nil
	}
	outs, err := s.driver.Outs()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(outs))
	for _, o := range outs {
		names = append(names, o.String())
	}
	return names
}

// Open connects the sink to the first output port whose name starts with
// namePrefix; an empty prefix takes the first port.
func (s *Sink) Open(namePrefix string) error {
	if s.driver == nil {
		return errors.New("no MIDI driver available")
	}
	outs, err := s.driver.Outs()
	if err != nil {
		return fmt.Errorf("listing MIDI outputs failed: %w", err)
	}
	for _, out := range outs {
		if namePrefix != "" && !strings.HasPrefix(out.String(), namePrefix) {
			continue
		}
		if err := out.Open(); err != nil {
			return fmt.Errorf("opening MIDI output %q failed: %w", out.String(), err)
		}
		send, err := midi.SendTo(out)
		if err != nil {
			out.Close()
			return fmt.Errorf("connecting to MIDI output %q failed: %w", out.String(), err)
		}
		s.out = out
		s.send = send
		return nil
	}
	return fmt.Errorf("no MIDI output matching %q", namePrefix)
}

func (s *Sink) NoteOn(channel, pitch int, velocity float64) {
	if s.send == nil {
		return
	}
	vel := uint8(math.Max(1, math.Min(127, math.Round(velocity*127))))
	s.send(midi.NoteOn(uint8(channel&15), uint8(pitch&127), vel))
}

func (s *Sink) NoteOff(channel, pitch int) {
	if s.send == nil {
		return
	}
	s.send(midi.NoteOff(uint8(channel&15), uint8(pitch&127)))
}

// Close releases the port and the driver.
func (s *Sink) Close() {
	s.send = nil
	if s.out != nil && s.out.IsOpen() {
		s.out.Close()
		s.out = nil
	}
	if s.driver != nil {
		s.driver.Close()
		s.driver = nil
	}
}
