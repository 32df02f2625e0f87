// Command loopgrid-play records a built-in two-channel demo performance
// through the real capture/commit pipeline and plays the resulting loops,
// optionally to a MIDI output port.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"loopgrid"
	"loopgrid/transport"
	"loopgrid/transport/gomidi"
)

func main() {
	list := flag.Bool("l", false, "List the available MIDI output ports and exit.")
	port := flag.String("m", "", "Send notes to the first MIDI output port with this name prefix. Without -m, play silently.")
	dumpYaml := flag.Bool("y", false, "Print the committed loops as yaml to standard output.")
	durationFlag := flag.Float64("d", 8, "How many seconds to play before exiting.")
	gridFlag := flag.String("q", "", "Quantize the lead channel after committing: 1/4, 1/8, 1/16 or 1/32.")
	flag.Parse()

	if *list {
		sink := gomidi.NewSink()
		defer sink.Close()
		for _, name := range sink.Ports() {
			fmt.Println(name)
		}
		return
	}

	var sink loopgrid.AudioSink = loopgrid.NullAudioSink{}
	if *port != "" {
		midiSink := gomidi.NewSink()
		defer midiSink.Close()
		if err := midiSink.Open(*port); err != nil {
			fmt.Fprintf(os.Stderr, "could not open MIDI output: %v\n", err)
			os.Exit(1)
		}
		sink = midiSink
	}

	sched := transport.NewScheduler(sink)
	sched.RegisterChannel(0, nil)
	sched.RegisterChannel(1, nil)

	// capture the demo takes against a scripted clock, so the "performance"
	// does not take wall-clock seconds
	virtual := 0.0
	sched.Now = func() float64 { return virtual }

	sched.StartRecording(0)
	play(sched, &virtual, 0, bassTake)
	if _, ok := sched.CommitRecording(0); !ok {
		fmt.Fprintln(os.Stderr, "committing the bass take failed")
		os.Exit(1)
	}

	// overdub the lead against the running bass loop
	sched.Play()
	virtual += sched.MasterDuration() / 2
	sched.StartRecording(1)
	play(sched, &virtual, 1, leadTake)
	if _, ok := sched.CommitRecording(1); !ok {
		fmt.Fprintln(os.Stderr, "committing the lead take failed")
		os.Exit(1)
	}
	sched.Stop()

	if *gridFlag != "" {
		grid, err := loopgrid.ParseGrid(*gridFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		sched.SetSequence(1, loopgrid.Quantize(sched.GetSequence(1), grid, loopgrid.DefaultQuantizeStrength))
	}

	for _, id := range sched.ActiveChannels() {
		seq := sched.GetSequence(id)
		fmt.Fprintf(os.Stderr, "channel %d: %.1f BPM, %d bars, %d events, confidence %.2f\n",
			id, seq.BPM, seq.DurationBars, len(seq.Events), seq.Confidence)
	}

	if *dumpYaml {
		loops := map[string]*loopgrid.LoopSequence{
			"bass": sched.GetSequence(0),
			"lead": sched.GetSequence(1),
		}
		out, err := yaml.Marshal(loops)
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshaling loops failed: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
	}

	// play back in real time
	sched.Now = func() float64 { return float64(time.Now().UnixNano()) / 1e6 }
	sched.Play()
	ticker := time.NewTicker(4 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.Now().Add(time.Duration(*durationFlag * float64(time.Second)))
	for time.Now().Before(deadline) {
		<-ticker.C
		sched.Tick()
	}
	sched.Stop()
}

type demoEvent struct {
	ms    float64
	kind  loopgrid.EventKind
	pitch int
	vel   float64
}

func play(sched *transport.Scheduler, clock *float64, id int, take []demoEvent) {
	base := *clock
	for _, e := range take {
		*clock = base + e.ms
		sched.PushRecordEvent(id, e.kind, e.pitch, e.vel)
	}
}

// a two-bar bass line at roughly 120 BPM, with human timing jitter
var bassTake = []demoEvent{
	{0, loopgrid.NoteOn, 36, 0.9}, {340, loopgrid.NoteOff, 36, 0},
	{497, loopgrid.NoteOn, 36, 0.7}, {830, loopgrid.NoteOff, 36, 0},
	{1004, loopgrid.NoteOn, 39, 0.8}, {1350, loopgrid.NoteOff, 39, 0},
	{1502, loopgrid.NoteOn, 41, 0.75}, {1960, loopgrid.NoteOff, 41, 0},
	{1998, loopgrid.NoteOn, 36, 0.9}, {2340, loopgrid.NoteOff, 36, 0},
	{2505, loopgrid.NoteOn, 36, 0.65}, {2840, loopgrid.NoteOff, 36, 0},
	{2995, loopgrid.NoteOn, 43, 0.85}, {3330, loopgrid.NoteOff, 43, 0},
	{3503, loopgrid.NoteOn, 41, 0.7}, {3840, loopgrid.NoteOff, 41, 0},
}

// a sparser lead answer, loosely on the eighth grid
var leadTake = []demoEvent{
	{6, loopgrid.NoteOn, 60, 0.8}, {236, loopgrid.NoteOff, 60, 0},
	{256, loopgrid.NoteOn, 63, 0.6}, {489, loopgrid.NoteOff, 63, 0},
	{508, loopgrid.NoteOn, 65, 0.85}, {960, loopgrid.NoteOff, 65, 0},
	{1014, loopgrid.NoteOn, 63, 0.55}, {1240, loopgrid.NoteOff, 63, 0},
	{1494, loopgrid.NoteOn, 60, 0.9}, {1980, loopgrid.NoteOff, 60, 0},
	{2260, loopgrid.NoteOn, 58, 0.5}, {2480, loopgrid.NoteOff, 58, 0},
	{2503, loopgrid.NoteOn, 60, 0.75}, {2992, loopgrid.NoteOff, 60, 0},
}
