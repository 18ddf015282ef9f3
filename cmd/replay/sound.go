package main

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// HitGenerator is a short decaying two-partial tone, pitched down for kills.
type HitGenerator struct {
	sr   beep.SampleRate
	freq float64
	pos  int
}

func NewHitGenerator(sr beep.SampleRate, freq float64) *HitGenerator {
	return &HitGenerator{sr: sr, freq: freq}
}

func (g *HitGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)
		sample := 0.3*math.Sin(2*math.Pi*g.freq*t) + 0.1*math.Sin(2*math.Pi*g.freq*2*t)
		sample *= math.Exp(-t*30) * 0.5
		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *HitGenerator) Err() error { return nil }

type cue struct {
	on bool
}

func newCue(enabled bool) (*cue, error) {
	if !enabled {
		return &cue{}, nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return &cue{}, err
	}
	return &cue{on: true}, nil
}

func (c *cue) hit(kill bool) {
	if !c.on {
		return
	}
	freq := 660.0
	if kill {
		freq = 220
	}
	speaker.Play(beep.Take(sampleRate.N(80*time.Millisecond), NewHitGenerator(sampleRate, freq)))
}

func (c *cue) close() {
	if c.on {
		speaker.Close()
	}
}
