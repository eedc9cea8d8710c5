// Package chart renders a simulation timeline as a dual-axis line chart.
//
// Concentration is drawn against the left axis, which is scaled to the run's
// peak. Effect and tolerance share the right axis, fixed at 0-100. A row of
// cards above the plot repeats the run's summary statistics.
package chart

import (
	"math"
	"strconv"

	"github.com/stsysd/dosesim/pkpd"
)

// Options configures rendering parameters.
type Options struct {
	Width      int    // total width (px)
	Height     int    // total height (px)
	FontSize   int    // label font size (px)
	FontFamily string // font family for SVG labels
	Title      string // printed above the cards, usually the substance name
	Subtitle   string // second title line, usually the regimen

	ConcentrationColor string
	EffectColor        string
	ToleranceColor     string
	GridColor          string
}

// DefaultOptions returns the options used when nil is passed to a renderer.
func DefaultOptions() *Options {
	return &Options{
		Width:              800,
		Height:             420,
		FontSize:           11,
		FontFamily:         "sans-serif",
		ConcentrationColor: "#2563eb",
		EffectColor:        "#16a34a",
		ToleranceColor:     "#dc2626",
		GridColor:          "#e5e7eb",
	}
}

// fillDefaults returns a copy of opts with zero fields taken from DefaultOptions.
func fillDefaults(opts *Options) *Options {
	d := DefaultOptions()
	if opts == nil {
		return d
	}
	o := *opts
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	if o.FontFamily == "" {
		o.FontFamily = d.FontFamily
	}
	if o.ConcentrationColor == "" {
		o.ConcentrationColor = d.ConcentrationColor
	}
	if o.EffectColor == "" {
		o.EffectColor = d.EffectColor
	}
	if o.ToleranceColor == "" {
		o.ToleranceColor = d.ToleranceColor
	}
	if o.GridColor == "" {
		o.GridColor = d.GridColor
	}
	return &o
}

const (
	marginLeft   = 64.0
	marginRight  = 56.0
	marginBottom = 44.0
	headerHeight = 96.0
)

type card struct {
	Label string
	Value string
}

type tick struct {
	Pos   float64
	Label string
}

// layout holds the geometry shared by the SVG and PNG renderers.
type layout struct {
	opts *Options

	plotLeft, plotRight, plotTop, plotBottom float64

	maxTime          float64
	maxConcentration float64

	timeTicks  []tick
	leftTicks  []tick
	rightTicks []tick

	cards []card
}

func newLayout(res *pkpd.Result, opts *Options) *layout {
	l := &layout{
		opts:       opts,
		plotLeft:   marginLeft,
		plotRight:  float64(opts.Width) - marginRight,
		plotTop:    headerHeight,
		plotBottom: float64(opts.Height) - marginBottom,
	}

	last := res.Timeline[len(res.Timeline)-1].Time
	l.maxTime = math.Max(last, 1)

	peak := res.Stats.MaxConcentration
	for _, s := range res.Timeline {
		peak = math.Max(peak, s.Concentration)
	}
	step := niceStep(peak, 5)
	l.maxConcentration = math.Max(math.Ceil(peak/step)*step, step)

	for i := 0; float64(i)*step <= l.maxConcentration+step/2; i++ {
		v := float64(i) * step
		l.leftTicks = append(l.leftTicks, tick{Pos: l.yLeft(v), Label: formatTick(v, step)})
	}
	for v := 0; v <= 100; v += 25 {
		l.rightTicks = append(l.rightTicks, tick{Pos: l.yRight(float64(v)), Label: strconv.Itoa(v)})
	}
	tstep := timeStep(l.maxTime)
	for i := 0; float64(i)*tstep <= l.maxTime+1e-9; i++ {
		v := float64(i) * tstep
		l.timeTicks = append(l.timeTicks, tick{Pos: l.x(v), Label: formatTick(v, tstep) + "h"})
	}

	l.cards = []card{
		{Label: "Risk Score", Value: strconv.FormatFloat(res.Stats.RiskScore, 'f', 1, 64)},
		{Label: "Peak Concentration", Value: strconv.FormatFloat(res.Stats.MaxConcentration, 'f', 3, 64) + " mg/L"},
		{Label: "Metabolism Efficiency", Value: strconv.FormatFloat(res.Stats.MetabolismEfficiency, 'f', 0, 64) + "%"},
		{Label: "Total Exposure", Value: strconv.FormatFloat(res.Stats.TotalExposure, 'f', 2, 64) + " mg·h/L"},
	}
	return l
}

func (l *layout) x(t float64) float64 {
	return l.plotLeft + t/l.maxTime*(l.plotRight-l.plotLeft)
}

func (l *layout) yLeft(c float64) float64 {
	return l.plotBottom - c/l.maxConcentration*(l.plotBottom-l.plotTop)
}

func (l *layout) yRight(v float64) float64 {
	return l.plotBottom - v/100*(l.plotBottom-l.plotTop)
}

// cardBox returns the rectangle of the i-th stats card.
func (l *layout) cardBox(i int) (x, y, w, h float64) {
	const gap = 12.0
	n := float64(len(l.cards))
	w = (l.plotRight - l.plotLeft - gap*(n-1)) / n
	h = 40
	x = l.plotLeft + float64(i)*(w+gap)
	y = 40
	return x, y, w, h
}

// niceStep picks a 1-2-5 step that splits max into at most n intervals.
func niceStep(max float64, n int) float64 {
	if max <= 0 {
		return 1
	}
	raw := max / float64(n)
	mag := math.Pow10(int(math.Floor(math.Log10(raw))))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*mag >= raw {
			return m * mag
		}
	}
	return 10 * mag
}

// timeStep picks an hour step giving at most 12 time ticks.
func timeStep(maxTime float64) float64 {
	for _, s := range []float64{1, 2, 3, 4, 6, 12, 24, 48, 72, 168} {
		if maxTime/s <= 12 {
			return s
		}
	}
	return niceStep(maxTime, 12)
}

func formatTick(v, step float64) string {
	digits := 0
	if step < 1 {
		digits = int(math.Ceil(-math.Log10(step)))
	}
	return strconv.FormatFloat(v, 'f', digits, 64)
}
