package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fogleman/gg"

	"ktick/core"
	"ktick/fixedpoint"
)

const (
	plotWidth  = 800
	plotHeight = 520
	plotMargin = 50
)

var errNoSamples = errors.New("no samples to plot; run for at least one simulated second")

// sample is the scheduler state at a second boundary
type sample struct {
	second     int64
	loadAvg    fixedpoint.Fixed
	priorities map[string]int
}

var plotColors = [][3]float64{
	{0.85, 0.20, 0.20},
	{0.20, 0.45, 0.85},
	{0.20, 0.65, 0.30},
	{0.80, 0.55, 0.10},
	{0.55, 0.30, 0.75},
	{0.30, 0.70, 0.75},
}

// panel maps simulated seconds and a value range onto one band of the image
type panel struct {
	top, bottom float64
	max         float64
	lastSecond  float64
}

func (p panel) x(sec int64) float64 {
	return plotMargin + float64(sec)/p.lastSecond*(plotWidth-2*plotMargin)
}

func (p panel) y(v float64) float64 {
	return p.bottom - v/p.max*(p.bottom-p.top)
}

func (p panel) frame(dc *gg.Context, title string) {
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(plotMargin, p.top, plotMargin, p.bottom)
	dc.DrawLine(plotMargin, p.bottom, plotWidth-plotMargin, p.bottom)
	dc.Stroke()
	dc.DrawString(title, plotMargin+6, p.top-6)
	dc.DrawStringAnchored(fmt.Sprintf("%.0f", p.max), plotMargin-6, p.top, 1, 0.5)
	dc.DrawStringAnchored("0", plotMargin-6, p.bottom, 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.0fs", p.lastSecond), plotWidth-plotMargin, p.bottom+14, 1, 0)
}

func (p panel) line(dc *gg.Context, samples []sample, value func(sample) (float64, bool)) {
	started := false
	for _, s := range samples {
		v, ok := value(s)
		if !ok {
			continue
		}
		if started {
			dc.LineTo(p.x(s.second), p.y(v))
		} else {
			dc.MoveTo(p.x(s.second), p.y(v))
			started = true
		}
	}
	dc.Stroke()
}

// renderPlot writes a PNG with the load average in the upper band and each
// thread's priority in the lower band
func renderPlot(samples []sample, path string) error {
	if len(samples) == 0 {
		return errNoSamples
	}

	dc := gg.NewContext(plotWidth, plotHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	last := float64(samples[len(samples)-1].second)
	mid := float64(plotHeight) / 2

	maxLoad := 1.0
	for _, s := range samples {
		if l := float64(s.loadAvg.Raw()) / float64(fixedpoint.One); l > maxLoad {
			maxLoad = l
		}
	}
	load := panel{top: plotMargin, bottom: mid - plotMargin/2, max: maxLoad, lastSecond: last}
	load.frame(dc, "load_avg")
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetLineWidth(2)
	load.line(dc, samples, func(s sample) (float64, bool) {
		return float64(s.loadAvg.Raw()) / float64(fixedpoint.One), true
	})

	pri := panel{top: mid + plotMargin/2, bottom: plotHeight - plotMargin, max: core.PriMax, lastSecond: last}
	pri.frame(dc, "priority")

	names := make(map[string]bool)
	for _, s := range samples {
		for name := range s.priorities {
			names[name] = true
		}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	for i, name := range sorted {
		c := plotColors[i%len(plotColors)]
		dc.SetRGB(c[0], c[1], c[2])
		dc.SetLineWidth(2)
		pri.line(dc, samples, func(s sample) (float64, bool) {
			p, ok := s.priorities[name]
			return float64(p), ok
		})
		dc.DrawString(name, plotWidth-plotMargin+6, pri.top+float64(i+1)*14)
	}

	return dc.SavePNG(path)
}
