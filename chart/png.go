package chart

import (
	"bytes"
	"fmt"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/stsysd/dosesim/pkpd"
)

var parseFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

// RenderPNG draws the same chart as RenderSVG into a PNG image.
func RenderPNG(res *pkpd.Result, opts *Options) ([]byte, error) {
	if res == nil || len(res.Timeline) == 0 {
		return nil, fmt.Errorf("empty timeline")
	}
	opts = fillDefaults(opts)
	l := newLayout(res, opts)

	font, err := parseFont()
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	setFace := func(size int) {
		dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: float64(size)}))
	}

	if opts.Title != "" {
		title := opts.Title
		if opts.Subtitle != "" {
			title += " · " + opts.Subtitle
		}
		setFace(opts.FontSize + 4)
		dc.SetHexColor("#111111")
		dc.DrawString(title, l.plotLeft, 22)
	}

	for i, c := range l.cards {
		x, y, w, h := l.cardBox(i)
		dc.DrawRoundedRectangle(x, y, w, h, 4)
		dc.SetHexColor("#f9fafb")
		dc.FillPreserve()
		dc.SetHexColor(opts.GridColor)
		dc.SetLineWidth(1)
		dc.Stroke()

		setFace(opts.FontSize)
		dc.SetHexColor("#666666")
		dc.DrawString(c.Label, x+8, y+14)
		setFace(opts.FontSize + 2)
		dc.SetHexColor("#111111")
		dc.DrawString(c.Value, x+8, y+32)
	}

	setFace(opts.FontSize)
	dc.SetLineWidth(1)
	for _, t := range l.leftTicks {
		dc.SetHexColor(opts.GridColor)
		dc.DrawLine(l.plotLeft, t.Pos, l.plotRight, t.Pos)
		dc.Stroke()
		dc.SetHexColor("#666666")
		dc.DrawStringAnchored(t.Label, l.plotLeft-6, t.Pos, 1, 0.35)
	}
	for _, t := range l.rightTicks {
		dc.DrawStringAnchored(t.Label, l.plotRight+6, t.Pos, 0, 0.35)
	}
	for _, t := range l.timeTicks {
		dc.DrawStringAnchored(t.Label, t.Pos, l.plotBottom+12, 0.5, 0.5)
	}
	dc.DrawString("mg/L", l.plotLeft-44, l.plotTop-8)
	dc.DrawString("%", l.plotRight+6, l.plotTop-8)

	dc.SetHexColor("#9ca3af")
	dc.DrawRectangle(l.plotLeft, l.plotTop, l.plotRight-l.plotLeft, l.plotBottom-l.plotTop)
	dc.Stroke()

	dc.SetLineWidth(2)
	drawSeries(dc, res.Timeline, l.x, func(s pkpd.Sample) float64 { return l.yLeft(s.Concentration) }, opts.ConcentrationColor)
	drawSeries(dc, res.Timeline, l.x, func(s pkpd.Sample) float64 { return l.yRight(s.Effect) }, opts.EffectColor)
	dc.SetDash(6, 4)
	drawSeries(dc, res.Timeline, l.x, func(s pkpd.Sample) float64 { return l.yRight(s.Tolerance) }, opts.ToleranceColor)
	dc.SetDash()

	legend := []struct{ label, color string }{
		{"Concentration (mg/L)", opts.ConcentrationColor},
		{"Effect", opts.EffectColor},
		{"Tolerance", opts.ToleranceColor},
	}
	lx := l.plotLeft
	for _, item := range legend {
		dc.SetHexColor(item.color)
		dc.DrawRectangle(lx, l.plotBottom+26, 10, 10)
		dc.Fill()
		dc.SetHexColor("#666666")
		dc.DrawString(item.label, lx+14, l.plotBottom+35)
		lx += 160
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSeries(dc *gg.Context, samples []pkpd.Sample, x func(float64) float64, y func(pkpd.Sample) float64, color string) {
	dc.SetHexColor(color)
	dc.NewSubPath()
	for i, s := range samples {
		if i == 0 {
			dc.MoveTo(x(s.Time), y(s))
			continue
		}
		dc.LineTo(x(s.Time), y(s))
	}
	dc.Stroke()
}
