package chart

import (
	"fmt"
	"html"
	"strings"

	"github.com/stsysd/dosesim/pkpd"
)

// RenderSVG returns an SVG document for the timeline of res.
// An empty timeline yields an empty string.
func RenderSVG(res *pkpd.Result, opts *Options) string {
	if res == nil || len(res.Timeline) == 0 {
		return ""
	}
	opts = fillDefaults(opts)
	l := newLayout(res, opts)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`+"\n",
		opts.Width, opts.Height, opts.Width, opts.Height))
	sb.WriteString(fmt.Sprintf(`  <style>.label{font-family:%s;font-size:%dpx;fill:#666}.title{font-family:%s;font-size:%dpx;font-weight:bold;fill:#111}.card{font-family:%s;font-size:%dpx;fill:#111}</style>`+"\n",
		opts.FontFamily, opts.FontSize, opts.FontFamily, opts.FontSize+4, opts.FontFamily, opts.FontSize+2))
	sb.WriteString(fmt.Sprintf(`  <rect width="%d" height="%d" fill="#ffffff"/>`+"\n", opts.Width, opts.Height))

	// タイトル
	if opts.Title != "" {
		title := opts.Title
		if opts.Subtitle != "" {
			title += " · " + opts.Subtitle
		}
		sb.WriteString(fmt.Sprintf(`  <text x="%.1f" y="22" class="title">%s</text>`+"\n", l.plotLeft, html.EscapeString(title)))
	}

	// 統計カード
	for i, c := range l.cards {
		x, y, w, h := l.cardBox(i)
		sb.WriteString(fmt.Sprintf(`  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="4" fill="#f9fafb" stroke="%s"/>`+"\n",
			x, y, w, h, opts.GridColor))
		sb.WriteString(fmt.Sprintf(`  <text x="%.1f" y="%.1f" class="label">%s</text>`+"\n", x+8, y+14, c.Label))
		sb.WriteString(fmt.Sprintf(`  <text x="%.1f" y="%.1f" class="card">%s</text>`+"\n", x+8, y+32, html.EscapeString(c.Value)))
	}

	// グリッドと軸ラベル
	for _, t := range l.leftTicks {
		sb.WriteString(fmt.Sprintf(`  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`+"\n",
			l.plotLeft, t.Pos, l.plotRight, t.Pos, opts.GridColor))
		sb.WriteString(fmt.Sprintf(`  <text x="%.1f" y="%.1f" class="label" text-anchor="end">%s</text>`+"\n",
			l.plotLeft-6, t.Pos+4, t.Label))
	}
	for _, t := range l.rightTicks {
		sb.WriteString(fmt.Sprintf(`  <text x="%.1f" y="%.1f" class="label">%s</text>`+"\n",
			l.plotRight+6, t.Pos+4, t.Label))
	}
	for _, t := range l.timeTicks {
		sb.WriteString(fmt.Sprintf(`  <text x="%.1f" y="%.1f" class="label" text-anchor="middle">%s</text>`+"\n",
			t.Pos, l.plotBottom+16, t.Label))
	}
	sb.WriteString(fmt.Sprintf(`  <text x="%.1f" y="%.1f" class="label">mg/L</text>`+"\n", l.plotLeft-44, l.plotTop-8))
	sb.WriteString(fmt.Sprintf(`  <text x="%.1f" y="%.1f" class="label">%%</text>`+"\n", l.plotRight+6, l.plotTop-8))
	sb.WriteString(fmt.Sprintf(`  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="#9ca3af"/>`+"\n",
		l.plotLeft, l.plotTop, l.plotRight-l.plotLeft, l.plotBottom-l.plotTop))

	// 系列
	writePolyline(&sb, res.Timeline, l.x, func(s pkpd.Sample) float64 { return l.yLeft(s.Concentration) },
		opts.ConcentrationColor, "concentration", "")
	writePolyline(&sb, res.Timeline, l.x, func(s pkpd.Sample) float64 { return l.yRight(s.Effect) },
		opts.EffectColor, "effect", "")
	writePolyline(&sb, res.Timeline, l.x, func(s pkpd.Sample) float64 { return l.yRight(s.Tolerance) },
		opts.ToleranceColor, "tolerance", ` stroke-dasharray="6 4"`)

	// 凡例
	legend := []struct{ label, color string }{
		{"Concentration (mg/L)", opts.ConcentrationColor},
		{"Effect", opts.EffectColor},
		{"Tolerance", opts.ToleranceColor},
	}
	lx := l.plotLeft
	for _, item := range legend {
		sb.WriteString(fmt.Sprintf(`  <rect x="%.1f" y="%.1f" width="10" height="10" fill="%s"/>`+"\n",
			lx, l.plotBottom+26, item.color))
		sb.WriteString(fmt.Sprintf(`  <text x="%.1f" y="%.1f" class="label">%s</text>`+"\n",
			lx+14, l.plotBottom+35, item.label))
		lx += 160
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}

func writePolyline(sb *strings.Builder, samples []pkpd.Sample, x func(float64) float64, y func(pkpd.Sample) float64, color, class, extra string) {
	sb.WriteString(fmt.Sprintf(`  <polyline class="%s" fill="none" stroke="%s" stroke-width="2"%s points="`, class, color, extra))
	for i, s := range samples {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprintf("%.1f,%.1f", x(s.Time), y(s)))
	}
	sb.WriteString(`"/>` + "\n")
}
