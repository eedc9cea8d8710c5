package chart

import (
	"bytes"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/stsysd/dosesim/pkpd"
)

func caffeineResult(t *testing.T) *pkpd.Result {
	t.Helper()
	res, err := pkpd.Simulate(pkpd.Params{
		Substance: pkpd.Substance{VdPerKg: 0.7, Ka: 2.5, Ke: math.Ln2 / 5, EC50: 10, Emax: 100},
		Subject:   pkpd.Subject{Weight: 70, Age: 25},
		Dose:      500,
		Duration:  24,
	})
	if err != nil {
		t.Fatalf("Simulation failed: %v", err)
	}
	return res
}

func TestRenderSVG(t *testing.T) {
	res := caffeineResult(t)
	svg := RenderSVG(res, &Options{Title: "Caffeine <500 mg>"})

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("Expected a complete SVG document, got %.80s...", svg)
	}
	for _, class := range []string{`class="concentration"`, `class="effect"`, `class="tolerance"`} {
		if !strings.Contains(svg, class) {
			t.Errorf("Expected series %s", class)
		}
	}
	if !strings.Contains(svg, `stroke-dasharray="6 4"`) {
		t.Error("Expected dashed tolerance series")
	}

	// タイトルはエスケープされる
	if !strings.Contains(svg, "Caffeine &lt;500 mg&gt;") {
		t.Error("Expected escaped title")
	}

	// 統計カード
	for _, want := range []string{"Risk Score", "Peak Concentration", "100%", "Total Exposure"} {
		if !strings.Contains(svg, want) {
			t.Errorf("Expected card text %q", want)
		}
	}

	// 24時間は2時間刻み、右軸は0-100
	for _, want := range []string{">0h<", ">12h<", ">24h<", ">100<"} {
		if !strings.Contains(svg, want) {
			t.Errorf("Expected axis label %q", want)
		}
	}
}

func TestRenderSVGPointsPerSample(t *testing.T) {
	res := caffeineResult(t)
	svg := RenderSVG(res, nil)

	start := strings.Index(svg, `class="concentration"`)
	if start < 0 {
		t.Fatal("Concentration series not found")
	}
	rest := svg[start:]
	pointsStart := strings.Index(rest, `points="`) + len(`points="`)
	pointsEnd := strings.Index(rest[pointsStart:], `"`)
	points := strings.Fields(rest[pointsStart : pointsStart+pointsEnd])

	if len(points) != len(res.Timeline) {
		t.Errorf("Expected %d points, got %d", len(res.Timeline), len(points))
	}
}

func TestRenderEmpty(t *testing.T) {
	if got := RenderSVG(&pkpd.Result{}, nil); got != "" {
		t.Errorf("Expected empty SVG for empty timeline, got %q", got)
	}
	if _, err := RenderPNG(&pkpd.Result{}, nil); err == nil {
		t.Error("Expected error for empty timeline")
	}
}

func TestRenderSVGZeroConcentration(t *testing.T) {
	res := &pkpd.Result{Timeline: []pkpd.Sample{{Time: 0}, {Time: 0.1}}}
	svg := RenderSVG(res, nil)
	if strings.Contains(svg, "NaN") || strings.Contains(svg, "Inf") {
		t.Errorf("Expected finite coordinates for all-zero timeline")
	}
}

func TestRenderPNG(t *testing.T) {
	res := caffeineResult(t)
	data, err := RenderPNG(res, &Options{Width: 400, Height: 300, Title: "Caffeine"})
	if err != nil {
		t.Fatalf("RenderPNG failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("Expected 400x300 image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestNiceStep(t *testing.T) {
	tests := []struct {
		max  float64
		want float64
	}{
		{0, 1},
		{8.6, 2},
		{100, 20},
		{0.03, 0.01},
	}
	for _, tt := range tests {
		if got := niceStep(tt.max, 5); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("niceStep(%v) = %v, want %v", tt.max, got, tt.want)
		}
	}
}

func TestTimeStep(t *testing.T) {
	tests := []struct {
		maxTime float64
		want    float64
	}{
		{12, 1},
		{24, 2},
		{48, 4},
		{336, 48},
	}
	for _, tt := range tests {
		if got := timeStep(tt.maxTime); got != tt.want {
			t.Errorf("timeStep(%v) = %v, want %v", tt.maxTime, got, tt.want)
		}
	}
}
