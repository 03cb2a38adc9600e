package raster

import (
	"errors"
	"image"
	imgcolor "image/color"
	"testing"

	"seehuhn.de/go/geom/matrix"

	"github.com/johannesnoordanus/svg2gcode/internal/classify"
	"github.com/johannesnoordanus/svg2gcode/internal/config"
	"github.com/johannesnoordanus/svg2gcode/internal/domain"
	"github.com/johannesnoordanus/svg2gcode/internal/params"
	gvec "github.com/johannesnoordanus/svg2gcode/internal/vector"
)

func shape(t *testing.T, d string, st domain.Style) domain.Shape {
	t.Helper()
	p, err := gvec.ParsePath("s1", d)
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	return domain.Shape{ID: "s1", Style: st, Subpaths: gvec.Flatten(p, matrix.Identity, gvec.Tolerance)}
}

func engraveParams() params.ResolvedParams {
	return params.Resolve(config.Defaults(), domain.Override{}, classify.Engrave)
}

func count(g *Grid) (n int) {
	for _, p := range g.Power {
		if p != 0 {
			n++
		}
	}
	return n
}

func TestStrokeGrayPower(t *testing.T) {
	st := domain.DefaultStyle()
	st.Stroke = "#A0A0A0"
	g, err := RasterizeShape(shape(t, "M0 0 L10 0 L5 8 Z", st), engraveParams(), Options{})
	if err != nil {
		t.Fatalf("RasterizeShape: %v", err)
	}
	if count(g) == 0 {
		t.Fatalf("nothing burned")
	}
	for _, p := range g.Power {
		if p != 0 && p != 112 {
			t.Fatalf("power %d, want 112", p)
		}
	}
	// the inside of the triangle stays untouched
	col := int((5 - g.Origin.X) / g.Pitch)
	row := int((3 - g.Origin.Y) / g.Pitch)
	if g.At(col, row) != 0 {
		t.Fatalf("interior pixel burned")
	}
}

func TestFillSquare(t *testing.T) {
	st := domain.DefaultStyle()
	st.Fill = "black"
	g, err := RasterizeShape(shape(t, "M0 0 H1 V1 H0 Z", st), engraveParams(), Options{})
	if err != nil {
		t.Fatalf("RasterizeShape: %v", err)
	}
	if n := count(g); n != 100 {
		t.Fatalf("filled %d pixels, want 100", n)
	}
	if g.MaxPower() != 300 {
		t.Fatalf("max power %d, want 300", g.MaxPower())
	}
}

func TestFillEvenOddHole(t *testing.T) {
	st := domain.DefaultStyle()
	st.Fill = "#000"
	st.FillRule = "evenodd"
	g, err := RasterizeShape(shape(t, "M0 0 H2 V2 H0 Z M0.5 0.5 H1.5 V1.5 H0.5 Z", st), engraveParams(), Options{})
	if err != nil {
		t.Fatalf("RasterizeShape: %v", err)
	}
	if n := count(g); n != 300 {
		t.Fatalf("filled %d pixels, want 300", n)
	}
	col := int((1 - g.Origin.X) / g.Pitch)
	row := int((1 - g.Origin.Y) / g.Pitch)
	if g.At(col, row) != 0 {
		t.Fatalf("hole was filled")
	}
}

func TestNonzeroFillUnsupported(t *testing.T) {
	st := domain.DefaultStyle()
	st.Fill = "black"
	st.Stroke = "black"
	st.FillRule = "nonzero"
	s := shape(t, "M0 0 H1 V1 Z", st)
	_, err := RasterizeShape(s, engraveParams(), Options{})
	var ue *UnsupportedFeatureError
	if !errors.As(err, &ue) || ue.ShapeID != "s1" {
		t.Fatalf("expected UnsupportedFeatureError, got %v", err)
	}
	// without fill the rule does not matter
	if _, err := RasterizeShape(s, engraveParams(), Options{NoFill: true}); err != nil {
		t.Fatalf("nofill: %v", err)
	}
}

func TestNoiseSuppressesLowPower(t *testing.T) {
	st := domain.DefaultStyle()
	st.Stroke = "#A0A0A0"
	rp := engraveParams()
	rp.Noise = 112
	g, err := RasterizeShape(shape(t, "M0 0 L10 0", st), rp, Options{})
	if err != nil {
		t.Fatalf("RasterizeShape: %v", err)
	}
	if !g.Empty() {
		t.Fatalf("power at noise level was kept")
	}
}

func TestOpacityAndOffsetOnlyOnCoveredPixels(t *testing.T) {
	st := domain.DefaultStyle()
	st.Fill = "white"
	st.Stroke = "black"
	st.StrokeOpacity = 0.5
	rp := engraveParams()
	rp.PowerOffset = 20
	g, err := RasterizeShape(shape(t, "M0 0 H2 V2 H0 Z", st), rp, Options{})
	if err != nil {
		t.Fatalf("RasterizeShape: %v", err)
	}
	seen := map[uint16]bool{}
	for _, p := range g.Power {
		seen[p] = true
	}
	// background, white fill at the offset, half black stroke
	want := round((1-127.5/255)*280) + 20
	if !seen[0] || !seen[20] || !seen[uint16(want)] || len(seen) != 3 {
		t.Fatalf("power values %v, want {0, 20, %d}", seen, want)
	}
}

func round(v float64) int { return int(v + 0.5) }

func TestHairlineStrokeIsOnePixelWide(t *testing.T) {
	st := domain.DefaultStyle()
	st.Stroke = "black"
	st.StrokeWidth = 0.01
	g, err := RasterizeShape(shape(t, "M0 0.52 H5", st), engraveParams(), Options{})
	if err != nil {
		t.Fatalf("RasterizeShape: %v", err)
	}
	rows := map[int]int{}
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if g.At(col, row) != 0 {
				rows[row]++
			}
		}
	}
	if len(rows) != 1 {
		t.Fatalf("stroke spans rows %v", rows)
	}
	for _, n := range rows {
		if n < 50 || n > 52 {
			t.Fatalf("stroke is %d pixels long", n)
		}
	}
}

func TestPowerMapping(t *testing.T) {
	m := mapper{maxPower: 300, offset: 0, limit: 1000}
	if p := m.power(160); p != 112 {
		t.Fatalf("power(160) = %d", p)
	}
	if p := m.power(0); p != 300 {
		t.Fatalf("power(0) = %d", p)
	}
	if p := m.power(255); p != 0 {
		t.Fatalf("power(255) = %d", p)
	}
	m.limit = 100
	if p := m.power(0); p != 100 {
		t.Fatalf("clamped power(0) = %d", p)
	}
	m.invert = true
	if p := m.power(255); p != 100 {
		t.Fatalf("inverted power(255) = %d", p)
	}
}

func TestRasterizeImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := imgcolor.NRGBA{R: 255, G: 255, B: 255, A: 255}
			if y < 2 {
				c = imgcolor.NRGBA{A: 255} // top half black
			}
			img.SetNRGBA(x, y, c)
		}
	}
	s := domain.Shape{ID: "img", Kind: domain.KindImage, Image: &domain.RasterImage{Img: img, X: 10, Y: 20, Width: 0.4, Height: 0.4}}
	g, err := RasterizeImage(s, engraveParams())
	if err != nil {
		t.Fatalf("RasterizeImage: %v", err)
	}
	if g.Width != 4 || g.Height != 4 || g.Origin.X != 10 || g.Origin.Y != 20 {
		t.Fatalf("grid geometry %dx%d at %v", g.Width, g.Height, g.Origin)
	}
	if p := g.At(1, 3); p < 250 {
		t.Fatalf("top row power %d, expected black", p)
	}
	if p := g.At(1, 0); p > 50 {
		t.Fatalf("bottom row power %d, expected white", p)
	}
}

func TestRasterizeImageTransparentIsWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2)) // all transparent black
	s := domain.Shape{Kind: domain.KindImage, Image: &domain.RasterImage{Img: img, Width: 0.2, Height: 0.2}}
	g, err := RasterizeImage(s, engraveParams())
	if err != nil {
		t.Fatalf("RasterizeImage: %v", err)
	}
	if !g.Empty() {
		t.Fatalf("transparent pixels burned: %v", g.Power)
	}
	if _, err := RasterizeImage(domain.Shape{Kind: domain.KindImage}, engraveParams()); err == nil {
		t.Fatalf("expected error for missing pixels")
	}
}
