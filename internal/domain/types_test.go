package domain

import (
	"image"
	"testing"

	"seehuhn.de/go/geom/vec"
)

func TestStylePaintPresence(t *testing.T) {
	cases := []struct {
		paint string
		want  bool
	}{
		{"", false},
		{"none", false},
		{" None ", false},
		{"transparent", false},
		{"#000", true},
		{"red", true},
	}
	for _, c := range cases {
		s := Style{Stroke: c.paint, Fill: c.paint}
		if s.HasStroke() != c.want || s.HasFill() != c.want {
			t.Fatalf("paint %q: got stroke=%v fill=%v, want %v", c.paint, s.HasStroke(), s.HasFill(), c.want)
		}
	}
}

func TestWithSubpathsLeavesReceiverUntouched(t *testing.T) {
	s := Shape{ID: "p1"}
	n := s.WithSubpaths([]Polyline{{Points: []vec.Vec2{{X: 0, Y: 0}, {X: 1, Y: 1}}}})
	if s.Subpaths != nil {
		t.Fatalf("receiver modified")
	}
	if len(n.Subpaths) != 1 || n.ID != "p1" {
		t.Fatalf("unexpected copy: %+v", n)
	}
}

func TestBoundsPathAndImage(t *testing.T) {
	s := Shape{Subpaths: []Polyline{
		{Points: []vec.Vec2{{X: 1, Y: 2}, {X: 5, Y: -1}}},
		{Points: []vec.Vec2{{X: -3, Y: 4}}},
	}}
	lo, hi, ok := s.Bounds()
	if !ok || lo != (vec.Vec2{X: -3, Y: -1}) || hi != (vec.Vec2{X: 5, Y: 4}) {
		t.Fatalf("path bounds = %v %v %v", lo, hi, ok)
	}

	img := Shape{Kind: KindImage, Image: &RasterImage{Img: image.NewGray(image.Rect(0, 0, 2, 2)), X: 10, Y: 20, Width: 5, Height: 6}}
	lo, hi, ok = img.Bounds()
	if !ok || lo != (vec.Vec2{X: 10, Y: 20}) || hi != (vec.Vec2{X: 15, Y: 26}) {
		t.Fatalf("image bounds = %v %v %v", lo, hi, ok)
	}

	if _, _, ok := (Shape{}).Bounds(); ok {
		t.Fatalf("empty shape reported bounds")
	}
}

func TestOverrideIsZero(t *testing.T) {
	if !(Override{}).IsZero() {
		t.Fatalf("empty override not zero")
	}
	v := true
	if (Override{PathCut: &v}).IsZero() {
		t.Fatalf("override with pathcut reported zero")
	}
}
