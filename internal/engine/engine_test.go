package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/johannesnoordanus/svg2gcode/internal/config"
	"github.com/johannesnoordanus/svg2gcode/internal/domain"
	"github.com/johannesnoordanus/svg2gcode/internal/gcode"
	applog "github.com/johannesnoordanus/svg2gcode/internal/log"
	"github.com/johannesnoordanus/svg2gcode/internal/params"
	"github.com/johannesnoordanus/svg2gcode/internal/svgdoc"
	gvec "github.com/johannesnoordanus/svg2gcode/internal/vector"
)

const triangle = `<svg xmlns="http://www.w3.org/2000/svg" height="100">
  <path id="tri" d="M10 10 L40 10 L25 40 Z" style="stroke:#A0A0A0;fill:none"/>
</svg>`

func mustDecode(t *testing.T, src string) *domain.Document {
	t.Helper()
	doc, err := svgdoc.Decode(context.Background(), strings.NewReader(src), svgdoc.Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return doc
}

func convert(t *testing.T, doc *domain.Document, s config.Settings) *Result {
	t.Helper()
	res, err := Convert(context.Background(), doc, s)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	return res
}

func lines(b []byte) []string {
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

var sWord = regexp.MustCompile(`\bS(\d+)`)

// burnPowers collects the S words of all G1 lines.
func burnPowers(b []byte) map[int]int {
	out := map[int]int{}
	for _, l := range lines(b) {
		if !strings.HasPrefix(l, "G1") {
			continue
		}
		if m := sWord.FindStringSubmatch(l); m != nil {
			n, _ := strconv.Atoi(m[1])
			out[n]++
		}
	}
	return out
}

func TestEngraveGrayStroke(t *testing.T) {
	res := convert(t, mustDecode(t, triangle), config.Defaults())
	powers := burnPowers(res.Paths)
	if powers[112] == 0 {
		t.Fatalf("no S112 burn, powers = %v", powers)
	}
	for p := range powers {
		if p != 0 && p != 112 {
			t.Fatalf("unexpected power %d in %v", p, powers)
		}
	}
}

func TestPathCutUsesCuttingPower(t *testing.T) {
	s := config.Defaults()
	s.PathCut = true
	res := convert(t, mustDecode(t, triangle), s)
	powers := burnPowers(res.Paths)
	if len(powers) != 1 || powers[850] != 1 {
		t.Fatalf("powers = %v, want a single S850", powers)
	}
	if !bytes.Contains(res.Paths, []byte("G0 X10 Y90\n")) {
		t.Fatalf("missing travel to the first vertex:\n%s", res.Paths)
	}
}

func TestColorCodedIgnore(t *testing.T) {
	doc := mustDecode(t, `<svg height="50"><path id="blk" d="M0 0 H20 V20" stroke="black"/></svg>`)
	s := config.Defaults()
	s.ColorCoded = "black = ignore red = cut blue = engrave"
	res := convert(t, doc, s)
	named := 0
	for _, l := range lines(res.Paths) {
		if strings.HasPrefix(l, "G1") {
			t.Fatalf("burn command for an ignored shape: %q", l)
		}
		if strings.HasPrefix(l, "; ") && strings.Contains(l, "blk") {
			named++
		}
	}
	if named != 1 {
		t.Fatalf("diagnostic comments naming the shape = %d, want 1", named)
	}
	if len(res.Diagnostics) != 1 || !strings.Contains(res.Diagnostics[0], "blk") {
		t.Fatalf("diagnostics = %v", res.Diagnostics)
	}
}

// passPaths splits the stream at pass markers and returns the modal XY
// positions reached by G1 moves in each pass.
func passPaths(b []byte) [][]string {
	var out [][]string
	x, y := "", ""
	for _, l := range lines(b) {
		if strings.HasPrefix(l, "; pass #") {
			out = append(out, nil)
			continue
		}
		f := strings.Fields(l)
		if len(f) == 0 || (f[0] != "G0" && f[0] != "G1") {
			continue
		}
		moved := false
		for _, w := range f[1:] {
			switch w[0] {
			case 'X':
				x, moved = w[1:], true
			case 'Y':
				y, moved = w[1:], true
			}
		}
		if moved && f[0] == "G1" && len(out) > 0 {
			out[len(out)-1] = append(out[len(out)-1], x+","+y)
		}
	}
	return out
}

func TestPassesStepDown(t *testing.T) {
	s := config.Defaults()
	s.PathCut = true
	s.Passes = 10
	s.PassDepth = 0.05
	res := convert(t, mustDecode(t, triangle), s)

	down := 0
	for _, l := range lines(res.Paths) {
		if l == "G1 Z-0.05" {
			down++
		}
	}
	if down != 9 {
		t.Fatalf("step downs = %d, want 9", down)
	}
	passes := passPaths(res.Paths)
	if len(passes) != 10 {
		t.Fatalf("pass markers = %d, want 10", len(passes))
	}
	want := strings.Join(passes[0], " ")
	if want != "40,90 25,60 10,90" {
		t.Fatalf("first pass = %q", want)
	}
	for i, p := range passes {
		if got := strings.Join(p, " "); got != want {
			t.Fatalf("pass %d = %q, want %q", i+1, got, want)
		}
	}
}

func TestPassesWrapAllCutShapes(t *testing.T) {
	doc := mustDecode(t, `<svg height="100">
  <rect id="a" x="0" y="0" width="10" height="10" stroke="red" fill="none"/>
  <rect id="b" x="20" y="0" width="10" height="10" stroke="red" fill="none"/>
</svg>`)
	s := config.Defaults()
	s.PathCut = true
	s.Passes = 3
	s.PassDepth = 0.5
	res := convert(t, doc, s)

	out := string(res.Paths)
	if n := strings.Count(out, "; pass #"); n != 3 {
		t.Fatalf("pass markers = %d, want 3:\n%s", n, out)
	}
	if n := strings.Count(out, "\nG1 Z-0.5\n"); n != 2 {
		t.Fatalf("step downs = %d, want 2:\n%s", n, out)
	}
	passes := passPaths(res.Paths)
	first := strings.Join(passes[0], " ")
	if !strings.Contains(first, "10,90") || !strings.Contains(first, "30,90") {
		t.Fatalf("first pass misses a square: %q", first)
	}
	for i, p := range passes {
		if got := strings.Join(p, " "); got != first {
			t.Fatalf("pass %d = %q, want %q", i+1, got, first)
		}
	}
}

var travelMove = regexp.MustCompile(`^G0 .*[XY]`)

func TestRapidMoveZeroKeepsEveryMoveG1(t *testing.T) {
	for _, cut := range []bool{true, false} {
		s := config.Defaults()
		s.PathCut = cut
		s.RapidMove = 0
		res := convert(t, mustDecode(t, triangle), s)
		for _, l := range lines(res.Paths) {
			if travelMove.MatchString(l) {
				t.Fatalf("pathcut=%v: rapid move %q with rapid moves disabled", cut, l)
			}
		}
		if len(burnPowers(res.Paths)) == 0 {
			t.Fatalf("pathcut=%v: nothing burned", cut)
		}
	}

	// the default threshold still travels rapid
	s := config.Defaults()
	s.PathCut = true
	res := convert(t, mustDecode(t, triangle), s)
	if !bytes.Contains(res.Paths, []byte("\nG0 X10 Y90\n")) {
		t.Fatalf("no rapid travel with rapid moves enabled")
	}
}

func TestLogRecordsCarryFileAndShape(t *testing.T) {
	doc := mustDecode(t, `<svg height="50"><path id="nz" d="M0 0 H10 V10 H0 Z" fill="black" fill-rule="nonzero"/></svg>`)

	// the log file stays open until the process ends
	fpath := filepath.Join(os.TempDir(), "svg2gcode_engine_"+strconv.FormatInt(time.Now().UnixNano(), 10)+".log")
	applog.Init(applog.Options{Level: "debug", Format: "json", File: fpath})
	t.Cleanup(func() { applog.Init(applog.Options{Level: "error"}) })
	ctx := applog.WithFile(context.Background(), "drawing.svg")
	if _, err := Convert(ctx, doc, config.Defaults()); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	found := false
	for _, l := range lines(b) {
		var m map[string]any
		if err := json.Unmarshal([]byte(l), &m); err != nil {
			t.Fatalf("bad record %q: %v", l, err)
		}
		if m["file"] != "drawing.svg" {
			t.Fatalf("record without file: %q", l)
		}
		if m["level"] == "WARN" && strings.Contains(m["msg"].(string), "nonzero") {
			found = m["shape"] == "nz"
		}
	}
	if !found {
		t.Fatalf("no warning for shape nz in:\n%s", b)
	}
}

func blackPNG(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestSplitFile(t *testing.T) {
	doc := mustDecode(t, `<svg height="50">
  <path id="p" d="M0 0 H20" stroke="black"/>
  <image id="i" x="30" y="0" width="2" height="1" href="`+blackPNG(t)+`"/>
</svg>`)
	s := config.Defaults()
	s.SplitFile = true
	res := convert(t, doc, s)
	if res.Images == nil {
		t.Fatalf("no image stream")
	}
	for name, out := range map[string][]byte{"paths": res.Paths, "images": res.Images} {
		l := lines(out)
		if !strings.HasPrefix(l[0], ";    svg2gcode ") || l[len(l)-1] != "M2" {
			t.Fatalf("%s stream not well formed:\n%s", name, out)
		}
		if !bytes.Contains(out, []byte("\nG90\n")) {
			t.Fatalf("%s stream lacks the preamble", name)
		}
		if len(burnPowers(out)) == 0 {
			t.Fatalf("%s stream burns nothing", name)
		}
	}
	if burnPowers(res.Images)[300] == 0 {
		t.Fatalf("image not burned at full image power: %v", burnPowers(res.Images))
	}
	if burnPowers(res.Paths)[300] == 0 {
		t.Fatalf("black stroke not engraved at image power: %v", burnPowers(res.Paths))
	}

	s.SplitFile = false
	res = convert(t, doc, s)
	if res.Images != nil {
		t.Fatalf("image stream without split output")
	}
}

func TestImagesFileName(t *testing.T) {
	cases := map[string]string{
		"out.gc":        "out_images.gc",
		"dir/out.gcode": "dir/out_images.gcode",
		"noext":         "noext_images",
	}
	for in, want := range cases {
		if got := ImagesFileName(in); got != want {
			t.Fatalf("ImagesFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeterministic(t *testing.T) {
	old := clock
	clock = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	defer func() { clock = old }()

	doc := mustDecode(t, triangle)
	a := convert(t, doc, config.Defaults())
	b := convert(t, doc, config.Defaults())
	if !bytes.Equal(a.Paths, b.Paths) {
		t.Fatalf("two runs differ")
	}
	if !bytes.HasPrefix(a.Paths, []byte(";    svg2gcode ")) || !bytes.Contains(a.Paths, []byte("(2024-05-06 07:08:09)")) {
		t.Fatalf("header = %q", lines(a.Paths)[0])
	}
}

func TestTravelLimit(t *testing.T) {
	s := config.Defaults()
	s.PathCut = true
	s.XMaxTravel = 20
	_, err := Convert(context.Background(), mustDecode(t, triangle), s)
	var te *gcode.TravelLimitError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TravelLimitError", err)
	}
	if te.ShapeID != "tri" {
		t.Fatalf("shape = %q", te.ShapeID)
	}
}

func TestSelfCenter(t *testing.T) {
	s := config.Defaults()
	s.PathCut = true
	s.SelfCenter = true
	res := convert(t, mustDecode(t, triangle), s)
	if got := res.BBox.String(); got != "(X-15,Y-15:X15,Y15)" {
		t.Fatalf("bbox = %s", got)
	}
	if x, y := res.BBox.Center(); x != 0 || y != 0 {
		t.Fatalf("center = %g,%g", x, y)
	}
}

func TestOriginScaleRotate(t *testing.T) {
	s := config.Defaults()
	s.PathCut = true
	s.Origin = &config.Pair{5, 5}
	res := convert(t, mustDecode(t, triangle), s)
	if got := res.BBox.String(); got != "(X15,Y65:X45,Y95)" {
		t.Fatalf("origin bbox = %s", got)
	}

	s.Origin = nil
	s.Scale = config.Pair{2, 2}
	s.Rotate = 90
	res = convert(t, mustDecode(t, triangle), s)
	// (x, y) -> (-2y, 2x)
	if got := res.BBox.String(); got != "(X-180,Y20:X-120,Y80)" {
		t.Fatalf("scaled and rotated bbox = %s", got)
	}
}

func TestConfigErrorsBeforeGeometry(t *testing.T) {
	bad := &domain.Document{Shapes: []domain.Shape{{ID: "broken", PathData: "M 0 0 L"}}}

	s := config.Defaults()
	s.Origin = &config.Pair{1, 1}
	s.SelfCenter = true
	var ce *params.ConfigConflictError
	if _, err := Convert(context.Background(), bad, s); !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigConflictError", err)
	}

	s = config.Defaults()
	s.ColorCoded = "black = burn"
	if _, err := Convert(context.Background(), bad, s); err == nil || errors.As(err, new(*gvec.GeometryError)) {
		t.Fatalf("err = %v, want policy error", err)
	}

	var ge *gvec.GeometryError
	if _, err := Convert(context.Background(), bad, config.Defaults()); !errors.As(err, &ge) {
		t.Fatalf("err = %v, want GeometryError", err)
	}
}

func TestUnsupportedFillRuleIsSkipped(t *testing.T) {
	doc := mustDecode(t, `<svg height="50">
  <path id="nz" d="M0 0 H10 V10 H0 Z" fill="black" fill-rule="nonzero"/>
  <path id="ok" d="M0 0 H10" stroke="black"/>
</svg>`)
	res := convert(t, doc, config.Defaults())
	if len(res.Diagnostics) != 1 || !strings.Contains(res.Diagnostics[0], "nonzero") {
		t.Fatalf("diagnostics = %v", res.Diagnostics)
	}
	if len(burnPowers(res.Paths)) == 0 {
		t.Fatalf("remaining shape not burned")
	}
}

func TestDocumentWarningsBecomeDiagnostics(t *testing.T) {
	doc := &domain.Document{Warnings: []string{"image x: decode image: bad"}}
	res := convert(t, doc, config.Defaults())
	if len(res.Diagnostics) != 1 || !bytes.Contains(res.Paths, []byte("; image x: decode image: bad\n")) {
		t.Fatalf("warning not reported: %v", res.Diagnostics)
	}
}
