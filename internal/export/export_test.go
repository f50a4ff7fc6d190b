package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"TacticalBoard/internal/state"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type stubLoader struct {
	img image.Image
	err error
}

func (s stubLoader) Load(context.Context, string) (image.Image, error) { return s.img, s.err }

func newExporter(t *testing.T, loader Loader, opts Options) *Exporter {
	t.Helper()
	c, err := NewCompositor(opts)
	if err != nil {
		t.Fatal(err)
	}
	return &Exporter{Compositor: c, Loader: loader}
}

func TestArrowHeads(t *testing.T) {
	a := state.Arrow{Start: state.Pt(10, 10), End: state.Pt(50, 10)}

	double := ArrowHeads(a, state.ArrowDouble, 3)
	if len(double) != 2 {
		t.Fatalf("Expected 2 heads for double style, got %d", len(double))
	}
	tips := map[state.Point]bool{double[0][0]: true, double[1][0]: true}
	if !tips[state.Pt(10, 10)] || !tips[state.Pt(50, 10)] {
		t.Errorf("Expected heads at both ends, got tips %v and %v", double[0][0], double[1][0])
	}
	// The head at the start must point away from the end.
	for _, h := range double {
		if h[0] == state.Pt(10, 10) && (h[1].X <= 10 || h[2].X <= 10) {
			t.Errorf("Start head points the wrong way: %v", h)
		}
	}

	single := ArrowHeads(a, state.ArrowSingle, 3)
	if len(single) != 1 || single[0][0] != state.Pt(50, 10) {
		t.Errorf("Expected one head at the end, got %v", single)
	}
	if n := len(ArrowHeads(a, state.ArrowNone, 3)); n != 0 {
		t.Errorf("Expected no heads, got %d", n)
	}
	if n := len(ArrowHeads(state.Arrow{}, state.ArrowDouble, 3)); n != 0 {
		t.Errorf("Zero-length arrow should have no heads, got %d", n)
	}
}

func TestComposeDrawOrder(t *testing.T) {
	c, err := NewCompositor(Options{})
	if err != nil {
		t.Fatal(err)
	}
	scene := state.Scene{
		MapName: "Bermuda",
		Primitives: []state.Primitive{
			state.NewPrimitive(&state.Circle{Center: state.Pt(100, 50), Radius: 20, Filled: true}, "#ff0000", 3),
			state.NewPrimitive(&state.Circle{Center: state.Pt(100, 50), Radius: 5, Filled: true}, "#0000ff", 3),
		},
	}
	img, err := c.Compose(whiteImage(200, 100), scene)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("Composite should keep background size, got %v", b)
	}
	if got := color.NRGBAModel.Convert(img.At(100, 50)).(color.NRGBA); got.B != 255 || got.R != 0 {
		t.Errorf("Later primitive should be on top, got %v", got)
	}
	if got := color.NRGBAModel.Convert(img.At(112, 50)).(color.NRGBA); got.R != 255 || got.G != 0 {
		t.Errorf("Expected red circle ring, got %v", got)
	}
	if got := color.NRGBAModel.Convert(img.At(5, 5)).(color.NRGBA); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("Background should show through, got %v", got)
	}
}

func TestComposeWatermarkBottomRight(t *testing.T) {
	c, err := NewCompositor(Options{Watermark: "@ffcoach", ShowWatermarkPanel: true})
	if err != nil {
		t.Fatal(err)
	}
	img, err := c.Compose(whiteImage(400, 300), state.Scene{})
	if err != nil {
		t.Fatal(err)
	}
	if !hasNonWhite(img, image.Rect(200, 150, 400, 300)) {
		t.Error("Expected watermark panel in the bottom-right quadrant")
	}
	if hasNonWhite(img, image.Rect(0, 0, 200, 150)) {
		t.Error("Top-left quadrant should be untouched")
	}
}

func TestComposeLabels(t *testing.T) {
	logo := image.NewRGBA(image.Rect(0, 0, 32, 32))
	draw.Draw(logo, logo.Bounds(), &image.Uniform{color.NRGBA{G: 255, A: 255}}, image.Point{}, draw.Src)

	c, err := NewCompositor(Options{})
	if err != nil {
		t.Fatal(err)
	}
	scene := state.Scene{Labels: []state.Label{
		{ID: "logo", Kind: state.LabelLogo, Logo: pngBytes(t, logo), Position: state.Pt(100, 100)},
		{ID: "name", Kind: state.LabelText, Text: "TEAM", Color: "#ffffff", Position: state.Pt(300, 100)},
	}}
	img, err := c.Compose(whiteImage(400, 200), scene)
	if err != nil {
		t.Fatal(err)
	}
	if got := color.NRGBAModel.Convert(img.At(100, 100)).(color.NRGBA); got.G != 255 || got.R > 10 {
		t.Errorf("Expected logo at its position, got %v", got)
	}
	// White text on white only shows through its dark outline.
	if !hasNonWhite(img, image.Rect(250, 80, 350, 120)) {
		t.Error("Expected outlined text label")
	}

	scene.Labels = []state.Label{{ID: "bad", Kind: state.LabelLogo, Logo: []byte("nope")}}
	if _, err := c.Compose(whiteImage(10, 10), scene); !errors.Is(err, ErrImageLoad) {
		t.Errorf("Expected ErrImageLoad for broken logo, got %v", err)
	}
}

func TestExportFailsWithoutPartialOutput(t *testing.T) {
	e := newExporter(t, stubLoader{err: ErrImageLoad}, Options{})
	var out bytes.Buffer
	err := e.WriteTo(context.Background(), &out, "png", "maps/bermuda.png", state.Scene{MapName: "Bermuda"}, PDFOptions{})
	if !errors.Is(err, ErrImageLoad) {
		t.Errorf("Expected ErrImageLoad, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Failed export wrote %d bytes", out.Len())
	}
}

func TestExportPNGAndPDF(t *testing.T) {
	e := newExporter(t, stubLoader{img: whiteImage(320, 180)}, Options{Watermark: "wm"})
	scene := state.Scene{
		MapName:    "Bermuda",
		ArrowStyle: state.ArrowDouble,
		Primitives: []state.Primitive{
			state.NewPrimitive(&state.Arrow{Start: state.Pt(10, 10), End: state.Pt(50, 10)}, "#000000", 3),
		},
	}

	data, err := e.PNG(context.Background(), "bg", scene)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 320 {
		t.Errorf("Unexpected PNG width %d", img.Bounds().Dx())
	}

	pdf, err := e.PDF(context.Background(), "bg", scene, PDFOptions{Title: "Scrim", Subtitle: "Round 1", Cover: true})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Error("Expected a PDF document")
	}

	path, err := e.Print(context.Background(), "bg", scene, PDFOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)
	if filepath.Ext(path) != ".pdf" {
		t.Errorf("Expected temp pdf, got %s", path)
	}
}

func TestLetterbox(t *testing.T) {
	x, y, w, h := Letterbox(800, 400, 10, 10, 200, 190)
	if w != 200 || h != 100 {
		t.Errorf("Wide image should fill width: %v x %v", w, h)
	}
	if x != 10 || y != 55 {
		t.Errorf("Wide image should center vertically: (%v, %v)", x, y)
	}

	x, _, w, h = Letterbox(400, 800, 0, 0, 200, 100)
	if h != 100 || w != 50 || x != 75 {
		t.Errorf("Tall image should fill height and center: x=%v %vx%v", x, w, h)
	}
}

func TestImageLoader(t *testing.T) {
	data := pngBytes(t, whiteImage(4, 3))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bermuda.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "alpine.png"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	l := &ImageLoader{Dir: dir}
	ctx := context.Background()

	if img, err := l.Load(ctx, srv.URL+"/bermuda.png"); err != nil || img.Bounds().Dx() != 4 {
		t.Errorf("HTTP load failed: %v", err)
	}
	if img, err := l.Load(ctx, "alpine.png"); err != nil || img.Bounds().Dy() != 3 {
		t.Errorf("File load failed: %v", err)
	}
	for _, ref := range []string{srv.URL + "/missing.png", "missing.png"} {
		if _, err := l.Load(ctx, ref); !errors.Is(err, ErrImageLoad) {
			t.Errorf("Load(%q): expected ErrImageLoad, got %v", ref, err)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("Bermuda Remastered", ".png"); got != "Bermuda_Remastered.png" {
		t.Errorf("got %q", got)
	}
	if got := FileName("../", ".pdf"); got != "board.pdf" {
		t.Errorf("got %q", got)
	}
}

func hasNonWhite(img image.Image, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R < 250 || c.G < 250 || c.B < 250 {
				return true
			}
		}
	}
	return false
}
