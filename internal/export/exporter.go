package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"strings"

	"TacticalBoard/internal/state"
)

// Exporter loads the background of a scene and renders it to the supported
// outputs. Every output is fully rendered in memory before anything is
// written, so a failed export never leaves a partial file.
type Exporter struct {
	Compositor *Compositor
	Loader     Loader
}

// Render composes the scene over the image at bgRef.
func (e *Exporter) Render(ctx context.Context, bgRef string, scene state.Scene) (image.Image, error) {
	bg, err := e.Loader.Load(ctx, bgRef)
	if err != nil {
		log.Printf("[EXPORT] Background %q failed: %v", bgRef, err)
		return nil, err
	}
	img, err := e.Compositor.Compose(bg, scene)
	if err != nil {
		log.Printf("[EXPORT] Compose %q failed: %v", scene.MapName, err)
		return nil, err
	}
	return img, nil
}

// PNG renders the scene and returns the encoded file.
func (e *Exporter) PNG(ctx context.Context, bgRef string, scene state.Scene) ([]byte, error) {
	img, err := e.Render(ctx, bgRef, scene)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	log.Printf("[EXPORT] Rendered %s (%d bytes)", FileName(scene.MapName, ".png"), buf.Len())
	return buf.Bytes(), nil
}

// PDF renders the scene into a paginated document.
func (e *Exporter) PDF(ctx context.Context, bgRef string, scene state.Scene, opts PDFOptions) ([]byte, error) {
	img, err := e.Render(ctx, bgRef, scene)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WritePDF(&buf, img, opts); err != nil {
		return nil, err
	}
	log.Printf("[EXPORT] Rendered %s (%d bytes)", FileName(scene.MapName, ".pdf"), buf.Len())
	return buf.Bytes(), nil
}

// WriteTo is a convenience for headless exports: format is "png" or "pdf".
func (e *Exporter) WriteTo(ctx context.Context, w io.Writer, format, bgRef string, scene state.Scene, opts PDFOptions) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "png":
		data, err = e.PNG(ctx, bgRef, scene)
	case "pdf":
		data, err = e.PDF(ctx, bgRef, scene, opts)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Print renders the document to a temporary PDF for the system viewer to
// print and returns its path.
func (e *Exporter) Print(ctx context.Context, bgRef string, scene state.Scene, opts PDFOptions) (string, error) {
	data, err := e.PDF(ctx, bgRef, scene, opts)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp("", "tacticalboard-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create print file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write print file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close print file: %w", err)
	}
	return f.Name(), nil
}

// FileName derives an export file name from the map name.
func FileName(mapName, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, mapName)
	if name == "" {
		name = "board"
	}
	return name + ext
}
