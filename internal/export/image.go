package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"
)

// ErrImageLoad wraps every failure to fetch or decode a background or logo.
var ErrImageLoad = errors.New("image load failed")

// Loader resolves an image reference to a decoded image.
type Loader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// ImageLoader loads images from http(s) URLs or from files, relative paths
// being resolved against Dir.
type ImageLoader struct {
	Dir    string
	Client *http.Client
}

func (l *ImageLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	data, err := l.fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrImageLoad, ref, err)
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}
	return img, nil
}

func (l *ImageLoader) fetch(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, err
		}
		client := l.Client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := ref
	if l.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(l.Dir, path)
	}
	return os.ReadFile(path)
}

// DecodeImage decodes PNG, JPEG, GIF or WebP data.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageLoad, err)
	}
	return img, nil
}
