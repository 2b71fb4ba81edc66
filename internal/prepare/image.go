package prepare

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/image/draw"
)

// ImageFetcher downloads article images for offline caching. Fetching
// is best-effort: callers cache the article without its image when a
// download fails.
type ImageFetcher struct {
	client *http.Client
}

func NewImageFetcher() *ImageFetcher {
	r := retryablehttp.NewClient()
	r.RetryMax = 2
	r.Logger = nil
	r.HTTPClient.Timeout = 30 * time.Second
	return &ImageFetcher{client: r.StandardClient()}
}

// Fetch downloads the image at url.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create image request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image %s returned status %d", url, resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read image %s: %w", url, err)
	}
	return buf.Bytes(), nil
}

// Compress downsamples an image so its longer edge does not exceed
// maxEdge pixels, preserving aspect ratio, and re-encodes it as JPEG at
// the given quality factor (0-1). Images already within bounds are
// re-encoded without scaling; nothing is ever upscaled. Output is
// deterministic for identical input bytes and settings.
func Compress(data []byte, maxEdge int, quality float64) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	newWidth, newHeight := width, height
	if width >= height {
		if width > maxEdge {
			newWidth = maxEdge
			newHeight = height * maxEdge / width
		}
	} else {
		if height > maxEdge {
			newHeight = maxEdge
			newWidth = width * maxEdge / height
		}
	}
	if newHeight < 1 {
		newHeight = 1
	}
	if newWidth < 1 {
		newWidth = 1
	}

	resized := img
	if newWidth != width || newHeight != height {
		dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		resized = dst
	}

	var buf bytes.Buffer
	opts := &jpeg.Options{Quality: int(quality * 100)}
	if err := jpeg.Encode(&buf, resized, opts); err != nil {
		return nil, fmt.Errorf("encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
