package raster

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DefaultLoadTimeout bounds how long a source image may take to arrive.
const DefaultLoadTimeout = 15 * time.Second

// defaultMaxSourceBytes caps remote downloads.
const defaultMaxSourceBytes = 32 << 20

// ipfsGateway is the public gateway ipfs:// references are rewritten to.
const ipfsGateway = "https://ipfs.io/ipfs/"

// SourceCache provides thread-safe caching of decoded images read from disk.
//
// Base images for the coloring studio are loaded repeatedly (every character
// switch and every clear), so decoded images are kept keyed by their path
// until evicted.
type SourceCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewSourceCache creates an empty cache.
func NewSourceCache() *SourceCache {
	return &SourceCache{
		images: make(map[string]image.Image),
	}
}

// Load returns the cached image for path or decodes it from disk.
func (c *SourceCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Evict removes a single path from the cache.
func (c *SourceCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Clear removes every cached image.
func (c *SourceCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *SourceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Loader fetches source images from disk or over HTTP.
//
// A reference is one of:
//   - a filesystem path (decoded once and cached)
//   - an http:// or https:// URL
//   - an ipfs://CID/path URI, fetched through the public ipfs.io gateway
//
// Every failure, including a timeout, is reported wrapping ErrSourceLoad.
type Loader struct {
	cache    *SourceCache
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTimeout overrides DefaultLoadTimeout.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithHTTPClient sets the client used for remote sources.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithoutCache decodes file sources on every load.
func WithoutCache() LoaderOption {
	return func(l *Loader) { l.cache = nil }
}

// NewLoader creates a Loader with its own cache and the default timeout.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		cache:    NewSourceCache(),
		client:   http.DefaultClient,
		timeout:  DefaultLoadTimeout,
		maxBytes: defaultMaxSourceBytes,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Cache returns the loader's file cache, or nil when caching is off.
func (l *Loader) Cache() *SourceCache { return l.cache }

// ResolveRef rewrites ipfs:// references to the HTTP gateway and leaves
// everything else untouched.
func ResolveRef(ref string) string {
	if strings.HasPrefix(ref, "ipfs://") {
		return ipfsGateway + strings.TrimPrefix(ref, "ipfs://")
	}
	return ref
}

// Load resolves ref and decodes the image it points to.
//
// Parameters:
//   - ctx: Bounds the load together with the loader timeout. Cancelling it
//     aborts an HTTP fetch in flight.
//   - ref: A file path, an http(s) URL or an ipfs://CID/path URI. Supported
//     formats are PNG, JPEG, GIF, BMP and WebP.
//
// Returns:
//   - image.Image: The decoded image, never empty. File sources come from the
//     cache when it holds the exact path string.
//   - error: Non-nil when the image could not be produced.
//
// Remote bodies are read up to a fixed size cap; a larger body fails to
// decode rather than being buffered whole.
//
// # Errors
//
// Every error wraps ErrSourceLoad:
//   - empty reference
//   - missing or unreadable file
//   - non-200 HTTP status or transport failure
//   - timeout or cancelled ctx
//   - undecodable data or a zero-sized image
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("empty source reference: %w", ErrSourceLoad)
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ref = ResolveRef(ref)
	var (
		img image.Image
		err error
	)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		img, err = l.fetch(ctx, ref)
	} else if l.cache != nil {
		img, err = l.cache.Load(ref)
	} else {
		img, err = decodeFile(ref)
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceLoad, ref, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s: empty image", ErrSourceLoad, ref)
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, l.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Fit scales img to exactly width x height with a linear filter, the way a
// browser canvas draws an image into a fixed rectangle.
func Fit(img image.Image, width, height int) *image.NRGBA {
	if b := img.Bounds(); b.Dx() == width && b.Dy() == height {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, width, height, imaging.Linear)
}
