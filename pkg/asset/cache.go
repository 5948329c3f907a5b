// Package asset loads overlay images by location and memoizes them.
//
// Entries are keyed by location, independent of the filter that referenced
// them, and are never evicted; only Clear empties the cache.
package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	// Formats beyond what imaging registers.
	_ "golang.org/x/image/webp"

	"github.com/teslashibe/go-facefilter/internal/httpc"
	"github.com/teslashibe/go-facefilter/internal/log"
)

// DefaultConcurrency bounds parallel loads in LoadAll.
const DefaultConcurrency = 4

// Cache memoizes decoded overlay images.
type Cache struct {
	mu     sync.RWMutex
	images map[string]image.Image

	group       singleflight.Group
	client      *http.Client
	concurrency int
	logger      *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient sets the client used for http(s) locations.
func WithHTTPClient(c *http.Client) Option {
	return func(cache *Cache) {
		cache.client = c
	}
}

// WithConcurrency bounds parallel loads in LoadAll.
func WithConcurrency(n int) Option {
	return func(cache *Cache) {
		if n > 0 {
			cache.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cache *Cache) {
		if l != nil {
			cache.logger = l
		}
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		images:      make(map[string]image.Image),
		client:      httpc.Client,
		concurrency: DefaultConcurrency,
		logger:      log.Component("assets"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Image returns a cached image without loading.
func (c *Cache) Image(src string) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[src]
	return img, ok
}

// Has reports whether src is cached.
func (c *Cache) Has(src string) bool {
	_, ok := c.Image(src)
	return ok
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear drops every cached image.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = make(map[string]image.Image)
}

// Load returns the image at src, loading and caching it on first use.
// Concurrent loads of the same location share one fetch. Failures are not
// cached.
func (c *Cache) Load(ctx context.Context, src string) (image.Image, error) {
	if img, ok := c.Image(src); ok {
		return img, nil
	}

	v, err, _ := c.group.Do(src, func() (interface{}, error) {
		if img, ok := c.Image(src); ok {
			return img, nil
		}
		img, err := c.fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.images[src] = img
		c.mu.Unlock()
		return img, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", redact(src), err)
	}
	return v.(image.Image), nil
}

// LoadAll loads every uncached location, best effort. It returns the
// failures keyed by location; successfully loaded images are cached.
func (c *Cache) LoadAll(ctx context.Context, srcs []string) map[string]error {
	var (
		mu       sync.Mutex
		failures = make(map[string]error)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, src := range srcs {
		if c.Has(src) {
			continue
		}
		src := src
		g.Go(func() error {
			if _, err := c.Load(gctx, src); err != nil {
				c.logger.Warn("overlay asset failed to load", "src", redact(src), "error", err)
				mu.Lock()
				failures[src] = err
				mu.Unlock()
			}
			// Per-asset failures never cancel siblings.
			return nil
		})
	}
	_ = g.Wait()

	return failures
}

func (c *Cache) fetch(ctx context.Context, src string) (image.Image, error) {
	switch {
	case strings.HasPrefix(src, builtinScheme):
		return Builtin(strings.TrimPrefix(src, builtinScheme))

	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		body, err := httpc.Fetch(ctx, c.client, src)
		if err != nil {
			return nil, err
		}
		return decode(body)

	case strings.HasPrefix(src, "data:"):
		body, err := decodeDataURI(src)
		if err != nil {
			return nil, err
		}
		return decode(body)

	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedLocation, err)
		}
		return imaging.Open(u.Path, imaging.AutoOrientation(true))

	case strings.Contains(src, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocation, src)

	default:
		return imaging.Open(src, imaging.AutoOrientation(true))
	}
}

func decode(body []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(body), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// decodeDataURI handles base64 data URIs of the form data:<mime>;base64,<payload>.
func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: only base64 data URIs are supported", ErrUnsupportedLocation)
	}
	body, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URI: %w", err)
	}
	return body, nil
}

// redact shortens data URIs for logs and errors.
func redact(src string) string {
	if strings.HasPrefix(src, "data:") && len(src) > 32 {
		return src[:32] + "..."
	}
	return src
}
