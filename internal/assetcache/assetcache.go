// Package assetcache serves the app shell from a versioned in-process cache.
//
// A generation is a named set of assets. Install fills the current
// generation from the origin filesystem, Activate drops every other
// generation, and Handler answers from the cache before falling back to
// the origin.
package assetcache

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"explog/internal/cache"
	applog "explog/internal/log"
)

// DefaultAssets is the fixed list preloaded on Install.
var DefaultAssets = []string{
	"app.js",
	"style.css",
	"manifest.json",
	"icon.svg",
}

type Asset struct {
	Body        []byte
	ContentType string
	ModTime     time.Time
}

type Cache struct {
	version string
	origin  fs.FS
	logger  *applog.Logger

	mu          sync.Mutex
	generations map[string]*cache.LRUCache[Asset]
}

func New(version string, origin fs.FS, logger *applog.Logger) *Cache {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Cache{
		version:     version,
		origin:      origin,
		logger:      logger.WithComponent(applog.ComponentAssets),
		generations: make(map[string]*cache.LRUCache[Asset]),
	}
}

// Version is the current generation name.
func (c *Cache) Version() string {
	return c.version
}

// Open returns the named generation, creating it if needed.
func (c *Cache) Open(name string) *cache.LRUCache[Asset] {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.generations[name]
	if !ok {
		g = cache.NewLRUCache[Asset](0, 0)
		c.generations[name] = g
	}
	return g
}

// Generations lists the generation names currently held.
func (c *Cache) Generations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.generations))
	for name := range c.generations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install loads paths into the current generation. It fails on the first
// asset that cannot be read, leaving the generation partially filled.
func (c *Cache) Install(ctx context.Context, paths []string) error {
	g := c.Open(c.version)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		asset, err := c.load(p)
		if err != nil {
			return fmt.Errorf("install %s: %w", p, err)
		}
		g.Set(p, asset)
	}
	c.logger.InfoContext(ctx, "Assets installed",
		"version", c.version,
		applog.FieldCount, len(paths))
	return nil
}

// Activate deletes every generation except the current one and returns the
// names it removed.
func (c *Cache) Activate(ctx context.Context) []string {
	c.mu.Lock()
	var removed []string
	for name, g := range c.generations {
		if name == c.version {
			continue
		}
		g.Clear()
		delete(c.generations, name)
		removed = append(removed, name)
	}
	c.mu.Unlock()

	sort.Strings(removed)
	if len(removed) > 0 {
		c.logger.InfoContext(ctx, "Old asset generations removed",
			"version", c.version,
			"removed", strings.Join(removed, ","))
	}
	return removed
}

// Lookup returns the cached asset for p in the current generation.
func (c *Cache) Lookup(p string) (Asset, bool) {
	c.mu.Lock()
	g, ok := c.generations[c.version]
	c.mu.Unlock()
	if !ok {
		return Asset{}, false
	}
	return g.Get(p)
}

// Handler serves requests cache-first. Paths are relative to the mount
// point, so callers strip any prefix first.
func (c *Cache) Handler() http.Handler {
	fallback := http.FileServer(http.FS(c.origin))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			fallback.ServeHTTP(w, r)
			return
		}
		p := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if asset, ok := c.Lookup(p); ok {
			w.Header().Set("Content-Type", asset.ContentType)
			w.Header().Set("X-Asset-Cache", c.version)
			w.Header().Set("Cache-Control", "no-cache")
			http.ServeContent(w, r, p, asset.ModTime, bytes.NewReader(asset.Body))
			return
		}
		c.logger.DebugContext(r.Context(), "Asset cache miss", applog.FieldPath, p)
		fallback.ServeHTTP(w, r)
	})
}

func (c *Cache) load(p string) (Asset, error) {
	body, err := fs.ReadFile(c.origin, p)
	if err != nil {
		return Asset{}, err
	}
	var mod time.Time
	if info, err := fs.Stat(c.origin, p); err == nil {
		mod = info.ModTime()
	}
	ct := mime.TypeByExtension(path.Ext(p))
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return Asset{Body: body, ContentType: ct, ModTime: mod}, nil
}
