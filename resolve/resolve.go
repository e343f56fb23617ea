// Package resolve turns page and stream references into locators the backend can open.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playengine/playengine/internal/cache"
	"github.com/playengine/playengine/key"
	"github.com/playengine/playengine/log"
	"github.com/playengine/playengine/mrl"
	"github.com/playengine/playengine/network"
	"github.com/playengine/playengine/where"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	// ErrUnsupported means no resolver accepts the locator.
	ErrUnsupported = errors.New("no resolver supports this locator")
	// ErrNotMedia means the resource exists but is not playable as is.
	ErrNotMedia = errors.New("not a media resource")
)

// Resolver is one strategy for resolving locators.
type Resolver interface {
	Name() string
	Supports(loc mrl.Locator) bool
	Resolve(ctx context.Context, loc mrl.Locator) (mrl.Locator, error)
}

// ResolutionError is a failure of one resolver.
type ResolutionError struct {
	Resolver string
	Locator  string
	Err      error
}

func (e *ResolutionError) Error() string {
	if e.Resolver == "" {
		return fmt.Sprintf("resolve %s: %v", e.Locator, e.Err)
	}
	return fmt.Sprintf("resolve %s with %s: %v", e.Locator, e.Resolver, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func fail(r Resolver, loc mrl.Locator, err error) error {
	var re *ResolutionError
	if errors.As(err, &re) {
		return err
	}
	return &ResolutionError{Resolver: r.Name(), Locator: loc.String(), Err: err}
}

// entry is a cached resolution.
type entry struct {
	URL     string            `json:"url"`
	Title   string            `json:"title,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (e entry) locator() (mrl.Locator, error) {
	loc, err := mrl.Parse(e.URL)
	if err != nil {
		return mrl.Locator{}, err
	}
	return loc.WithName(e.Title).WithHeaders(e.Headers), nil
}

// Chain asks each supporting resolver in turn; the first success wins and is cached.
type Chain struct {
	resolvers []Resolver
	cache     *cache.Store
	logger    *logrus.Entry
}

// NewChain builds a chain. A nil store disables caching.
func NewChain(store *cache.Store, resolvers ...Resolver) *Chain {
	return &Chain{
		resolvers: resolvers,
		cache:     store,
		logger:    log.With("resolve"),
	}
}

// FromConfig builds the default chain: direct locators, user Lua scripts, an HTTP probe and yt-dlp.
func FromConfig() *Chain {
	resolvers := []Resolver{Direct{}}

	if viper.GetBool(key.ResolverLua) {
		resolvers = append(resolvers, NewLua(where.Resolvers()))
	}
	if viper.GetBool(key.ResolverProbe) {
		resolvers = append(resolvers, &Probe{Client: network.Client})
	}
	if path := viper.GetString(key.ResolverYtDlpPath); path != "" {
		resolvers = append(resolvers, NewYtDlp(path))
	}

	var store *cache.Store
	if ttl := cacheTTL(); ttl > 0 {
		store = cache.New(cacheName, ttl)
	}

	return NewChain(store, resolvers...)
}

const cacheName = "resolved"

func cacheTTL() time.Duration {
	return time.Duration(viper.GetInt(key.ResolverCacheTTL)) * time.Minute
}

// CollectGarbage removes expired resolutions and returns how many were removed.
func CollectGarbage() int {
	ttl := cacheTTL()
	if ttl <= 0 {
		return 0
	}
	return cache.New(cacheName, ttl).CollectGarbage()
}

// Resolvers lists the chain in order.
func (c *Chain) Resolvers() []Resolver {
	return c.resolvers
}

// Supports reports whether any resolver accepts the locator.
func (c *Chain) Supports(loc mrl.Locator) bool {
	return lo.SomeBy(c.resolvers, func(r Resolver) bool { return r.Supports(loc) })
}

func (c *Chain) Resolve(ctx context.Context, loc mrl.Locator) (mrl.Locator, error) {
	if loc.IsZero() {
		return mrl.Locator{}, mrl.ErrEmpty
	}

	cacheKey := cache.Key(loc.Key())
	if c.cache != nil {
		var cached entry
		if c.cache.Read(cacheKey, &cached) {
			if out, err := cached.locator(); err == nil {
				c.logger.WithField("locator", loc.String()).Debug("resolved from cache")
				return out, nil
			}
			c.cache.Delete(cacheKey)
		}
	}

	var errs []error
	for _, r := range c.resolvers {
		if !r.Supports(loc) {
			continue
		}

		out, err := r.Resolve(ctx, loc)
		if err == nil {
			c.logger.WithFields(logrus.Fields{"locator": loc.String(), "resolver": r.Name()}).Info("resolved")
			c.remember(cacheKey, loc, out)
			return out, nil
		}

		if ctx.Err() != nil {
			return mrl.Locator{}, ctx.Err()
		}

		c.logger.WithError(err).WithField("resolver", r.Name()).Debug("resolver failed")
		errs = append(errs, fail(r, loc, err))
	}

	switch len(errs) {
	case 0:
		return mrl.Locator{}, &ResolutionError{Locator: loc.String(), Err: ErrUnsupported}
	case 1:
		return mrl.Locator{}, errs[0]
	default:
		return mrl.Locator{}, errors.Join(errs...)
	}
}

func (c *Chain) remember(key string, in, out mrl.Locator) {
	if c.cache == nil || (out.Equal(in) && out.Label() == "" && len(out.Headers()) == 0) {
		return
	}

	err := c.cache.Write(key, entry{URL: out.String(), Title: out.Label(), Headers: out.Headers()})
	if err != nil {
		c.logger.WithError(err).Warn("cache write failed")
	}
}

// Close releases resolvers holding resources.
func (c *Chain) Close() {
	for _, r := range c.resolvers {
		if closer, ok := r.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

// Direct accepts local files, discs and media URLs as they are.
type Direct struct{}

func (Direct) Name() string { return "direct" }

func (Direct) Supports(loc mrl.Locator) bool { return loc.IsDirect() }

func (Direct) Resolve(_ context.Context, loc mrl.Locator) (mrl.Locator, error) {
	return loc, nil
}
