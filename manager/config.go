package manager

import (
	"github.com/cachekit/cachekit/cache"
	"github.com/cachekit/cachekit/config"
	"github.com/cachekit/cachekit/query"
)

// NewFromConfig builds a Manager with every configured cache and query
// cache registered eagerly. The manager is returned stopped.
func NewFromConfig(cfg *config.Config, opts ...Option) *Manager {
	if cfg.CleanupInterval > 0 {
		opts = append(opts, WithCleanupInterval(cfg.CleanupInterval))
	}
	m := New(opts...)

	for _, cc := range cfg.Caches {
		m.GetCache(cc.Name, cacheOptions(cc)...)
	}
	for _, qcc := range cfg.QueryCaches {
		m.GetQueryCache(qcc.Name, queryOptions(qcc)...)
	}
	return m
}

func cacheOptions(cc config.CacheCfg) []cache.Option {
	var opts []cache.Option
	if cc.Strategy != "" {
		opts = append(opts, cache.WithStrategy(cache.Strategy(cc.Strategy)))
	}
	if cc.MaxSize > 0 {
		opts = append(opts, cache.WithMaxSize(cc.MaxSize))
	}
	if cc.MaxBytes > 0 {
		opts = append(opts, cache.WithMaxBytes(cc.MaxBytes))
	}
	if cc.TTL > 0 {
		opts = append(opts, cache.WithTTL(cc.TTL))
	}
	return opts
}

func queryOptions(qcc config.QueryCacheCfg) []query.Option {
	var opts []query.Option
	if qcc.Strategy != "" {
		opts = append(opts, query.WithStrategy(cache.Strategy(qcc.Strategy)))
	}
	if qcc.MaxSize > 0 {
		opts = append(opts, query.WithMaxSize(qcc.MaxSize))
	}
	if qcc.MaxBytes > 0 {
		opts = append(opts, query.WithMaxBytes(qcc.MaxBytes))
	}
	if qcc.TTL > 0 {
		opts = append(opts, query.WithTTL(qcc.TTL))
	}
	if qcc.StaleTTL > 0 {
		opts = append(opts, query.WithStaleTTL(qcc.StaleTTL))
	}
	if qcc.RefreshRate > 0 {
		opts = append(opts, query.WithRefreshRate(qcc.RefreshRate))
	}
	if qcc.Beta > 0 {
		opts = append(opts, query.WithBetaRefresh(qcc.Beta, qcc.Coefficient))
	}
	return opts
}
