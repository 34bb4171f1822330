// Package reputation decides whether a source IP may attempt a shop-owner
// login. Reserved and bogon ranges are rejected locally; other addresses
// are checked against an optional lookup API whose verdicts are cached.
package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	"freshcart/internal/config"
	"freshcart/internal/metrics"

	"go.uber.org/zap"
)

type Checker interface {
	// IsSafe reports whether ip is trustworthy. Any error means the caller
	// must treat the address as unsafe.
	IsSafe(ctx context.Context, ip string) (bool, error)
}

// VerdictCache is the part of cache.CacheService the checker uses.
type VerdictCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type checker struct {
	url          string
	token        string
	verdictTTL   time.Duration
	allowPrivate bool
	client       *http.Client
	cache        VerdictCache
	logger       *zap.Logger
}

func NewChecker(cfg config.SecurityConfig, cache VerdictCache, logger *zap.Logger) Checker {
	return &checker{
		url:          cfg.IPCheckURL,
		token:        cfg.IPCheckToken,
		verdictTTL:   cfg.IPVerdictTTL,
		allowPrivate: cfg.AllowPrivateIPs,
		client:       &http.Client{Timeout: cfg.IPCheckTimeout},
		cache:        cache,
		logger:       logger,
	}
}

var bogons = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("2001:db8::/32"),
	netip.MustParsePrefix("100::/64"),
}

// isBogon reports addresses that can never be a legitimate public source.
func isBogon(addr netip.Addr) bool {
	if addr.IsUnspecified() || addr.IsMulticast() {
		return true
	}
	for _, p := range bogons {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func isInternal(addr netip.Addr) bool {
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast()
}

type verdict struct {
	Bogon bool `json:"bogon"`
}

func (c *checker) IsSafe(ctx context.Context, ip string) (bool, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false, fmt.Errorf("invalid source ip %q: %w", ip, err)
	}
	addr = addr.Unmap()

	if isInternal(addr) {
		return c.allowPrivate, nil
	}
	if isBogon(addr) {
		return false, nil
	}
	if c.url == "" {
		return true, nil
	}

	key := "ip:verdict:" + addr.String()
	var cached verdict
	if found, err := c.cache.Get(ctx, key, &cached); err != nil {
		c.logger.Warn("ip verdict cache read failed", zap.Error(err))
	} else if found {
		return !cached.Bogon, nil
	}

	v, err := c.lookup(ctx, addr)
	if err != nil {
		return false, err
	}
	if err := c.cache.SetWithTTL(ctx, key, v, c.verdictTTL); err != nil {
		c.logger.Warn("ip verdict cache write failed", zap.Error(err))
	}
	return !v.Bogon, nil
}

func (c *checker) lookup(ctx context.Context, addr netip.Addr) (verdict, error) {
	start := time.Now()
	defer func() { metrics.IPCheckDurationSeconds.Observe(time.Since(start).Seconds()) }()

	u, err := url.Parse(c.url)
	if err != nil {
		return verdict{}, fmt.Errorf("invalid ip check url: %w", err)
	}
	q := u.Query()
	q.Set("ip", addr.String())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return verdict{}, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return verdict{}, fmt.Errorf("ip check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return verdict{}, fmt.Errorf("ip check returned status %d", resp.StatusCode)
	}

	var v verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return verdict{}, fmt.Errorf("decode ip check response: %w", err)
	}
	return v, nil
}
