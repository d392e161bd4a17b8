package internal

import (
	"collab-gateway/domain"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/samber/lo"
)

type QuotaBackend string

const (
	// QuotaBackendAuto uses the coordination store when it answers at boot,
	// the session store otherwise.
	QuotaBackendAuto  QuotaBackend = "auto"
	QuotaBackendRedis QuotaBackend = "redis"
	QuotaBackendStore QuotaBackend = "store"
)

type Config struct {
	Host           string `env:"HOST,default=0.0.0.0"`
	Port           int    `env:"PORT,default=8080"`
	AdminPort      int    `env:"ADMIN_PORT,default=9090"`
	AdminGRPCPort  int    `env:"ADMIN_GRPC_PORT,default=9091"`
	DebugPort      int    `env:"DEBUG_PORT,default=8081"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	// An empty RedisAddr runs a single process without coordination store.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	JWTSecret string `env:"JWT_SECRET,required=true"`
	JWTIssuer string `env:"JWT_ISSUER,default=collab-gateway"`

	HandshakeTimeout     time.Duration `env:"HANDSHAKE_TIMEOUT,default=5s"`
	IdleTimeout          time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=25s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=5s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	FabricBufferSize     int           `env:"FABRIC_BUFFER_SIZE,default=4096"`

	QuotaBackend       string        `env:"QUOTA_BACKEND,default=auto"`
	QuotaTimeout       time.Duration `env:"QUOTA_TIMEOUT,default=200ms"`
	QuotaSweepInterval time.Duration `env:"QUOTA_SWEEP_INTERVAL,default=1m"`
	ChatLimit          int           `env:"CHAT_LIMIT,default=30"`
	ChatWindow         time.Duration `env:"CHAT_WINDOW,default=1m"`
	ReactionLimit      int           `env:"REACTION_LIMIT,default=60"`
	ReactionWindow     time.Duration `env:"REACTION_WINDOW,default=1m"`
	CursorLimit        int           `env:"CURSOR_LIMIT,default=600"`
	CursorWindow       time.Duration `env:"CURSOR_WINDOW,default=1m"`
	HTTPLimit          int           `env:"HTTP_LIMIT,default=120"`
	HTTPWindow         time.Duration `env:"HTTP_WINDOW,default=1m"`

	MaxContentLength   int    `env:"MAX_CONTENT_LENGTH,default=4000"`
	MaxMalformedEvents int    `env:"MAX_MALFORMED_EVENTS,default=5"`
	CensoredWords      string `env:"CENSORED_WORDS"`
	CharReplacement    string `env:"CHARACTER_REPLACEMENT,default=*"`

	// A positive PRINCIPAL_CACHE_TTL skips the principal store on cache hits:
	// a principal deleted meanwhile is still accepted until its entry expires.
	PrincipalCacheSize int           `env:"PRINCIPAL_CACHE_SIZE,default=4096"`
	PrincipalCacheTTL  time.Duration `env:"PRINCIPAL_CACHE_TTL,default=0s"`
	RestartInterval    time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval     time.Duration `env:"METRIC_INTERVAL,default=15s"`
	HistoryLimit       int           `env:"HISTORY_LIMIT,default=50"`

	// Comma separated addresses or CIDRs of the load balancers in front of
	// the gateway. Only their X-Forwarded-For and X-Real-IP are believed.
	TrustedProxies string `env:"TRUSTED_PROXIES"`
}

// Validate checks what the env tags cannot express.
func (c Config) Validate() error {
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	if _, err := c.Backend(); err != nil {
		return err
	}
	if c.ConnectionBufferSize <= 0 || c.FabricBufferSize <= 0 {
		return fmt.Errorf("CONNECTION_BUFFER_SIZE and FABRIC_BUFFER_SIZE must be positive")
	}
	if c.PingInterval >= c.IdleTimeout {
		return fmt.Errorf("PING_INTERVAL (%s) must be shorter than IDLE_TIMEOUT (%s)", c.PingInterval, c.IdleTimeout)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	// Windows are accounted in milliseconds
	if short, ok := lo.Find(c.Limits(), func(l domain.Limit) bool { return l.Window < time.Millisecond }); ok {
		return fmt.Errorf("%s window must be at least 1ms, got %s", short.Class, short.Window)
	}
	if _, err := c.Proxies(); err != nil {
		return err
	}
	return nil
}

// Proxies parses TRUSTED_PROXIES. A bare address is a single host prefix.
func (c Config) Proxies() ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range splitList(c.TrustedProxies) {
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func (c Config) Backend() (QuotaBackend, error) {
	switch b := QuotaBackend(strings.ToLower(c.QuotaBackend)); b {
	case QuotaBackendAuto, QuotaBackendRedis, QuotaBackendStore:
		return b, nil
	default:
		return "", fmt.Errorf("QUOTA_BACKEND must be one of auto, redis, store, got %q", c.QuotaBackend)
	}
}

// Limits returns the configured limit classes. A class with a limit of
// zero or less is left out, which makes it exempt.
func (c Config) Limits() []domain.Limit {
	limits := []domain.Limit{
		{Class: domain.LimitChat, Max: c.ChatLimit, Window: c.ChatWindow},
		{Class: domain.LimitReaction, Max: c.ReactionLimit, Window: c.ReactionWindow},
		{Class: domain.LimitCursor, Max: c.CursorLimit, Window: c.CursorWindow},
		{Class: domain.LimitHTTP, Max: c.HTTPLimit, Window: c.HTTPWindow},
	}
	return lo.Filter(limits, func(l domain.Limit, _ int) bool {
		return l.Max > 0 && l.Window > 0
	})
}

// Dictionary splits the comma separated CENSORED_WORDS.
func (c Config) Dictionary() []string {
	return splitList(c.CensoredWords)
}

func splitList(value string) []string {
	items := lo.Map(strings.Split(value, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
	return lo.Compact(items)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
