package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/netip"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	DBUrl         string
	TokenSecret   string
	TokenTTL      time.Duration
	AdminUser     string
	AdminPassword string
	SubmitRate    int
	SubmitBurst   int
	// TrustedProxies may set the client address through forwarding headers.
	TrustedProxies []netip.Prefix
	SecureCookies  bool
	Debug          bool
}

// ParseFlags reads args, using SURVEY_* environment variables (optionally
// loaded from a .env file) as defaults.
func ParseFlags(args []string) (cfg Config, err error) {
	err = godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return
	}
	err = nil

	flags := flag.NewFlagSet("survey-app", flag.ContinueOnError)

	var host string
	flags.StringVar(&host, "host", env("SURVEY_HOST", "0.0.0.0"), "listen host name")
	var port uint
	flags.UintVar(&port, "port", envUint("SURVEY_PORT", 80), "listen port number")
	flags.StringVar(&cfg.DBUrl, "db-url", env("SURVEY_DB_URL", "survey.sqlite"), "path to SQLite3 DB file")
	flags.StringVar(&cfg.TokenSecret, "token-secret", env("SURVEY_TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	var ttl uint
	flags.UintVar(&ttl, "token-ttl", envUint("SURVEY_TOKEN_TTL", 120), "token TTL in seconds")
	flags.StringVar(&cfg.AdminUser, "admin-user", env("SURVEY_ADMIN_USER", ""), "admin account to create at startup")
	flags.StringVar(&cfg.AdminPassword, "admin-password", env("SURVEY_ADMIN_PASSWORD", ""), "password of the startup admin account")
	var rate, burst uint
	flags.UintVar(&rate, "submit-rate", envUint("SURVEY_SUBMIT_RATE", 60), "answer submissions per minute per client")
	flags.UintVar(&burst, "submit-burst", envUint("SURVEY_SUBMIT_BURST", 10), "answer submission burst per client")
	var proxies string
	flags.StringVar(&proxies, "trusted-proxies", env("SURVEY_TRUSTED_PROXIES", ""), "comma-separated proxy IPs or CIDRs allowed to set X-Forwarded-For")
	flags.BoolVar(&cfg.SecureCookies, "secure-cookies", os.Getenv("SURVEY_SECURE_COOKIES") == "true", "mark response cookies as Secure")
	flags.BoolVar(&cfg.Debug, "debug", os.Getenv("SURVEY_DEBUG") == "true", "log at DEBUG level")

	err = flags.Parse(args)
	if err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.SubmitRate = int(rate)
	cfg.SubmitBurst = int(burst)

	cfg.TrustedProxies, err = parseProxies(proxies)
	if err != nil {
		return
	}

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.AdminUser != "" && cfg.AdminPassword == "":
		err = errors.New("missing parameter -admin-password")
	}

	return
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint) uint {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.ParseUint(v, 10, 0)
		if err == nil {
			return uint(n)
		}
	}
	return fallback
}

func parseProxies(s string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if !strings.Contains(field, "/") {
			addr, err := netip.ParseAddr(field)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", field, err)
			}
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(field)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", field, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
