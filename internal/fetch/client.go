package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/varoOP/vinime/internal/domain"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultTimeout      = 20 * time.Second
	defaultRetries      = 2
	defaultRetryDelay   = 2 * time.Second
	defaultMaxRedirects = 10
)

// Fetcher downloads page markup
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// Config holds configuration for the page client
type Config struct {
	// Origin is the site origin used for the Referer header and for resolving
	// relative redirect locations.
	Origin       string
	UserAgent    string
	Timeout      time.Duration
	Retries      int
	RetryDelay   time.Duration
	MaxRedirects int
}

// DefaultConfig returns a browser-like profile with two retries two seconds apart.
// BrowserHeaders is the Accept, Accept-Language and Referer profile sent with
// every page request.
func BrowserHeaders(origin string) map[string]string {
	return map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "id-ID,id;q=0.9,en-US;q=0.8,en;q=0.7",
		"Referer":         origin,
	}
}

func DefaultConfig(origin string) Config {
	return Config{
		Origin:       origin,
		UserAgent:    DefaultUserAgent,
		Timeout:      defaultTimeout,
		Retries:      defaultRetries,
		RetryDelay:   defaultRetryDelay,
		MaxRedirects: defaultMaxRedirects,
	}
}

// Client wraps resty.Client with a fixed-delay retry loop and manual redirects
type Client struct {
	log    zerolog.Logger
	resty  *resty.Client
	config Config
}

func NewClient(log zerolog.Logger, config Config) *Client {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.Retries < 0 {
		config.Retries = 0
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}
	if config.MaxRedirects <= 0 {
		config.MaxRedirects = defaultMaxRedirects
	}

	l := log.With().Str("module", "fetch").Logger()

	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	restyClient := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(0).
		SetCookieJar(jar).
		SetLogger(restyLogger{log: l}).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		})).
		SetHeader("User-Agent", config.UserAgent).
		SetHeaders(BrowserHeaders(config.Origin))

	return &Client{
		log:    l,
		resty:  restyClient,
		config: config,
	}
}

// FetchPage returns the body of url. Redirects are followed by hand so that
// relative locations resolve against the site origin.
func (c *Client) FetchPage(ctx context.Context, url string) (string, error) {
	return c.fetch(ctx, url, c.config.Retries, 0)
}

func (c *Client) fetch(ctx context.Context, url string, retries, hops int) (string, error) {
	resp, err := c.resty.R().SetContext(ctx).Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return "", &FetchError{URL: url, Err: ctx.Err()}
		}
		if retries <= 0 {
			return "", &FetchError{URL: url, Err: err}
		}

		c.log.Warn().Err(err).Str("url", url).Int("retries_left", retries).Msg("fetch failed, retrying")
		if err := sleep(ctx, c.config.RetryDelay); err != nil {
			return "", &FetchError{URL: url, Err: err}
		}
		return c.fetch(ctx, url, retries-1, hops)
	}

	status := resp.StatusCode()
	if status >= 300 && status < 400 {
		location := resp.Header().Get("Location")
		if location == "" {
			return "", &FetchError{URL: url, Status: status, Err: fmt.Errorf("redirect without location")}
		}
		if hops >= c.config.MaxRedirects {
			return "", &FetchError{URL: url, Status: status, Err: fmt.Errorf("stopped after %d redirects", hops)}
		}

		next := domain.AbsURL(c.config.Origin, location)
		c.log.Trace().Str("from", url).Str("to", next).Int("status", status).Msg("following redirect")
		return c.fetch(ctx, next, retries, hops+1)
	}

	if status < 200 || status >= 300 {
		return "", &FetchError{URL: url, Status: status}
	}

	c.log.Trace().Str("url", url).Int("bytes", len(resp.Body())).Msg("fetched page")
	return resp.String(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// restyLogger routes resty's own diagnostics into zerolog
type restyLogger struct {
	log zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Trace().Msgf(format, v...)
}
