// Package config loads the settings shared by callspec clients and servers
// from .env files and CALLSPEC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/joho/godotenv"

	"github.com/mnehpets/callspec/callpath"
)

// Environment variables read by Load.
const (
	EnvBaseURL        = "CALLSPEC_BASE_URL"
	EnvBasePath       = "CALLSPEC_BASE_PATH"
	EnvResourcePrefix = "CALLSPEC_RESOURCE_PREFIX"
	EnvHasVersion     = "CALLSPEC_HAS_VERSION"
	EnvTimeout        = "CALLSPEC_TIMEOUT"
	EnvTunnelPut      = "CALLSPEC_TUNNEL_PUT"
	EnvInline         = "CALLSPEC_INLINE"
	EnvMaxConnections = "CALLSPEC_MAX_CONNECTIONS"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxConnections = 10
)

var ErrInvalidConfig = errors.New("invalid callspec configuration")

// Config describes where calls are sent and how they are framed.
type Config struct {
	BaseURL        string        // Scheme and authority of the server, e.g. https://api.example.com.
	BasePath       string        // Path prefix shared by every call, e.g. /api.
	ResourcePrefix string        // Path prefix of REST resources; other paths are RPCs.
	HasVersion     bool          // Call paths carry a version segment after BasePath.
	Timeout        time.Duration // HTTP client timeout.
	TunnelPut      bool          // Send PUT as POST with X-HTTP-Method-Override.
	Inline         bool          // Embed headers and URL parameters in request bodies.
	MaxConnections int           // Maximum connections per host.
}

// ConfigFunc sets a default or validates one field of a Config.
type ConfigFunc func(*Config) error

// Validate applies fns, or the default set when none are given, and returns
// the first error.
func (c *Config) Validate(fns ...ConfigFunc) error {
	if len(fns) == 0 {
		fns = []ConfigFunc{
			WithTimeout(DefaultTimeout),
			WithMaxConnections(DefaultMaxConnections),
			withBaseURL,
			withPaths,
		}
	}
	for _, fn := range fns {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// WithTimeout sets the timeout when none is configured.
func WithTimeout(d time.Duration) ConfigFunc {
	return func(c *Config) error {
		if c.Timeout == 0 {
			c.Timeout = d
		}
		if c.Timeout < 0 {
			return fmt.Errorf("%w: negative timeout %v", ErrInvalidConfig, c.Timeout)
		}
		return nil
	}
}

// WithMaxConnections sets the connection limit when none is configured.
func WithMaxConnections(n int) ConfigFunc {
	return func(c *Config) error {
		if c.MaxConnections == 0 {
			c.MaxConnections = n
		}
		if c.MaxConnections < 0 {
			return fmt.Errorf("%w: negative max connections %d", ErrInvalidConfig, c.MaxConnections)
		}
		return nil
	}
}

func withBaseURL(c *Config) error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL cannot be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base URL: %v", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base URL %q must be an absolute http(s) URL", ErrInvalidConfig, c.BaseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%w: base URL %q cannot carry a query or fragment", ErrInvalidConfig, c.BaseURL)
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	return nil
}

func withPaths(c *Config) error {
	for name, p := range map[string]*string{"base path": &c.BasePath, "resource prefix": &c.ResourcePrefix} {
		if *p == "" {
			continue
		}
		if !strings.HasPrefix(*p, "/") {
			return fmt.Errorf("%w: %s %q must start with /", ErrInvalidConfig, name, *p)
		}
		*p = strings.TrimSuffix(*p, "/")
	}
	return nil
}

// Load reads files in order, then the process environment, and validates
// the result. Missing files are skipped. A variable set in the environment
// wins over the files, and an earlier file wins over a later one.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	fromFiles := make(map[string]string)
	for _, f := range files {
		m, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		for k, v := range m {
			if _, ok := fromFiles[k]; !ok {
				fromFiles[k] = v
			}
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fromFiles[key]
		return v, ok
	}

	c, err := parse(lookup)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func parse(lookup func(string) (string, bool)) (*Config, error) {
	c := &Config{}
	var err error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && err == nil {
			if *dst, err = strconv.ParseBool(strings.TrimSpace(v)); err != nil {
				err = fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
			}
		}
	}

	str(EnvBaseURL, &c.BaseURL)
	str(EnvBasePath, &c.BasePath)
	str(EnvResourcePrefix, &c.ResourcePrefix)
	boolean(EnvHasVersion, &c.HasVersion)
	boolean(EnvTunnelPut, &c.TunnelPut)
	boolean(EnvInline, &c.Inline)
	if v, ok := lookup(EnvTimeout); ok && err == nil {
		if c.Timeout, err = time.ParseDuration(strings.TrimSpace(v)); err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvTimeout, err)
		}
	}
	if v, ok := lookup(EnvMaxConnections); ok && err == nil {
		if c.MaxConnections, err = strconv.Atoi(strings.TrimSpace(v)); err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvMaxConnections, err)
		}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Parser returns a call path parser for the named service under BasePath.
func (c *Config) Parser(serviceName string) *callpath.Parser {
	return callpath.NewParser(c.BasePath, c.HasVersion, serviceName)
}

// CallPath returns the path of a service under BasePath. version is ignored
// unless HasVersion is set.
func (c *Config) CallPath(version float64, servicePath string) callpath.CallPath {
	if !c.HasVersion {
		version = callpath.NoVersion
	}
	return callpath.New(c.BasePath, version, servicePath, "")
}

// HTTPClient returns a pooled HTTP client honouring Timeout and
// MaxConnections. It shares no state with http.DefaultClient.
func (c *Config) HTTPClient() *http.Client {
	t := cleanhttp.DefaultPooledTransport()
	t.MaxConnsPerHost = c.MaxConnections
	t.MaxIdleConnsPerHost = c.MaxConnections
	return &http.Client{Transport: t, Timeout: c.Timeout}
}
