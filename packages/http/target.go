package http

import (
	"fmt"
	"net"
	neturl "net/url"
	"strings"
)

// Target identifies where a request is sent. Path carries the request URI,
// including any query string.
type Target struct {
	Hostname string
	Port     string
	Path     string
	Scheme   string
	Secure   bool
}

// ParseTarget decomposes a URL string into a Target.
func ParseTarget(rawURL string) (Target, error) {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return Target{}, fmt.Errorf("invalid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}
	if u.Hostname() == "" {
		return Target{}, fmt.Errorf("URL must have a host")
	}

	return Target{
		Hostname: u.Hostname(),
		Port:     u.Port(),
		Path:     u.RequestURI(),
		Scheme:   u.Scheme,
	}, nil
}

// IsSecure reports whether the target must be reached over TLS.
func (t Target) IsSecure() bool {
	return t.Secure || strings.EqualFold(t.Scheme, "https")
}

// URL renders the absolute URL for the target.
func (t Target) URL() string {
	scheme := "http"
	if t.IsSecure() {
		scheme = "https"
	}

	host := t.Hostname
	if t.Port != "" {
		host = net.JoinHostPort(t.Hostname, t.Port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	path := t.Path
	if path == "" {
		path = "/"
	} else if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return scheme + "://" + host + path
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	_, err := ParseTarget(rawURL)
	return err
}
