package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// Locator is a parsed resource address split into authority and target.
type Locator struct {
	Raw    string
	Scheme string
	User   *url.Userinfo
	Host   string
	Target string // path plus query, always starting with "/"
}

// ParseLocator accepts "scheme://host/path?query" as well as a bare
// "host/path", which is treated as http.
func ParseLocator(raw string) (*Locator, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty locator", ErrInvalidLocator)
	}
	if strings.ContainsAny(raw, " \t\r\n") {
		return nil, fmt.Errorf("%w: %q contains whitespace", ErrInvalidLocator, raw)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	// file:// locators legitimately have no host
	if parsed.Host == "" && scheme != "file" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidLocator, raw)
	}
	target := parsed.EscapedPath()
	if target == "" {
		target = "/"
	}
	if parsed.RawQuery != "" {
		target += "?" + parsed.RawQuery
	}
	return &Locator{
		Raw:    raw,
		Scheme: scheme,
		User:   parsed.User,
		Host:   parsed.Host,
		Target: target,
	}, nil
}

// URL rebuilds the address including any user:password@ credentials.
func (l *Locator) URL() string {
	authority := l.Host
	if l.User != nil {
		authority = l.User.String() + "@" + authority
	}
	return l.Scheme + "://" + authority + l.Target
}

// Name is the last path segment, used when an output path has to be inferred.
func (l *Locator) Name() string {
	path := l.Target
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	name, err := url.PathUnescape(parts[len(parts)-1])
	if err != nil || name == "" {
		return "download"
	}
	return name
}
