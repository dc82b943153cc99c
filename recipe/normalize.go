package recipe

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeDomain reduces a raw URL or bare domain to the normalized form
// used as the recipe key: lowercase host, no scheme, no "www." prefix,
// no port, no path. Normalization is idempotent.
//
//	NormalizeDomain("HTTPS://WWW.Foo.COM:443/x") == "foo.com"
func NormalizeDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDomain)
	}
	if strings.ContainsAny(raw, " \t\n") {
		return "", fmt.Errorf("%w: contains whitespace", ErrInvalidDomain)
	}

	// url.Parse needs a scheme marker to populate Host.
	candidate := raw
	if !strings.Contains(candidate, "//") {
		candidate = "//" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidDomain, raw)
	}

	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimSuffix(host, ".")
	if host == "" || !strings.Contains(host, ".") {
		return "", fmt.Errorf("%w: %q is not a domain", ErrInvalidDomain, raw)
	}

	return host, nil
}
