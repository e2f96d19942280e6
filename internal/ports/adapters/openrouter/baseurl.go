package openrouter

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

var defaultAllowedHosts = []string{"openrouter.ai", "api.openrouter.ai"}

// BaseURLError reports why OPENROUTER_BASE_URL was rejected.
type BaseURLError struct {
	URL    string
	Reason string
}

func (e *BaseURLError) Error() string {
	return fmt.Sprintf("invalid OPENROUTER_BASE_URL %q: %s", e.URL, e.Reason)
}

// ValidateBaseURL reports whether baseURL may be used for model requests.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	_, err := Endpoint(baseURL, allowedHosts)
	return err
}

// Endpoint checks baseURL and returns the OpenAI-compatible API root under it.
// Only https is accepted, without userinfo, query or fragment, and the host
// must be one of allowedHosts (openrouter.ai hosts when none are given).
func Endpoint(baseURL string, allowedHosts []string) (string, error) {
	raw := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if raw == "" {
		raw = defaultBaseURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid OPENROUTER_BASE_URL: %w", err)
	}
	reject := func(reason string) (string, error) {
		return "", &BaseURLError{URL: raw, Reason: reason}
	}
	switch {
	case !u.IsAbs() || u.Host == "":
		return reject("absolute URL with host is required")
	case u.User != nil:
		return reject("userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "" || u.ForceQuery:
		return reject("query and fragment are not allowed")
	case u.Hostname() == "":
		return reject("host is required")
	case !strings.EqualFold(u.Scheme, "https"):
		return reject("https is required")
	}

	host := strings.ToLower(u.Hostname())
	if !slices.Contains(allowList(allowedHosts), host) {
		return reject(fmt.Sprintf("host %q is not in OPENROUTER_ALLOWED_HOSTS", host))
	}

	if strings.HasSuffix(u.Path, "/api/v1") {
		return u.String(), nil
	}
	return u.JoinPath("api", "v1").String(), nil
}

// allowList lower-cases the configured hosts and strips schemes, ports and
// slashes. An empty result means the defaults.
func allowList(hosts []string) []string {
	var out []string
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if i := strings.IndexByte(v, ':'); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}
