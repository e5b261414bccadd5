package auth

import (
	"net/url"
	"strings"
)

// SignInPath is the canonical sign-in route. Redirect targets under this
// prefix are passed through untouched.
const SignInPath = "/auth/signin"

// ResolveRedirect computes the post-auth destination from an untrusted
// callback URL and the trusted base URL. It is an allow-list: anything not
// explicitly recognized as safe collapses to the home redirect, so a
// malformed or cross-origin callbackUrl can never produce an open redirect.
func ResolveRedirect(rawURL, baseURL string) string {
	home := baseURL + "/"

	if rawURL == SignInPath || strings.HasPrefix(rawURL, SignInPath) {
		return rawURL
	}

	if rawURL == baseURL {
		return home
	}

	if strings.HasPrefix(rawURL, "/") {
		return baseURL + rawURL
	}

	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() || target.Host == "" {
		return home
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return home
	}

	if sameOrigin(target, base) {
		return rawURL
	}

	return home
}

func sameOrigin(a, b *url.URL) bool {
	return a.Scheme == b.Scheme && a.Host == b.Host
}
