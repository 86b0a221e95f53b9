package server

import (
	"regexp"
	"strings"

	"edgerelay/internal/core"
)

// collapsedSchemeRe matches scheme-collapsed inputs such as
// "https:/example.com/x", which proxies and naive path joins produce.
var collapsedSchemeRe = regexp.MustCompile(`^(https?):/([^/])`)

// NormalizeTarget repairs the varied and malformed inbound URL shapes once,
// at ingress. Everything downstream consumes only the normalized absolute
// URL; no component re-patches URL strings.
func NormalizeTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", core.NewInvalidRequestError("missing target URL", nil)
	}

	switch {
	case collapsedSchemeRe.MatchString(target):
		target = collapsedSchemeRe.ReplaceAllString(target, "$1://$2")
	case strings.HasPrefix(target, "//"):
		target = "https:" + target
	case !strings.Contains(target, "://"):
		target = "https://" + target
	}

	return target, nil
}
