// Package classify provides the classification request model, its cache
// fingerprint, the classification service client, and the segment cache.
package classify

import "strings"

// Device is the coarse-grained device snapshot derived from a raw user-agent
// string. Only these derived fields participate in cache identity; the raw
// string itself is volatile (version numbers, build ids) and is discarded.
type Device struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Class   string `json:"class"`
}

// Device classes.
const (
	ClassDesktop = "desktop"
	ClassMobile  = "mobile"
	ClassTablet  = "tablet"
)

// DeriveDevice classifies a raw user-agent string into coarse families.
// Unknown agents map to "other"/"other"/"desktop" rather than failing.
func DeriveDevice(userAgent string) Device {
	ua := strings.ToLower(userAgent)

	d := Device{
		Browser: deriveBrowser(ua),
		OS:      deriveOS(ua),
		Class:   ClassDesktop,
	}

	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		d.Class = ClassTablet
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone"),
		strings.Contains(ua, "android") && !strings.Contains(ua, "tablet"):
		d.Class = ClassMobile
	}

	return d
}

func deriveBrowser(ua string) string {
	// Order matters: Edge and Opera embed "chrome", Chrome embeds "safari".
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge/"):
		return "edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "opera"
	case strings.Contains(ua, "firefox/"):
		return "firefox"
	case strings.Contains(ua, "chrome/") || strings.Contains(ua, "crios/"):
		return "chrome"
	case strings.Contains(ua, "safari/"):
		return "safari"
	default:
		return "other"
	}
}

func deriveOS(ua string) string {
	switch {
	case strings.Contains(ua, "windows"):
		return "windows"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		return "ios"
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macintosh"):
		return "macos"
	case strings.Contains(ua, "android"):
		return "android"
	case strings.Contains(ua, "linux"):
		return "linux"
	default:
		return "other"
	}
}
