package classify

import (
	"testing"

	"edgerelay/internal/core"
)

func baseRequest() Request {
	return Request{
		URL:        "https://example.com/article",
		Validators: core.Validators{ETag: `"v1"`, LastModified: "Mon, 02 Jan 2006 15:04:05 GMT"},
		Device:     Device{Browser: "chrome", OS: "windows", Class: ClassDesktop},
		Geo:        "DE",
		Identities: []IdentityToken{
			{Source: "first-party", ID: "u-123"},
			{Source: "idprov.example", ID: "x-9"},
		},
	}
}

func TestFingerprintStability(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		a, b := baseRequest(), baseRequest()
		if a.Fingerprint() != b.Fingerprint() {
			t.Error("identical requests must produce identical fingerprints")
		}
	})

	t.Run("IdentityOrderIrrelevant", func(t *testing.T) {
		a := baseRequest()
		b := baseRequest()
		b.Identities = []IdentityToken{b.Identities[1], b.Identities[0]}
		if a.Fingerprint() != b.Fingerprint() {
			t.Error("identity ordering must not affect the fingerprint")
		}
	})

	t.Run("RawUserAgentIrrelevant", func(t *testing.T) {
		// Two UA strings differing only in volatile version details coarsen
		// to the same device and therefore the same key.
		uaA := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		uaB := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.6167.85 Safari/537.36"

		a, b := baseRequest(), baseRequest()
		a.Device = DeriveDevice(uaA)
		b.Device = DeriveDevice(uaB)
		if a.Fingerprint() != b.Fingerprint() {
			t.Error("volatile user-agent differences must not affect the fingerprint")
		}
	})

	t.Run("URLChangesKey", func(t *testing.T) {
		a, b := baseRequest(), baseRequest()
		b.URL = "https://example.com/other"
		if a.Fingerprint() == b.Fingerprint() {
			t.Error("different URLs must produce different fingerprints")
		}
	})

	t.Run("ValidatorsChangeKey", func(t *testing.T) {
		a, b := baseRequest(), baseRequest()
		b.Validators.ETag = `"v2"`
		if a.Fingerprint() == b.Fingerprint() {
			t.Error("different validators must produce different fingerprints")
		}
	})

	t.Run("IdentitySetChangesKey", func(t *testing.T) {
		a, b := baseRequest(), baseRequest()
		b.Identities = b.Identities[:1]
		if a.Fingerprint() == b.Fingerprint() {
			t.Error("different identity sets must produce different fingerprints")
		}
	})

	t.Run("FixedWidth", func(t *testing.T) {
		if got := len(baseRequest().Fingerprint()); got != 16 {
			t.Errorf("expected 16-char digest, got %d", got)
		}
	})
}

func TestDeriveDevice(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want Device
	}{
		{
			"ChromeWindows",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Device{Browser: "chrome", OS: "windows", Class: ClassDesktop},
		},
		{
			"SafariIPhone",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			Device{Browser: "safari", OS: "ios", Class: ClassMobile},
		},
		{
			"EdgeNotChrome",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			Device{Browser: "edge", OS: "windows", Class: ClassDesktop},
		},
		{
			"FirefoxLinux",
			"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			Device{Browser: "firefox", OS: "linux", Class: ClassDesktop},
		},
		{
			"AndroidChromeMobile",
			"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			Device{Browser: "chrome", OS: "android", Class: ClassMobile},
		},
		{
			"IPadTablet",
			"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			Device{Browser: "safari", OS: "ios", Class: ClassTablet},
		},
		{
			"UnknownAgent",
			"curl/8.4.0",
			Device{Browser: "other", OS: "other", Class: ClassDesktop},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveDevice(tc.ua); got != tc.want {
				t.Errorf("DeriveDevice() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
