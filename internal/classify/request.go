package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"edgerelay/internal/core"
)

// IdentityToken is a first- or third-party identity collapsed to its
// (source, id) pair. The original container structure (cookie names, eids
// nesting) is discarded so logically-equivalent identity sets fingerprint
// identically.
type IdentityToken struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

// Request is the normalized snapshot a classification call is made from.
// The document validators tie classification freshness to document freshness:
// a republished page gets a new fingerprint and therefore fresh segments.
type Request struct {
	URL        core.CanonicalURL
	Validators core.Validators
	Device     Device
	Geo        string
	Identities []IdentityToken
}

// Fingerprint derives the segment-cache key: a deterministic serialization of
// the normalized request hashed to a fixed-width digest. Two
// logically-equivalent requests always produce the same key regardless of
// source field ordering; any difference in URL, validators, device families,
// geo, or identity set produces a different key.
func (r Request) Fingerprint() string {
	ids := make([]string, 0, len(r.Identities))
	for _, t := range r.Identities {
		ids = append(ids, t.Source+":"+t.ID)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(string(r.URL))
	b.WriteByte('|')
	b.WriteString(r.Validators.ETag)
	b.WriteByte('|')
	b.WriteString(r.Validators.LastModified)
	b.WriteByte('|')
	b.WriteString(r.Device.Browser)
	b.WriteByte('|')
	b.WriteString(r.Device.OS)
	b.WriteByte('|')
	b.WriteString(r.Device.Class)
	b.WriteByte('|')
	b.WriteString(r.Geo)
	b.WriteByte('|')
	b.WriteString(strings.Join(ids, ","))

	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}
