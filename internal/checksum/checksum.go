// Package checksum computes the content digests used as document versions.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether an If-Match header value accepts data. An empty
// header or "*" matches anything; ETag quotes and a weak prefix are ignored.
func Matches(ifMatch string, data []byte) bool {
	ifMatch = strings.TrimSpace(ifMatch)
	if ifMatch == "" || ifMatch == "*" {
		return true
	}
	ifMatch = strings.Trim(strings.TrimPrefix(ifMatch, "W/"), `"`)
	return ifMatch == Sum(data)
}
