package content

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gowebpki/jcs"
)

// Digest returns the sha256 of the RFC 8785 canonical form of raw. Two
// serializations with the same keys and values hash identically regardless of
// key order or whitespace.
func Digest(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	canonical, err := jcs.Transform([]byte(raw))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
