// Package checksum fingerprints Markdown sources so repeated conversions of
// unchanged content can be recognised.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Markdown returns the hex-encoded SHA-256 digest of src after line endings
// are normalised to "\n", so a note saved on Windows and on Linux hashes the
// same.
func Markdown(src string) string {
	h := sha256.Sum256([]byte(lineEndings.Replace(src)))
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 characters of sum for log output.
func Short(sum string) string {
	if len(sum) <= 12 {
		return sum
	}
	return sum[:12]
}
