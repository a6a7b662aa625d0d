package notes

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

const idPrefix = "note_"

var idEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// NewID mints an opaque note identifier carrying 128 bits of entropy.
//
// Ids double as the access capability for unlisted notes, so they must stay
// random and non-sequential; a counter would make revocation guessable.
func NewID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic("notes: entropy source unavailable: " + err.Error())
	}
	return idPrefix + strings.ToLower(idEncoding.EncodeToString(buf[:]))
}
