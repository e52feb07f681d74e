package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a fresh ULID string. Account, session and notification rows
// all key on ULIDs: they sort by creation time and, unlike sequential ids,
// reveal nothing useful when one shows up in a confirmation or reset URL.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
