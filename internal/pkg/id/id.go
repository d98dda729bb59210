package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. Session ids are ULIDs so stores can sort
// and expire them by creation time.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Valid reports whether s is a well-formed ULID. Cookie values that fail this
// are never looked up in a store.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
