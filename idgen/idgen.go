// Package idgen generates the identifiers attached to visits and emitted
// messages. IDs are UUIDv7 so that rows stored by the sqlite sink sort by
// creation time.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID
// (e.g. "msg_", "visit_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the generator used by New.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Message and Visit are the generators used for envelope and visit IDs.
var (
	Message = Prefixed("msg_", UUIDv7())
	Visit   = Prefixed("visit_", UUIDv7())
)

// Parse validates a bare UUID string (no prefix).
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("idgen: invalid UUID: %w", err)
	}
	return u.String(), nil
}
