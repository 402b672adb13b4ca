// Package id generates opaque identifiers used for rows (projects, agents,
// sessions, messages) and for correlation IDs (broadcast_id, message_id).
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a 21-character nanoid. 21 characters keeps conversation
// and correlation IDs short enough to type on a command line while leaving
// a collision probability far below what this single-process, single-user
// system will ever exercise.
func Generate() string {
	v, err := gonanoid.Generate(alphabet, 21)
	if err != nil {
		panic(fmt.Sprintf("generate nanoid: %v", err))
	}
	return v
}

// GeneratePrefixed returns a Generate id prefixed with a short tag (e.g.
// "bc_" for a broadcast, "sess_" for a session) so that IDs are
// self-describing in logs and CLI output.
func GeneratePrefixed(prefix string) string {
	return prefix + "_" + Generate()
}
