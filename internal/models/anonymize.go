package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashIDLength is the truncated length of the hex digest used for both
// phone hashes and message identifiers.
const hashIDLength = 16

// PhoneHash returns a stable privacy-preserving identifier for a sender
// address. The raw number is never stored; this hash is.
func PhoneHash(phone string) string {
	return truncatedSHA256(phone)
}

// MessageID derives the record key from the raw sender address and body.
// Identical sender+body pairs map to the same ID, so a redelivered webhook
// overwrites its own record.
func MessageID(from, body string) string {
	return truncatedSHA256(from + body)
}

func truncatedSHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:hashIDLength]
}
