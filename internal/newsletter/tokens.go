package newsletter

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewConfirmationToken returns a fresh opaque token for a confirmation link.
// Only its hash is ever stored.
func NewConfirmationToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// HashToken maps a raw token to its stored form.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
