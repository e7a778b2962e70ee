package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Operation names a cached remote operation.
type Operation string

const (
	// OperationItems caches list-items responses.
	OperationItems Operation = "items"

	// OperationDetail caches get-detail responses.
	OperationDetail Operation = "details"
)

// Key identifies one cached response.
type Key struct {
	Operation Operation
	Locator   string
}

// String generates a deterministic Redis key.
// Format: harvest:<operation>:<sha256(locator)>
//
// Locators are full URLs of arbitrary length, so they are hashed.
func (k Key) String() string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(k.Locator)))
	return "harvest:" + string(k.Operation) + ":" + hex.EncodeToString(sum[:])
}
