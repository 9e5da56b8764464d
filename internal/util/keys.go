package util

import (
	"crypto/sha256"
	"fmt"
)

// maxInlineKey bounds how much of a user key is embedded verbatim in the
// storage key; longer keys are replaced by a hash so stores with key-size
// limits (and hot key comparisons) stay cheap.
const maxInlineKey = 96

// EntryKey builds the namespaced storage key for a user key.
func EntryKey(ns, userKey string) string {
	if len(userKey) <= maxInlineKey {
		return "entry:" + ns + ":" + userKey
	}
	sum := sha256.Sum256([]byte(userKey))
	return fmt.Sprintf("entry:%s:#%x", ns, sum[:8])
}
