package util

import (
	"strings"
	"testing"
)

func TestEntryKeyInline(t *testing.T) {
	if got := EntryKey("user", "42"); got != "entry:user:42" {
		t.Fatalf("EntryKey = %q", got)
	}
}

func TestEntryKeyLongKeysHashed(t *testing.T) {
	long := strings.Repeat("k", 200)
	got := EntryKey("user", long)
	if !strings.HasPrefix(got, "entry:user:#") {
		t.Fatalf("long key not hashed: %q", got)
	}
	if strings.Contains(got, long) {
		t.Fatal("long key must not be embedded verbatim")
	}
	// stable across calls, distinct across keys
	if got != EntryKey("user", long) {
		t.Fatal("hashing must be deterministic")
	}
	if got == EntryKey("user", long+"x") {
		t.Fatal("distinct keys must not collide in the test vector")
	}
}
