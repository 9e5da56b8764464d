package herdcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A new stampede group was created for a key.
	StampedeCreated(key string)

	// A caller attached to an existing in-flight group.
	StampedeJoined(key string)

	// A caller hit a burned group (count already zero) and had to install
	// a fresh one. Frequent firing means groups finish just as new callers
	// arrive.
	JoinRejected(key string)

	// The fetch delegate failed; every joined caller sees err.
	FetchError(key string, err error)

	// A store operation failed. op ∈ {"get", "set", "tag_snapshot"}.
	StoreError(op, storageKey string, err error)

	// An entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "tag_stale", "value_decode"}
	SelfHeal(storageKey, reason string)

	// A serialized frame exceeded MaxPayloadBytes and was not cached.
	PayloadTooLarge(storageKey string, size, limit int64)

	// RemoveByTag could not record the invalidation stamp (likely backend
	// outage); stale entries may keep serving until it succeeds.
	TagInvalidateError(tag string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) StampedeCreated(string)             {}
func (NopHooks) StampedeJoined(string)              {}
func (NopHooks) JoinRejected(string)                {}
func (NopHooks) FetchError(string, error)           {}
func (NopHooks) StoreError(string, string, error)   {}
func (NopHooks) SelfHeal(string, string)            {}
func (NopHooks) PayloadTooLarge(string, int64, int64) {}
func (NopHooks) TagInvalidateError(string, error)   {}
