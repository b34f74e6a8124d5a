package cache

// ScopedKeyer wraps a Keyer with a prefix so that several repositories or
// tenants can share one cache backend without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "overlay:guru:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// MetadataKey generates a prefixed metadata key.
func (k *ScopedKeyer) MetadataKey(repoRoot, path, fingerprint string) string {
	return k.prefix + k.inner.MetadataKey(repoRoot, path, fingerprint)
}
