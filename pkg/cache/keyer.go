package cache

import "path/filepath"

// metadataSchema is bumped whenever the encoding of cached metadata changes,
// so stale entries from older binaries are never decoded.
const metadataSchema = 2

// Keyer derives cache keys.
type Keyer interface {
	// MetadataKey returns the key for the parsed metadata of the ebuild at
	// path (relative to repoRoot). fingerprint identifies the file's current
	// content, so an edited ebuild never maps to a stale entry.
	MetadataKey(repoRoot, path, fingerprint string) string
}

// DefaultKeyer hashes key components into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// MetadataKey returns "ebuild:<sha256>" over the cleaned repository root,
// the ebuild path, its fingerprint and the schema version.
func (DefaultKeyer) MetadataKey(repoRoot, path, fingerprint string) string {
	return hashKey("ebuild", metadataSchema, filepath.Clean(repoRoot), filepath.ToSlash(path), fingerprint)
}
