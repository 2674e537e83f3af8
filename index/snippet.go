package index

import (
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gamedex/gamedex-mcp/catalog"
)

// DefaultCacheEntries is how many whole catalog files the content cache
// keeps when no size is configured.
const DefaultCacheEntries = 32

var (
	// ErrSnippetNotFound covers every way a locator can fail to resolve:
	// unknown file, ordinal out of range, unreadable file, or a file whose
	// bytes no longer match the loaded digest.
	ErrSnippetNotFound = errors.New("snippet not found")

	// ErrSpanOutOfBounds means a record's span does not fit the file bytes
	// even though the digest matched. It indicates an internal
	// inconsistency rather than a stale file.
	ErrSpanOutOfBounds = errors.New("snippet span out of bounds")
)

// ContentCache keeps recently used catalog files in memory for snippet
// extraction. Entries are keyed by path plus content digest so a file
// rewritten on disk can never serve bytes from the wrong load. Evicted
// files are transparently re-read and verified against the digest recorded
// at load time.
type ContentCache struct {
	lru *lru.Cache[string, []byte]
}

// NewContentCache creates a cache holding up to maxEntries whole files.
// maxEntries <= 0 selects DefaultCacheEntries.
func NewContentCache(maxEntries int) (*ContentCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	cache, err := lru.New[string, []byte](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("creating content cache: %w", err)
	}
	return &ContentCache{lru: cache}, nil
}

// Put seeds the cache with a file's bytes, typically right after a load
// parsed them.
func (cc *ContentCache) Put(path string, digest uint64, data []byte) {
	cc.lru.Add(cacheKey(path, digest), data)
}

// Len returns the number of cached files.
func (cc *ContentCache) Len() int {
	return cc.lru.Len()
}

// Extract returns the exact original markup of the record identified by a
// file path and ordinal, straight from the file bytes the load saw. The
// path may be absolute or library-relative.
func (cc *ContentCache) Extract(store *Store, path string, ordinal int) (string, error) {
	file, ok := store.FileFor(path)
	if !ok {
		return "", fmt.Errorf("%w: %s is not part of the loaded catalog", ErrSnippetNotFound, path)
	}
	rec, ok := store.RecordAt(path, ordinal)
	if !ok {
		return "", fmt.Errorf("%w: %s has no record at ordinal %d", ErrSnippetNotFound, path, ordinal)
	}

	data, err := cc.contents(file)
	if err != nil {
		return "", err
	}

	loc := rec.Locator
	if loc.Start < 0 || loc.End > len(data) || loc.Start > loc.End {
		return "", fmt.Errorf("%w: span [%d,%d) does not fit %d bytes of %s", ErrSpanOutOfBounds, loc.Start, loc.End, len(data), path)
	}
	return string(data[loc.Start:loc.End]), nil
}

// contents returns the file's bytes, from cache or disk. Bytes read back
// from disk must hash to the digest recorded at load time; anything else
// means the file changed and its spans can no longer be trusted.
func (cc *ContentCache) contents(file catalog.SourceFile) ([]byte, error) {
	key := cacheKey(file.Path, file.Digest)
	if data, ok := cc.lru.Get(key); ok {
		return data, nil
	}

	data, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrSnippetNotFound, file.Path, err)
	}
	if xxhash.Sum64(data) != file.Digest {
		return nil, fmt.Errorf("%w: %s changed on disk since the last load", ErrSnippetNotFound, file.Path)
	}
	cc.lru.Add(key, data)
	return data, nil
}

func cacheKey(path string, digest uint64) string {
	return fmt.Sprintf("%s@%016x", normalizePath(path), digest)
}
