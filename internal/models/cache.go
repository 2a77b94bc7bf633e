// ABOUTME: CacheEntry is a content cache row keyed by the SHA-256 of a lookup key
package models

import "time"

// CacheEntry represents cached content
type CacheEntry struct {
	KeyHash      string    `json:"key_hash"`
	Content      string    `json:"content"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}
