// Package query is a keyed, de-duplicating cache of asynchronous reads.
//
// A Client owns one entry per Key. Query and InfiniteQuery observe an entry,
// fetch it when it is missing or stale and share a single in-flight request
// with every other observer of the same key.
package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a query. Two keys are equal when their JSON forms are equal.
type Key []any

// Hash returns the canonical string form of the key, e.g. ["movie",550,"credits"].
func (k Key) Hash() string {
	data, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprintf("%v", []any(k))
	}
	return string(data)
}

func (k Key) String() string {
	return k.Hash()
}

// HasPrefix reports whether k starts with every element of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	return prefix.isPrefixHash(k.Hash())
}

func (k Key) isPrefixHash(hash string) bool {
	if len(k) == 0 {
		return true
	}
	p := k.Hash()
	p = strings.TrimSuffix(p, "]")
	return hash == p+"]" || strings.HasPrefix(hash, p+",")
}
