// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package linking

import (
	"context"
	"errors"

	"github.com/aira-org/aira-client-os/internal/cache"
	"github.com/aira-org/aira-client-os/internal/clock"
)

// CodeCacheKey is the cache key holding the live code.
const CodeCacheKey = "whatsapp_link_code"

// CacheCodeStore keeps the live code in a session cache with a TTL equal
// to its remaining validity. Over the memory backend the code lives only as
// long as the process; the redis backend carries it across restarts.
type CacheCodeStore struct {
	Cache cache.Cache
	Clock clock.Clock
}

// NewCacheCodeStore returns a store over c.
func NewCacheCodeStore(c cache.Cache, clk clock.Clock) *CacheCodeStore {
	if clk == nil {
		clk = clock.Real{}
	}
	return &CacheCodeStore{Cache: c, Clock: clk}
}

// Load returns the stored code if it is still valid.
func (s *CacheCodeStore) Load(_ context.Context) (Code, bool, error) {
	var code Code
	ok, err := cache.GetJSON(s.Cache, CodeCacheKey, &code)
	if err != nil || !ok {
		return Code{}, false, err
	}
	if code.Value == "" || code.Remaining(s.Clock.Now()) <= 0 {
		return Code{}, false, nil
	}
	return code, true, nil
}

// Save stores code until it expires.
func (s *CacheCodeStore) Save(_ context.Context, code Code) error {
	ttl := code.Remaining(s.Clock.Now())
	if ttl <= 0 {
		return errors.New("refusing to store an expired code")
	}
	return cache.SetJSON(s.Cache, CodeCacheKey, code, ttl)
}

// Clear forgets the stored code.
func (s *CacheCodeStore) Clear(_ context.Context) error {
	s.Cache.Delete(CodeCacheKey)
	return nil
}
