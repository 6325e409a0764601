// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// SetJSON stores v encoded as a JSON string so that every backend hands
// back the same representation.
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value %q: %w", key, err)
	}
	c.Set(key, string(data), ttl)
	return nil
}

// GetJSON decodes a value written by SetJSON into dst. It reports false
// when the key is missing or expired.
func GetJSON(c Cache, key string, dst any) (bool, error) {
	raw, ok := c.Get(key)
	if !ok {
		return false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return false, fmt.Errorf("cache value %q has type %T, want JSON string", key, raw)
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return false, fmt.Errorf("decode cache value %q: %w", key, err)
	}
	return true, nil
}

// Has reports whether key exists and has not expired.
func Has(c Cache, key string) bool {
	_, ok := c.Get(key)
	return ok
}
