// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"hash/fnv"
	"sync"
)

// lockStripes is the number of mutexes in a stripe set. Collisions only
// cost unnecessary serialization, never correctness, so a modest power of
// two is enough.
const lockStripes = 64

// stripedLocks linearizes mutations per (user, folded) key while letting
// operations on different keys proceed in parallel.
type stripedLocks struct {
	mus [lockStripes]sync.Mutex
}

// lock acquires the stripe for the key and returns its unlock func.
func (s *stripedLocks) lock(userID, folded string) func() {
	h := fnv.New32a()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(folded))
	mu := &s.mus[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
