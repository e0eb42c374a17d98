// Package syncutil holds the locking primitives shared by the ledger and the
// policy executor.
package syncutil

import (
	"hash/fnv"
	"sync"
)

const keyedShards = 256

// KeyedMutex serializes work per string key using a fixed pool of mutexes.
// Memory stays bounded no matter how many keys are seen; two keys that hash
// to the same shard contend with each other.
type KeyedMutex struct {
	shards [keyedShards]sync.Mutex
}

// Lock blocks until the shard for key is held and returns its release func.
func (m *KeyedMutex) Lock(key string) func() {
	mu := &m.shards[shardFor(key)]
	mu.Lock()
	return mu.Unlock
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % keyedShards
}
