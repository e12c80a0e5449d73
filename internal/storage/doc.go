// Package storage provides the key/value areas sessions are persisted in.
//
// Two areas exist per origin: a tab-scoped area holding the session record
// and the pending authorization, and an origin-shared area holding the
// handoff slot. Both are a Store; the backend decides the scope:
//
//   - MemoryStore: process lifetime, used for tests and ephemeral tabs
//   - FileStore: one JSON file per key in a 0700 directory; Take is an
//     atomic rename so only one reader ever wins a key
//   - RedisStore: a key prefix in Redis; Take is GETDEL
//
// Stores that can report writes implement Watcher.
package storage
