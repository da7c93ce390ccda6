// Package cache implements the in-memory result cache used to avoid
// recomputing expensive analysis calls. Entries carry a TTL and the cache
// evicts its least-used entries once it grows past a high-water mark.
package cache
