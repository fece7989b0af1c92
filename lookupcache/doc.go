/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package lookupcache keeps recent lookup results in memory.
//
// Entries are keyed by the looked up batch.Record and hold the raw JSON entry returned by
// the lookup service. The cache is bounded by the number of entries, the least recently used
// entry is evicted first, and entries may expire after a TTL. Failed (null) lookups are never stored.
package lookupcache
