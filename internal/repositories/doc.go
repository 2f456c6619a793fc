// Package repositories implements SQLite persistence for local state.
//
// Key Implementations:
//   - [SlotRepository] : string slots keyed by name in the kv_slots table
//
// The favorites list is stored as a single JSON document under the "favorites" slot. Writes
// replace the whole value; there is no partial update.
package repositories
