// Package stores provides persistence for applied resource state.
//
// A store holds four kinds of data: resource rows keyed by blueprint path,
// per-resource attribute values (JSON-encoded), a snapshot of the blueprint
// source that produced the current state, and free-form metadata keys.
//
// The SQLite implementation serializes all access through a single connection
// and commits every mutation before releasing the store lock, which is what
// lets resource workers within an apply phase hit the store concurrently.
package stores
