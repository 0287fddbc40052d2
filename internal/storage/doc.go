// Package storage persists generated artifacts and the item index.
//
// Artifacts go to Vercel Blob when a read-write token is configured and to the
// local public directory otherwise. The index is backed by Redis, SQLite or an
// in-process list, selected in that order from the configuration.
package storage
