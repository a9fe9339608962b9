// Package library is the request/response boundary between front-ends and
// the reading-list core.
//
// Service composes the catalog client, community enrichment, the synopsis
// pipeline and the shelf store into the operations a user performs: search,
// view details, add, move, remove, rate, list, export and import.
//
// # Rating Policy
//
// Ratings are quantized to quarter steps. Rating a shelved book updates it
// in place. Rating an unshelved book files it on "finished" when auto-file
// is enabled; otherwise the rating is held in memory and applied when the
// book is later added to a shelf.
//
// # Failure Handling
//
// Collaborator failures degrade to less data rather than errors. Search is
// the exception: a catalog failure surfaces as ErrSearchFailed so callers
// can show "Search failed. Try again.".
package library
