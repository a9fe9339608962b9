// Package catalog talks to the Google Books volumes API and converts its
// loosely-shaped payloads into canonical book records.
//
// Client performs the two catalog calls (free-text search and lookup by
// volume id). Normalize and Merge are pure: they never fail on missing
// optional fields, and Merge preserves the user's local state (rating, shelf,
// timestamps, vetted synopsis) when a detail response refreshes a record.
package catalog
