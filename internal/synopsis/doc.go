// Package synopsis picks the text shown as a book's summary.
//
// Sources are tried in order: a stored community or generated synopsis of
// acceptable length, a fresh community description, a generated summary,
// and finally the "No summary available." literal. Resolve waits a bounded
// time for the chain; when it runs longer the caller gets an interim
// "Fetching summary…" result and the final text arrives once on Updates.
// Improvements are written back to the shelf that holds the book.
package synopsis
