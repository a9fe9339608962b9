// Package community resolves a book's work identity on Open Library and
// fetches the community rating aggregate and description for that work.
//
// Resolver tries strong keys before weak ones (ISBN-13, ISBN-10, then a
// folded title/first-author search) and caches only successful lookups, so a
// transient failure or an empty answer is retried on the next request.
// Enricher memoizes ratings and descriptions per work key. Neither surfaces
// collaborator errors: lookups degrade to "no data" and are logged.
package community
