// Package textutil provides small text helpers shared across stoneware:
// Unicode-aware key folding for cache lookups, rune-safe truncation and
// whitespace collapsing, and ISBN digit extraction.
package textutil
