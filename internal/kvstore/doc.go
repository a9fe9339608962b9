// Package kvstore persists named JSON blobs in a single SQLite table.
//
// It is the only component that touches the database file. Every write runs
// inside a SQL transaction while holding both an in-process mutex and a
// cross-process file lock, so a read-modify-write over one or several keys is
// atomic relative to other stoneware processes sharing the same data
// directory. Callers own the payload encoding.
package kvstore
