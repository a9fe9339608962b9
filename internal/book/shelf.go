package book

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidShelf is returned when a shelf name cannot be parsed.
var ErrInvalidShelf = errors.New("invalid shelf")

// Shelf names one of the four disjoint collections a book can live on.
type Shelf string

const (
	ShelfToRead    Shelf = "toRead"
	ShelfReading   Shelf = "reading"
	ShelfFinished  Shelf = "finished"
	ShelfAbandoned Shelf = "abandoned"
)

// Status mirrors the shelf a record is filed on.
type Status = Shelf

// Shelves returns every shelf in display order.
func Shelves() []Shelf {
	return []Shelf{ShelfToRead, ShelfReading, ShelfFinished, ShelfAbandoned}
}

var shelfAliases = map[string]Shelf{
	"toread":    ShelfToRead,
	"to-read":   ShelfToRead,
	"to_read":   ShelfToRead,
	"want":      ShelfToRead,
	"reading":   ShelfReading,
	"current":   ShelfReading,
	"finished":  ShelfFinished,
	"done":      ShelfFinished,
	"read":      ShelfFinished,
	"abandoned": ShelfAbandoned,
	"dnf":       ShelfAbandoned,
}

// ParseShelf resolves canonical shelf names and their friendly aliases.
func ParseShelf(value string) (Shelf, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if shelf, ok := shelfAliases[key]; ok {
		return shelf, nil
	}
	return "", fmt.Errorf("%w: %q (expected to-read, reading, finished or abandoned)", ErrInvalidShelf, value)
}

// Valid reports whether s is one of the four shelves.
func (s Shelf) Valid() bool {
	switch s {
	case ShelfToRead, ShelfReading, ShelfFinished, ShelfAbandoned:
		return true
	default:
		return false
	}
}

// Label returns the human-readable shelf name.
func (s Shelf) Label() string {
	switch s {
	case ShelfToRead:
		return "To Read"
	case ShelfReading:
		return "Reading"
	case ShelfFinished:
		return "Finished"
	case ShelfAbandoned:
		return "Abandoned"
	default:
		return string(s)
	}
}

// StorageKey is the persistent key holding the shelf's records.
func (s Shelf) StorageKey() string {
	return "books_" + string(s)
}
