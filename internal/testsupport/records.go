package testsupport

import "stoneware/internal/book"

// Dune returns a catalog-shaped record used across tests.
func Dune() book.Record {
	return book.Record{
		ID:                "ID1",
		Title:             "Dune",
		Authors:           []string{"Frank Herbert"},
		Thumbnail:         "https://books.google.com/books/content?id=ID1",
		Description:       "Set on the desert planet Arrakis.",
		DescriptionSource: book.SourceCatalog,
		ISBN13:            "9780441172719",
		ISBN10:            "0441172717",
		Status:            book.ShelfToRead,
	}
}
