// Package shelf is the only mutation surface for shelved books.
//
// Each shelf is persisted as a JSON list of book records under its own key
// ("books_<shelf>"). Every operation is one atomic read-modify-write of the
// keys it touches. Reads never fail on bad data: a missing or corrupt key is
// treated as an empty shelf and logged.
//
// Upsert does not remove a record from other shelves; callers that change a
// record's shelf use Move, which rewrites both keys in one transaction.
package shelf
