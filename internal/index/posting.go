// Package index holds the shared on-disk and in-memory data structures of
// the inverted index: postings, term entries, and the line codec used by
// both temporary blocks and the final index file.
package index

// DocID identifies a document in the record store. The store assigns dense
// non-negative ids, so the total document count always exceeds the largest
// id.
type DocID uint32

// Posting records how often a term occurs in one document.
type Posting struct {
	Doc  DocID
	Freq uint32
}

// PostingList is the ordered set of postings for one term.
type PostingList []Posting

// TermEntry pairs a term with its posting list, the unit of one block or
// final-index line.
type TermEntry struct {
	Term     string
	Postings PostingList
}
