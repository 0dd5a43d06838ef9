// Package index implements the in-memory inverted index over contact records.
//
// Each searchable field has its own postings map from term to the set of record positions
// holding that term. Terms are the lower-cased exact value, its whitespace tokens longer than
// two characters, and every 3-gram of the value. The fulltext field indexes the space-joined
// concatenation of all searchable fields.
//
// Substring lookup is a linear scan over the distinct terms of a field. That is O(terms), not
// O(records), and keeps Search exact: the exact value is itself a term, so "some term contains
// the needle" is the same as "the value contains the needle". A trie or suffix structure could
// replace the scan without changing results.
//
// An Index is immutable once built. Incremental adds share the base postings with their
// predecessor and copy only the posting sets they touch into a small overlay. Manager publishes (records, index) pairs as versioned
// snapshots through an atomic pointer, so readers never see a partially built index.
package index
