// Package sqlite implements the SQLite document store backend.
// This file holds the schema DDL.
package sqlite

// Schema DDL. Every collection shares the documents table; the collections
// table records which collections have been bootstrapped.
const (
	createCollections = `CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);`

	createDocuments = `CREATE TABLE IF NOT EXISTS documents (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL,
    doc_id TEXT NOT NULL,
    body TEXT NOT NULL,
    FOREIGN KEY (collection) REFERENCES collections(name)
);`
)

// Index DDL for common queries.
const (
	idxDocumentsID         = `CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_id ON documents(collection, doc_id);`
	idxDocumentsCollection = `CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, seq);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createCollections,
	createDocuments,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxDocumentsID,
	idxDocumentsCollection,
}
