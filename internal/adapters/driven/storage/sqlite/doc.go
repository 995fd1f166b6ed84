// Package sqlite provides the SQLite-backed chunk store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Documents and chunks live in one database;
// chunk text is indexed with FTS5 and ranked with bm25.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-rag/data/chunks.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Chunk replacement and document deletion each run in a
// single transaction so readers never see a document with a partial chunk set.
package sqlite
