// Package storage persists pipeline tables per layer (bronze, silver, gold).
//
// Two TableStore backends exist: FileStore writes timestamped CSV files and
// SQLiteStore writes timestamped relational tables indexed by a catalog. Both
// read back the latest version of a table. WorkbookExporter bundles the gold
// tables into one xlsx report.
package storage
