// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Samples store times as unix nanoseconds so range queries stay exact.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS samples (
		id TEXT PRIMARY KEY,
		sample_type TEXT NOT NULL,
		start_at INTEGER NOT NULL,
		end_at INTEGER NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		value REAL NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_samples_type_start ON samples(sample_type, start_at);
	CREATE INDEX IF NOT EXISTS idx_samples_source ON samples(source);
	`

	_, err := d.db.Exec(schema)
	return err
}
