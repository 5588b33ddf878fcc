package ledger

const schema = `
CREATE TABLE IF NOT EXISTS savings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp REAL NOT NULL,
	session_id TEXT NOT NULL,
	command TEXT NOT NULL,
	processor TEXT NOT NULL,
	original_size INTEGER NOT NULL,
	compressed_size INTEGER NOT NULL,
	platform TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	first_seen REAL NOT NULL,
	last_seen REAL NOT NULL,
	total_original INTEGER NOT NULL DEFAULT 0,
	total_compressed INTEGER NOT NULL DEFAULT 0,
	command_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_savings_session ON savings(session_id);
CREATE INDEX IF NOT EXISTS idx_savings_timestamp ON savings(timestamp);
`

const (
	insertSavingSQL = `INSERT INTO savings
		(timestamp, session_id, command, processor, original_size, compressed_size, platform)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	upsertSessionSQL = `INSERT INTO sessions
		(session_id, first_seen, last_seen, total_original, total_compressed, command_count)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(session_id) DO UPDATE SET
			last_seen = excluded.last_seen,
			total_original = total_original + excluded.total_original,
			total_compressed = total_compressed + excluded.total_compressed,
			command_count = command_count + 1`

	sessionStatsSQL = `SELECT command_count, total_original, total_compressed
		FROM sessions WHERE session_id = ?`

	lifetimeStatsSQL = `SELECT
			COUNT(*),
			COALESCE(SUM(command_count), 0),
			COALESCE(SUM(total_original), 0),
			COALESCE(SUM(total_compressed), 0)
		FROM sessions`

	topProcessorsSQL = `SELECT processor, COUNT(*), SUM(original_size - compressed_size) AS total_saved
		FROM savings
		GROUP BY processor
		ORDER BY total_saved DESC, processor ASC
		LIMIT ?`

	pruneSavingsSQL  = `DELETE FROM savings WHERE timestamp < ?`
	pruneSessionsSQL = `DELETE FROM sessions WHERE last_seen < ?`
)
