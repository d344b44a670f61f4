package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS checkpoints (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	last_check_time DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sent_messages (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	hash    TEXT NOT NULL UNIQUE,
	sent_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS deliveries (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL DEFAULT '',
	operator   TEXT NOT NULL DEFAULT '',
	work_type  TEXT NOT NULL DEFAULT '',
	start_time TEXT NOT NULL DEFAULT '',
	end_time   TEXT NOT NULL DEFAULT '',
	email_date TEXT NOT NULL DEFAULT '',
	sent_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deliveries_sent_at ON deliveries(sent_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
