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

CREATE TABLE IF NOT EXISTS drafts (
	id          TEXT PRIMARY KEY,
	recipient   TEXT NOT NULL,
	subject     TEXT NOT NULL DEFAULT '',
	folder      TEXT NOT NULL,
	attachments TEXT NOT NULL DEFAULT '[]',
	backend     TEXT NOT NULL DEFAULT '',
	draft_ref   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL CHECK(status IN ('created', 'skipped', 'failed')),
	error       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_drafts_created_at ON drafts(created_at);
CREATE INDEX IF NOT EXISTS idx_drafts_status ON drafts(status);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_drafts_recipient ON drafts(recipient);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
