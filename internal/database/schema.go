package database

const schema = `
CREATE TABLE catalog (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	cover_url TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX idx_catalog_position ON catalog(position);
`

// migrations[i] upgrades a database at user_version i. A fresh database gets
// schema directly and is stamped with len(migrations).
var migrations = []string{
	"",
}
