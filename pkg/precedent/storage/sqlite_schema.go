package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the precedent database schema.
const Schema = `
-- Precedent records table
CREATE TABLE IF NOT EXISTS precedents (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,

    input_text TEXT NOT NULL,
    context_hash TEXT NOT NULL UNIQUE,
    context_json TEXT,

    verdict TEXT NOT NULL,
    confidence REAL NOT NULL,

    created_at TIMESTAMP NOT NULL
);

-- Per-precedent critic outputs
CREATE TABLE IF NOT EXISTS critic_outputs (
    precedent_id TEXT NOT NULL REFERENCES precedents(id) ON DELETE CASCADE,
    critic_name TEXT NOT NULL,
    verdict TEXT NOT NULL,
    confidence REAL NOT NULL,
    justification TEXT,
    applied_weight REAL,
    PRIMARY KEY (precedent_id, critic_name)
);

-- Opaque serialized embedding vectors
CREATE TABLE IF NOT EXISTS embeddings (
    precedent_id TEXT PRIMARY KEY REFERENCES precedents(id) ON DELETE CASCADE,
    model TEXT NOT NULL,
    vector BLOB NOT NULL
);

-- Weighted precedent-to-precedent similarity edges
CREATE TABLE IF NOT EXISTS precedent_refs (
    source_id TEXT NOT NULL REFERENCES precedents(id) ON DELETE CASCADE,
    referenced_id TEXT NOT NULL REFERENCES precedents(id) ON DELETE CASCADE,
    similarity REAL NOT NULL,
    ref_type TEXT,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (source_id, referenced_id)
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_precedents_context_hash ON precedents(context_hash);
CREATE INDEX IF NOT EXISTS idx_precedents_verdict ON precedents(verdict);
CREATE INDEX IF NOT EXISTS idx_precedents_created_at ON precedents(created_at);
CREATE INDEX IF NOT EXISTS idx_precedents_request_id ON precedents(request_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
