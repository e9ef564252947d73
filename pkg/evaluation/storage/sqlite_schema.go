package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the run store schema.
const Schema = `
-- Evaluation runs
CREATE TABLE IF NOT EXISTS evaluation_runs (
    id TEXT PRIMARY KEY,
    scenario_id TEXT NOT NULL,
    status TEXT NOT NULL,

    -- Submission inputs
    artifact_id TEXT NOT NULL,
    rulepack_id TEXT NOT NULL,
    webhook_url TEXT,
    debug INTEGER NOT NULL DEFAULT 0,

    -- Outputs, JSON encoded; NULL until the run is terminal
    results TEXT,
    inclusivity_index TEXT,
    trace TEXT,

    -- Unix nanoseconds
    created_at INTEGER NOT NULL,
    completed_at INTEGER,

    error TEXT,
    error_detail TEXT
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_scenario_created ON evaluation_runs(scenario_id, created_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON evaluation_runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_completed_at ON evaluation_runs(completed_at);
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

const runColumns = `id, scenario_id, status, artifact_id, rulepack_id, webhook_url, debug,
    results, inclusivity_index, trace, created_at, completed_at, error, error_detail`
