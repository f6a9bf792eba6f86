package database

// SQL migrations for the local order journal.
// All migrations use IF NOT EXISTS to be idempotent.

// migrationSyncHistory tracks position snapshot runs for auditing
const migrationSyncHistory = `
CREATE TABLE IF NOT EXISTS sync_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id TEXT NOT NULL,
    sync_type TEXT NOT NULL,
    status TEXT NOT NULL,
    positions_synced INTEGER DEFAULT 0,
    error_message TEXT,
    started_at DATETIME NOT NULL,
    completed_at DATETIME,
    duration_ms INTEGER
);
`

// migrationOrderJournal records every order this client validated or submitted.
// Decimal amounts are stored as TEXT to keep them exact.
const migrationOrderJournal = `
CREATE TABLE IF NOT EXISTS order_journal (
    id TEXT PRIMARY KEY,
    order_id TEXT,
    account_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    currency TEXT NOT NULL,
    side TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    price_type TEXT NOT NULL,
    limit_price TEXT,
    expiry TEXT NOT NULL,
    expiry_date TEXT,
    warnings TEXT,
    status TEXT NOT NULL,
    error_message TEXT,
    created_at DATETIME NOT NULL,
    cancelled_at DATETIME
);
`

// migrationPositionSnapshots stores the positions captured by one sync run
const migrationPositionSnapshots = `
CREATE TABLE IF NOT EXISTS position_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sync_id INTEGER NOT NULL REFERENCES sync_history(id) ON DELETE CASCADE,
    account_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    quantity TEXT NOT NULL,
    cost TEXT NOT NULL,
    change TEXT NOT NULL,
    change_percent TEXT NOT NULL,
    market_value TEXT NOT NULL,
    captured_at DATETIME NOT NULL
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_sync_history_account ON sync_history(account_id, started_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_order_journal_order ON order_journal(order_id) WHERE order_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_order_journal_account ON order_journal(account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_position_snapshots_sync ON position_snapshots(sync_id);
CREATE INDEX IF NOT EXISTS idx_position_snapshots_account ON position_snapshots(account_id);
`
