package database

// schemas maps database names to their embedded SQL schema.
// All statements are idempotent so Migrate can run on every startup.
var schemas = map[string]string{
	"marketdata": marketdataSchema,
}

// Schema returns the embedded schema for a database name.
// Used by package tests that run against bare in-memory connections.
func Schema(name string) string {
	return schemas[name]
}

// marketdataSchema defines the market-data store:
// securities with their cached snapshot fields, the multi-resolution
// price-point tables, cached exchange rates, and the sync audit log.
//
// Price points are uniquely keyed by (security_id, ts) per table so that
// writes can be idempotent upserts and re-fetching a stored timestamp
// never duplicates a row.
const marketdataSchema = `
CREATE TABLE IF NOT EXISTS securities (
    id                       INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol                   TEXT NOT NULL UNIQUE,
    name                     TEXT NOT NULL DEFAULT '',
    exchange                 TEXT NOT NULL DEFAULT 'XNYS',
    currency                 TEXT NOT NULL DEFAULT 'USD',
    active                   INTEGER NOT NULL DEFAULT 1,
    current_price            REAL,
    price_change_24h         REAL,
    price_change_percent_24h REAL,
    market_status            TEXT,
    last_price_update        INTEGER,
    created_at               INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_securities_active ON securities(active);

CREATE TABLE IF NOT EXISTS price_points_intraday (
    security_id INTEGER NOT NULL REFERENCES securities(id),
    ts          INTEGER NOT NULL,
    open        REAL NOT NULL,
    high        REAL NOT NULL,
    low         REAL NOT NULL,
    close       REAL NOT NULL,
    volume      INTEGER,
    UNIQUE(security_id, ts)
);

CREATE TABLE IF NOT EXISTS price_points_daily (
    security_id INTEGER NOT NULL REFERENCES securities(id),
    ts          INTEGER NOT NULL,
    open        REAL NOT NULL,
    high        REAL NOT NULL,
    low         REAL NOT NULL,
    close       REAL NOT NULL,
    volume      INTEGER,
    UNIQUE(security_id, ts)
);

CREATE TABLE IF NOT EXISTS exchange_rates (
    base_currency   TEXT NOT NULL,
    target_currency TEXT NOT NULL,
    rate            REAL NOT NULL,
    fetched_at      INTEGER NOT NULL,
    PRIMARY KEY (base_currency, target_currency)
);

CREATE TABLE IF NOT EXISTS sync_audit_log (
    id         TEXT PRIMARY KEY,
    service    TEXT NOT NULL,
    endpoint   TEXT NOT NULL,
    symbol     TEXT NOT NULL,
    status     TEXT NOT NULL,
    origin     TEXT NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_audit_symbol ON sync_audit_log(symbol);
CREATE INDEX IF NOT EXISTS idx_audit_created ON sync_audit_log(created_at);
`
