package sqlite

import "database/sql"

// schema runs on startup to ensure tables exist.
// Money columns hold decimal strings so amounts survive without float rounding.
const schema = `
CREATE TABLE IF NOT EXISTS tenders (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    issuer_id TEXT NOT NULL DEFAULT '',
    budget TEXT,
    deadline TEXT NOT NULL,
    status TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bids (
    id TEXT PRIMARY KEY,
    tender_id TEXT NOT NULL,
    bidder_id TEXT NOT NULL,
    bid_amount TEXT NOT NULL,
    status TEXT NOT NULL,
    submitted_at TEXT NOT NULL,
    timeline_days INTEGER NOT NULL DEFAULT 0,
    company_name TEXT NOT NULL DEFAULT '',
    experience_summary TEXT NOT NULL DEFAULT '',
    insurance_coverage TEXT NOT NULL DEFAULT '',
    contact_email TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (tender_id) REFERENCES tenders(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS evaluations (
    bid_id TEXT PRIMARY KEY,
    price_score REAL NOT NULL,
    experience_score REAL NOT NULL,
    timeline_score REAL NOT NULL,
    technical_score REAL NOT NULL,
    risk_score REAL NOT NULL,
    overall_score INTEGER NOT NULL,
    evaluator_notes TEXT NOT NULL DEFAULT '',
    evaluated_at TEXT NOT NULL,
    evaluator_id TEXT NOT NULL,
    FOREIGN KEY (bid_id) REFERENCES bids(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS line_items (
    id TEXT PRIMARY KEY,
    bid_id TEXT NOT NULL,
    line_number INTEGER NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    item_description TEXT NOT NULL,
    specification TEXT NOT NULL DEFAULT '',
    quantity TEXT,
    unit_of_measure TEXT NOT NULL DEFAULT '',
    unit_price TEXT NOT NULL,
    total TEXT NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    UNIQUE (bid_id, line_number),
    FOREIGN KEY (bid_id) REFERENCES bids(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_bids_tender_id ON bids(tender_id);
CREATE INDEX IF NOT EXISTS idx_line_items_bid_id ON line_items(bid_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
