// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/cloudx-io/opentender/core"
	"github.com/cloudx-io/opentender/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	q  querier
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite allows a single writer, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, q: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WithinTx runs fn inside a database transaction.
func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", core.ErrPersistence, err)
	}
	defer tx.Rollback()

	if err := fn(&SQLiteStore{db: s.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %w", core.ErrPersistence, err)
	}
	return nil
}

// LoadTender retrieves a tender by ID.
func (s *SQLiteStore) LoadTender(ctx context.Context, tenderID string) (*core.Tender, error) {
	var (
		tender   core.Tender
		deadline string
	)
	err := s.q.QueryRowContext(ctx,
		"SELECT id, title, issuer_id, budget, deadline, status FROM tenders WHERE id = ?",
		tenderID,
	).Scan(&tender.ID, &tender.Title, &tender.IssuerID, &tender.Budget, &deadline, &tender.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: tender %s", core.ErrNotFound, tenderID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get tender: %w", core.ErrPersistence, err)
	}

	if tender.Deadline, err = parseTime(deadline); err != nil {
		return nil, fmt.Errorf("%w: tender %s deadline: %w", core.ErrPersistence, tenderID, err)
	}
	return &tender, nil
}

// SaveTender inserts or updates a tender.
func (s *SQLiteStore) SaveTender(ctx context.Context, tender core.Tender) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tenders (id, title, issuer_id, budget, deadline, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			issuer_id = excluded.issuer_id,
			budget = excluded.budget,
			deadline = excluded.deadline,
			status = excluded.status`,
		tender.ID, tender.Title, tender.IssuerID, tender.Budget, formatTime(tender.Deadline), string(tender.Status),
	)
	if err != nil {
		return fmt.Errorf("%w: save tender %s: %w", core.ErrPersistence, tender.ID, err)
	}
	return nil
}

const bidColumns = `b.id, b.tender_id, b.bidder_id, b.bid_amount, b.status, b.submitted_at, b.timeline_days,
	b.company_name, b.experience_summary, b.insurance_coverage, b.contact_email,
	e.price_score, e.experience_score, e.timeline_score, e.technical_score, e.risk_score,
	e.overall_score, e.evaluator_notes, e.evaluated_at, e.evaluator_id`

const bidFrom = ` FROM bids b LEFT JOIN evaluations e ON e.bid_id = b.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (core.Bid, error) {
	var (
		bid         core.Bid
		submittedAt string

		priceScore, experienceScore, timelineScore, technicalScore, riskScore sql.NullFloat64
		overall                                                               sql.NullInt64
		notes, evaluatedAt, evaluatorID                                       sql.NullString
	)

	err := row.Scan(
		&bid.ID, &bid.TenderID, &bid.BidderID, &bid.BidAmount, &bid.Status, &submittedAt, &bid.TimelineDays,
		&bid.CompanyInfo.Name, &bid.CompanyInfo.ExperienceSummary, &bid.CompanyInfo.InsuranceCoverage, &bid.CompanyInfo.ContactEmail,
		&priceScore, &experienceScore, &timelineScore, &technicalScore, &riskScore,
		&overall, &notes, &evaluatedAt, &evaluatorID,
	)
	if err != nil {
		return bid, err
	}

	if bid.SubmittedAt, err = parseTime(submittedAt); err != nil {
		return bid, err
	}

	if overall.Valid {
		at, err := parseTime(evaluatedAt.String)
		if err != nil {
			return bid, err
		}
		bid.Evaluation = &core.Evaluation{
			BidID: bid.ID,
			Scores: core.Subscores{
				Price:      priceScore.Float64,
				Experience: experienceScore.Float64,
				Timeline:   timelineScore.Float64,
				Technical:  technicalScore.Float64,
				Risk:       riskScore.Float64,
			},
			OverallScore:   int(overall.Int64),
			EvaluatorNotes: notes.String,
			EvaluatedAt:    at,
			EvaluatorID:    evaluatorID.String,
		}
	}
	return bid, nil
}

// LoadBid retrieves a bid with its evaluation and line items.
func (s *SQLiteStore) LoadBid(ctx context.Context, bidID string) (*core.Bid, error) {
	bid, err := scanBid(s.q.QueryRowContext(ctx, "SELECT "+bidColumns+bidFrom+" WHERE b.id = ?", bidID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bid %s", core.ErrNotFound, bidID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get bid: %w", core.ErrPersistence, err)
	}

	if bid.LineItems, err = s.queryLineItems(ctx, bidID); err != nil {
		return nil, err
	}
	return &bid, nil
}

// ListBids returns every bid on a tender, earliest submission first.
func (s *SQLiteStore) ListBids(ctx context.Context, tenderID string) ([]core.Bid, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+bidColumns+bidFrom+" WHERE b.tender_id = ? ORDER BY b.submitted_at, b.id",
		tenderID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list bids: %w", core.ErrPersistence, err)
	}

	bids := make([]core.Bid, 0)
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan bid: %w", core.ErrPersistence, err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: iterate bids: %w", core.ErrPersistence, err)
	}
	// Close before issuing more queries on the single connection
	rows.Close()

	for i := range bids {
		if bids[i].LineItems, err = s.queryLineItems(ctx, bids[i].ID); err != nil {
			return nil, err
		}
	}
	return bids, nil
}

// SaveBid inserts or updates a bid and replaces its evaluation.
func (s *SQLiteStore) SaveBid(ctx context.Context, bid core.Bid) error {
	return s.WithinTx(ctx, func(tx storage.Store) error {
		q := tx.(*SQLiteStore).q

		_, err := q.ExecContext(ctx, `
			INSERT INTO bids (id, tender_id, bidder_id, bid_amount, status, submitted_at, timeline_days,
				company_name, experience_summary, insurance_coverage, contact_email)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				tender_id = excluded.tender_id,
				bidder_id = excluded.bidder_id,
				bid_amount = excluded.bid_amount,
				status = excluded.status,
				submitted_at = excluded.submitted_at,
				timeline_days = excluded.timeline_days,
				company_name = excluded.company_name,
				experience_summary = excluded.experience_summary,
				insurance_coverage = excluded.insurance_coverage,
				contact_email = excluded.contact_email`,
			bid.ID, bid.TenderID, bid.BidderID, bid.BidAmount, string(bid.Status), formatTime(bid.SubmittedAt), bid.TimelineDays,
			bid.CompanyInfo.Name, bid.CompanyInfo.ExperienceSummary, bid.CompanyInfo.InsuranceCoverage, bid.CompanyInfo.ContactEmail,
		)
		if err != nil {
			return fmt.Errorf("%w: save bid %s: %w", core.ErrPersistence, bid.ID, err)
		}

		if bid.Evaluation == nil {
			if _, err := q.ExecContext(ctx, "DELETE FROM evaluations WHERE bid_id = ?", bid.ID); err != nil {
				return fmt.Errorf("%w: clear evaluation %s: %w", core.ErrPersistence, bid.ID, err)
			}
			return nil
		}

		ev := bid.Evaluation
		_, err = q.ExecContext(ctx, `
			INSERT INTO evaluations (bid_id, price_score, experience_score, timeline_score, technical_score, risk_score,
				overall_score, evaluator_notes, evaluated_at, evaluator_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(bid_id) DO UPDATE SET
				price_score = excluded.price_score,
				experience_score = excluded.experience_score,
				timeline_score = excluded.timeline_score,
				technical_score = excluded.technical_score,
				risk_score = excluded.risk_score,
				overall_score = excluded.overall_score,
				evaluator_notes = excluded.evaluator_notes,
				evaluated_at = excluded.evaluated_at,
				evaluator_id = excluded.evaluator_id`,
			bid.ID, ev.Scores.Price, ev.Scores.Experience, ev.Scores.Timeline, ev.Scores.Technical, ev.Scores.Risk,
			ev.OverallScore, ev.EvaluatorNotes, formatTime(ev.EvaluatedAt), ev.EvaluatorID,
		)
		if err != nil {
			return fmt.Errorf("%w: save evaluation %s: %w", core.ErrPersistence, bid.ID, err)
		}
		return nil
	})
}

// LoadLineItems returns the bid's line items in line number order.
func (s *SQLiteStore) LoadLineItems(ctx context.Context, bidID string) ([]core.BidLineItem, error) {
	var exists int
	err := s.q.QueryRowContext(ctx, "SELECT 1 FROM bids WHERE id = ?", bidID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bid %s", core.ErrNotFound, bidID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: check bid: %w", core.ErrPersistence, err)
	}
	return s.queryLineItems(ctx, bidID)
}

func (s *SQLiteStore) queryLineItems(ctx context.Context, bidID string) ([]core.BidLineItem, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, bid_id, line_number, category, item_description, specification, quantity,
			unit_of_measure, unit_price, total, notes
		FROM line_items WHERE bid_id = ? ORDER BY line_number`,
		bidID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: get line items: %w", core.ErrPersistence, err)
	}
	defer rows.Close()

	items := make([]core.BidLineItem, 0)
	for rows.Next() {
		var item core.BidLineItem
		var quantity decimal.NullDecimal
		if err := rows.Scan(
			&item.ID, &item.BidID, &item.LineNumber, &item.Category, &item.ItemDescription, &item.Specification,
			&quantity, &item.UnitOfMeasure, &item.UnitPrice, &item.Total, &item.Notes,
		); err != nil {
			return nil, fmt.Errorf("%w: scan line item: %w", core.ErrPersistence, err)
		}
		item.Quantity = quantity
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate line items: %w", core.ErrPersistence, err)
	}
	return items, nil
}

// SaveLineItem inserts or updates a single line item.
func (s *SQLiteStore) SaveLineItem(ctx context.Context, item core.BidLineItem) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO line_items (id, bid_id, line_number, category, item_description, specification, quantity,
			unit_of_measure, unit_price, total, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			line_number = excluded.line_number,
			category = excluded.category,
			item_description = excluded.item_description,
			specification = excluded.specification,
			quantity = excluded.quantity,
			unit_of_measure = excluded.unit_of_measure,
			unit_price = excluded.unit_price,
			total = excluded.total,
			notes = excluded.notes`,
		item.ID, item.BidID, item.LineNumber, item.Category, item.ItemDescription, item.Specification, item.Quantity,
		item.UnitOfMeasure, item.UnitPrice, item.Total, item.Notes,
	)
	if err != nil {
		return fmt.Errorf("%w: save line item %s: %w", core.ErrPersistence, item.ID, err)
	}
	return nil
}

// timeLayout always writes nine fractional digits in UTC so that text order
// in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime also accepts the variable-width RFC 3339 form.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
