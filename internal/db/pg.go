package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/scimma/lsst-quality-filter/internal/engine"
	"github.com/scimma/lsst-quality-filter/internal/state"
	"github.com/scimma/lsst-quality-filter/internal/types"
)

type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(connStr string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &PostgresStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	-- Loci: latest snapshot per locus
	CREATE TABLE IF NOT EXISTS loci (
		locus_id TEXT PRIMARY KEY,
		ra_deg DOUBLE PRECISION NOT NULL,
		dec_deg DOUBLE PRECISION NOT NULL,
		properties JSONB,
		created_at TIMESTAMP DEFAULT NOW(),
		updated_at TIMESTAMP DEFAULT NOW()
	);

	-- Alerts: append-only, one row per alert
	CREATE TABLE IF NOT EXISTS alerts (
		locus_id TEXT NOT NULL REFERENCES loci(locus_id) ON DELETE CASCADE,
		alert_id TEXT NOT NULL,
		mjd DOUBLE PRECISION NOT NULL,
		properties JSONB NOT NULL,
		PRIMARY KEY (locus_id, alert_id)
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_mjd ON alerts(locus_id, mjd);

	-- Locus tags: set membership
	CREATE TABLE IF NOT EXISTS locus_tags (
		locus_id TEXT NOT NULL REFERENCES loci(locus_id) ON DELETE CASCADE,
		tag TEXT NOT NULL,
		tagged_at TIMESTAMP DEFAULT NOW(),
		PRIMARY KEY (locus_id, tag)
	);
	CREATE INDEX IF NOT EXISTS idx_locus_tags_tag ON locus_tags(tag);

	-- Filter reports: one row per run
	CREATE TABLE IF NOT EXISTS filter_reports (
		report_id UUID PRIMARY KEY,
		filter TEXT NOT NULL,
		locus_id TEXT NOT NULL,
		alert_id TEXT,
		output_tag TEXT NOT NULL,
		passed BOOLEAN NOT NULL,
		check_name TEXT,
		reason TEXT,
		new_tags TEXT[] NOT NULL DEFAULT '{}',
		error TEXT,
		evaluated_at TIMESTAMP NOT NULL,
		duration_us BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_filter_reports_evaluated ON filter_reports(evaluated_at DESC);
	CREATE INDEX IF NOT EXISTS idx_filter_reports_check ON filter_reports(check_name);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresStore) Record(locus types.Locus) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	propsJSON, err := json.Marshal(locus.Properties)
	if err != nil {
		return fmt.Errorf("failed to encode locus properties: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO loci (locus_id, ra_deg, dec_deg, properties)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (locus_id) DO UPDATE SET
			updated_at = NOW(),
			ra_deg = EXCLUDED.ra_deg,
			dec_deg = EXCLUDED.dec_deg,
			properties = EXCLUDED.properties
	`, locus.ID, locus.RA, locus.Dec, propsJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert locus: %w", err)
	}

	for _, alert := range locus.Alerts {
		alertJSON, err := json.Marshal(alert.Properties)
		if err != nil {
			return fmt.Errorf("failed to encode alert %s: %w", alert.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO alerts (locus_id, alert_id, mjd, properties)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (locus_id, alert_id) DO NOTHING
		`, locus.ID, alert.ID, alert.MJD, alertJSON)
		if err != nil {
			return fmt.Errorf("failed to insert alert %s: %w", alert.ID, err)
		}
	}

	for _, tag := range locus.Tags {
		if err := insertTag(ctx, tx, locus.ID, tag); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertTag(ctx context.Context, e execer, locusID, tag string) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO locus_tags (locus_id, tag)
		VALUES ($1, $2)
		ON CONFLICT (locus_id, tag) DO NOTHING
	`, locusID, tag)
	if err != nil {
		return fmt.Errorf("failed to tag locus %s: %w", locusID, err)
	}
	return nil
}

func (s *PostgresStore) Get(id string) (types.Locus, bool) {
	ctx := context.Background()

	var locus types.Locus
	var propsJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT locus_id, ra_deg, dec_deg, properties FROM loci WHERE locus_id = $1
	`, id).Scan(&locus.ID, &locus.RA, &locus.Dec, &propsJSON)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to load locus", zap.String("locus_id", id), zap.Error(err))
		}
		return types.Locus{}, false
	}
	if err := decodeProperties(propsJSON, &locus.Properties); err != nil {
		s.logger.Warn("Failed to decode locus properties", zap.String("locus_id", id), zap.Error(err))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT alert_id, mjd, properties
		FROM alerts
		WHERE locus_id = $1
		ORDER BY mjd ASC, alert_id ASC
	`, id)
	if err != nil {
		s.logger.Warn("Failed to load alerts", zap.String("locus_id", id), zap.Error(err))
		return types.Locus{}, false
	}
	defer rows.Close()

	// A partial alert list would change which alert is latest, so any bad row
	// fails the whole load.
	for rows.Next() {
		var alert types.Alert
		var alertJSON []byte
		if err := rows.Scan(&alert.ID, &alert.MJD, &alertJSON); err != nil {
			s.logger.Warn("Failed to scan alert", zap.String("locus_id", id), zap.Error(err))
			return types.Locus{}, false
		}
		if err := decodeProperties(alertJSON, &alert.Properties); err != nil {
			s.logger.Warn("Failed to decode alert properties",
				zap.String("locus_id", id), zap.String("alert_id", alert.ID), zap.Error(err))
			return types.Locus{}, false
		}
		locus.Alerts = append(locus.Alerts, alert)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("Failed to load alerts", zap.String("locus_id", id), zap.Error(err))
		return types.Locus{}, false
	}

	locus.Tags = s.Tags(id)
	return locus, true
}

// decodeProperties keeps numbers as json.Number so 64-bit identifiers survive.
func decodeProperties(raw []byte, dst *types.Properties) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}

func (s *PostgresStore) Tag(id, tag string) error {
	ctx := context.Background()

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM loci WHERE locus_id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return state.ErrUnknownLocus
	}
	return insertTag(ctx, s.db, id, tag)
}

func (s *PostgresStore) Tags(id string) []string {
	return s.queryStrings(`SELECT tag FROM locus_tags WHERE locus_id = $1 ORDER BY tag`, id)
}

func (s *PostgresStore) ListByTag(tag string) []string {
	return s.queryStrings(`SELECT locus_id FROM locus_tags WHERE tag = $1 ORDER BY locus_id`, tag)
}

func (s *PostgresStore) queryStrings(query string, arg string) []string {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		s.logger.Warn("Query failed", zap.Error(err))
		return []string{}
	}
	defer rows.Close()

	results := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			continue
		}
		results = append(results, v)
	}
	return results
}

// RecordReport implements engine.ReportSink.
func (s *PostgresStore) RecordReport(ctx context.Context, report *engine.Report) error {
	newTags := report.NewTags
	if newTags == nil {
		newTags = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO filter_reports (
			report_id, filter, locus_id, alert_id, output_tag, passed,
			check_name, reason, new_tags, error, evaluated_at, duration_us
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (report_id) DO NOTHING
	`, report.ID, report.Filter, report.LocusID, report.AlertID, report.OutputTag, report.Passed,
		string(report.Check), report.Reason, pq.Array(newTags), report.Error,
		report.EvaluatedAt, report.Duration.Microseconds())
	return err
}

// GetReports returns recent reports, newest first, optionally only those
// rejected by the given check.
func (s *PostgresStore) GetReports(ctx context.Context, check engine.Check, limit int) ([]engine.Report, error) {
	query := `
		SELECT report_id, filter, locus_id, alert_id, output_tag, passed,
		       check_name, reason, new_tags, error, evaluated_at, duration_us
		FROM filter_reports
		WHERE 1=1
	`
	args := make([]interface{}, 0)

	if check != engine.CheckNone {
		query += " AND check_name = $1"
		args = append(args, string(check))
	}

	query += " ORDER BY evaluated_at DESC LIMIT $" + fmt.Sprintf("%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]engine.Report, 0)
	for rows.Next() {
		var r engine.Report
		var alertID, checkName, reason, errText sql.NullString
		var durationUS int64

		if err := rows.Scan(
			&r.ID, &r.Filter, &r.LocusID, &alertID, &r.OutputTag, &r.Passed,
			&checkName, &reason, pq.Array(&r.NewTags), &errText, &r.EvaluatedAt, &durationUS,
		); err != nil {
			s.logger.Warn("Failed to scan report", zap.Error(err))
			continue
		}

		r.AlertID = alertID.String
		r.Check = engine.Check(checkName.String)
		r.Reason = reason.String
		r.Error = errText.String
		r.Duration = time.Duration(durationUS) * time.Microsecond
		reports = append(reports, r)
	}

	return reports, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *PostgresStore) Ping() error {
	return s.db.Ping()
}
