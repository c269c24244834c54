package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-extractor/constants"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

type sqliteRunRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteRunRepository(db *sql.DB, log *slog.Logger) RunRepository {
	return &sqliteRunRepo{db: db, log: log}
}

const sqliteSelectRun = `SELECT id, filename, format, client_name, status, attempts, confidence,
	needs_review, error_message, result_json, model_name, started_at, finished_at
	FROM extraction_runs`

func (r *sqliteRunRepo) Start(ctx context.Context, in StartRun) (*entity.ExtractionRun, error) {
	run := newRun(in)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO extraction_runs (id, filename, format, client_name, status, model_name, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Filename, run.Format, run.ClientName, run.Status, run.ModelName, formatTime(run.StartedAt))
	if err != nil {
		r.log.Error("extraction_run start failed", "filename", in.Filename, "err", err)
		return nil, err
	}
	r.log.Info("extraction_run started", "run_id", run.ID, "filename", in.Filename, "format", in.Format)
	return run, nil
}

func (r *sqliteRunRepo) FinishSuccess(ctx context.Context, id uuid.UUID, res *entity.ExtractionResult) error {
	o, err := successOutcome(res)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE extraction_runs SET status = ?, attempts = ?, confidence = ?, needs_review = ?,
		 result_json = ?, finished_at = ? WHERE id = ?`,
		string(o.status), o.attempts, o.confidence, o.review, string(o.payload), formatTime(time.Now()), id.String())
	if err != nil {
		r.log.Error("extraction_run finish(OK) failed", "run_id", id, "err", err)
		return err
	}
	r.log.Info("extraction_run finished", "run_id", id, "status", o.status, "confidence", o.confidence)
	return nil
}

func (r *sqliteRunRepo) FinishFailure(ctx context.Context, id uuid.UUID, attempts int, message string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE extraction_runs SET status = ?, attempts = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(constants.RunStatusFailed), attempts, message, formatTime(time.Now()), id.String())
	if err != nil {
		r.log.Error("extraction_run finish(FAILED) failed", "run_id", id, "err", err)
		return err
	}
	r.log.Warn("extraction_run finished (FAILED)", "run_id", id, "error", message)
	return nil
}

func (r *sqliteRunRepo) Get(ctx context.Context, id uuid.UUID) (*entity.ExtractionRun, error) {
	run, err := scanSQLiteRun(r.db.QueryRowContext(ctx, sqliteSelectRun+` WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

func (r *sqliteRunRepo) ListRecent(ctx context.Context, limit int) ([]entity.ExtractionRun, error) {
	rows, err := r.db.QueryContext(ctx, sqliteSelectRun+` ORDER BY started_at DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []entity.ExtractionRun
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row scanner) (*entity.ExtractionRun, error) {
	var (
		run        entity.ExtractionRun
		id         string
		clientName sql.NullString
		confidence sql.NullFloat64
		errMsg     sql.NullString
		result     sql.NullString
		modelName  sql.NullString
		startedAt  string
		finishedAt sql.NullString
	)
	err := row.Scan(&id, &run.Filename, &run.Format, &clientName, &run.Status, &run.Attempts,
		&confidence, &run.NeedsReview, &errMsg, &result, &modelName, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if run.StartedAt, err = time.Parse(sqliteTimeLayout, startedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t, err := time.Parse(sqliteTimeLayout, finishedAt.String)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &t
	}
	if clientName.Valid {
		run.ClientName = &clientName.String
	}
	if confidence.Valid {
		run.Confidence = &confidence.Float64
	}
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	if modelName.Valid {
		run.ModelName = &modelName.String
	}
	if result.Valid {
		run.ResultJSON = []byte(result.String)
	}
	return &run, nil
}

// fixed width so text ordering matches time ordering
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}
