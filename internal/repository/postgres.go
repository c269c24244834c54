package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/po-extractor/constants"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

type pgRunRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresRunRepository(pool *pgxpool.Pool, log *slog.Logger) RunRepository {
	return &pgRunRepo{pool: pool, log: log}
}

const pgSelectRun = `SELECT id, filename, format, client_name, status, attempts, confidence,
	needs_review, error_message, result_json, model_name, started_at, finished_at
	FROM extraction_runs`

func (r *pgRunRepo) Start(ctx context.Context, in StartRun) (*entity.ExtractionRun, error) {
	run := newRun(in)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO extraction_runs (id, filename, format, client_name, status, model_name, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID.String(), run.Filename, run.Format, run.ClientName, run.Status, run.ModelName, run.StartedAt)
	if err != nil {
		r.log.Error("extraction_run start failed", "filename", in.Filename, "err", err)
		return nil, err
	}
	r.log.Info("extraction_run started", "run_id", run.ID, "filename", in.Filename, "format", in.Format)
	return run, nil
}

func (r *pgRunRepo) FinishSuccess(ctx context.Context, id uuid.UUID, res *entity.ExtractionResult) error {
	o, err := successOutcome(res)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE extraction_runs SET status = $2, attempts = $3, confidence = $4, needs_review = $5,
		 result_json = $6, finished_at = $7 WHERE id = $1`,
		id.String(), string(o.status), o.attempts, o.confidence, o.review, string(o.payload), time.Now().UTC())
	if err != nil {
		r.log.Error("extraction_run finish(OK) failed", "run_id", id, "err", err)
		return err
	}
	r.log.Info("extraction_run finished", "run_id", id, "status", o.status, "confidence", o.confidence)
	return nil
}

func (r *pgRunRepo) FinishFailure(ctx context.Context, id uuid.UUID, attempts int, message string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE extraction_runs SET status = $2, attempts = $3, error_message = $4, finished_at = $5 WHERE id = $1`,
		id.String(), string(constants.RunStatusFailed), attempts, message, time.Now().UTC())
	if err != nil {
		r.log.Error("extraction_run finish(FAILED) failed", "run_id", id, "err", err)
		return err
	}
	r.log.Warn("extraction_run finished (FAILED)", "run_id", id, "error", message)
	return nil
}

func (r *pgRunRepo) Get(ctx context.Context, id uuid.UUID) (*entity.ExtractionRun, error) {
	run, err := scanPgRun(r.pool.QueryRow(ctx, pgSelectRun+` WHERE id = $1`, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

func (r *pgRunRepo) ListRecent(ctx context.Context, limit int) ([]entity.ExtractionRun, error) {
	rows, err := r.pool.Query(ctx, pgSelectRun+` ORDER BY started_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []entity.ExtractionRun
	for rows.Next() {
		run, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanPgRun(row pgx.Row) (*entity.ExtractionRun, error) {
	var (
		run    entity.ExtractionRun
		id     string
		result []byte
	)
	err := row.Scan(&id, &run.Filename, &run.Format, &run.ClientName, &run.Status, &run.Attempts,
		&run.Confidence, &run.NeedsReview, &run.ErrorMessage, &result, &run.ModelName,
		&run.StartedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	run.ResultJSON = result
	return &run, nil
}
