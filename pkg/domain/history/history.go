// Package history persists finished training jobs in PostgreSQL.
// It is an optional audit trail: the serving path never reads it, and the
// orchestrator tolerates its absence.
package history

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/verdantlab/leafwise/pkg/domain"
)

// Entry is one recorded training job.
type Entry struct {
	JobID      string
	Label      string
	Status     string
	Message    string
	Accuracy   float64
	Classes    int
	StartedAt  time.Time
	FinishedAt time.Time
}

type Store struct {
	pool *pgxpool.Pool
}

// New connects to url and makes sure the history table exists.
func New(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(
		ctx,
		`
		create table if not exists "training_history" (
			"job_id" varchar(64) primary key,
			"label" varchar(256) not null,
			"status" varchar(32) not null,
			"message" text not null default '',
			"accuracy" double precision not null default 0,
			"classes" integer not null default 0,
			"started_at" timestamp with time zone not null,
			"finished_at" timestamp with time zone not null
		);
		`,
	); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// RecordTrainingJob stores one terminal job. Re-recording the same job id
// overwrites the earlier row.
func (s *Store) RecordTrainingJob(ctx context.Context, job domain.TrainingJob) error {
	accuracy := 0.0
	classes := 0
	if job.Result != nil {
		accuracy = job.Result.Accuracy
		classes = job.Result.Classes
	}

	_, err := s.pool.Exec(
		ctx,
		`
		insert into "training_history" (
			"job_id", "label", "status", "message",
			"accuracy", "classes", "started_at", "finished_at"
		) values ($1, $2, $3, $4, $5, $6, $7, $8)
		on conflict ("job_id") do update set
			"status" = excluded."status",
			"message" = excluded."message",
			"accuracy" = excluded."accuracy",
			"classes" = excluded."classes",
			"finished_at" = excluded."finished_at";
		`,
		job.ID, job.Label.String(), job.Status.String(), job.Message,
		accuracy, classes, job.StartedAt, job.FinishedAt,
	)
	return err
}

// Recent returns up to limit jobs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(
		ctx,
		`
		select
			"job_id", "label", "status", "message",
			"accuracy", "classes", "started_at", "finished_at"
		from "training_history"
		order by "finished_at" desc
		limit $1;
		`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.JobID, &e.Label, &e.Status, &e.Message,
			&e.Accuracy, &e.Classes, &e.StartedAt, &e.FinishedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
