package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sensiml/piccolo-sub000/internal/compiler"
)

// LoadPipeline retrieves a pipeline by id or by name.
// Returns an error wrapping ErrNotFound if neither matches.
func (s *Store) LoadPipeline(ctx context.Context, ref string) (PipelineRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, definition, pipeline_hash, created_at, updated_at
		FROM pipelines
		WHERE id = ? OR name = ?
		ORDER BY id = ? DESC
		LIMIT 1
	`, ref, ref, ref)

	rec, err := scanPipeline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PipelineRecord{}, fmt.Errorf("load pipeline %q: %w", ref, ErrNotFound)
	}
	if err != nil {
		return PipelineRecord{}, fmt.Errorf("load pipeline %q: %w", ref, err)
	}
	return rec, nil
}

// ListPipelines returns every stored pipeline ordered by name.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListPipelines(ctx context.Context) ([]PipelineRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, definition, pipeline_hash, created_at, updated_at
		FROM pipelines
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pipelines: %w", err)
	}
	defer rows.Close()

	records := []PipelineRecord{}
	for rows.Next() {
		rec, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipelines: %w", err)
	}
	return records, nil
}

// LatestPlan returns the most recently saved plan of a pipeline.
func (s *Store) LatestPlan(ctx context.Context, pipelineID string) (PlanRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pipeline_id, plan_hash, pipeline_hash, engine_version, valid, violations, body, created_at
		FROM plans
		WHERE pipeline_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, pipelineID)

	rec, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PlanRecord{}, fmt.Errorf("latest plan of %q: %w", pipelineID, ErrNotFound)
	}
	if err != nil {
		return PlanRecord{}, fmt.Errorf("latest plan of %q: %w", pipelineID, err)
	}
	return rec, nil
}

// ListPlans returns the plans of a pipeline, oldest first.
func (s *Store) ListPlans(ctx context.Context, pipelineID string) ([]PlanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pipeline_id, plan_hash, pipeline_hash, engine_version, valid, violations, body, created_at
		FROM plans
		WHERE pipeline_id = ?
		ORDER BY created_at ASC, id ASC
	`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	records := []PlanRecord{}
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return records, nil
}

// Decode parses the stored plan body.
func (r PlanRecord) Decode() (*compiler.Plan, error) {
	var plan compiler.Plan
	if err := json.Unmarshal([]byte(r.Body), &plan); err != nil {
		return nil, fmt.Errorf("decode plan %d: %w", r.ID, err)
	}
	return &plan, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPipeline(row scanner) (PipelineRecord, error) {
	var (
		rec        PipelineRecord
		definition string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &definition, &rec.Hash, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return PipelineRecord{}, err
	}
	p, err := unmarshalPipeline(definition)
	if err != nil {
		return PipelineRecord{}, fmt.Errorf("pipeline %s: %w", rec.ID, err)
	}
	rec.Pipeline = p
	return rec, nil
}

func scanPlan(row scanner) (PlanRecord, error) {
	var (
		rec   PlanRecord
		valid int
	)
	err := row.Scan(&rec.ID, &rec.PipelineID, &rec.PlanHash, &rec.PipelineHash,
		&rec.EngineVersion, &valid, &rec.Violations, &rec.Body, &rec.CreatedAt)
	if err != nil {
		return PlanRecord{}, err
	}
	rec.Valid = valid != 0
	return rec, nil
}
