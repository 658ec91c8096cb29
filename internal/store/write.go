package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sensiml/piccolo-sub000/internal/compiler"
	"github.com/sensiml/piccolo-sub000/internal/ir"
)

// PipelineRecord is a stored pipeline definition.
type PipelineRecord struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Hash      string       `json:"pipeline_hash"`
	Pipeline  *ir.Pipeline `json:"pipeline"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
}

// PlanRecord is a stored compiled plan.
type PlanRecord struct {
	ID            int64  `json:"id"`
	PipelineID    string `json:"pipeline_id"`
	PlanHash      string `json:"plan_hash"`
	PipelineHash  string `json:"pipeline_hash"`
	EngineVersion string `json:"engine_version"`
	Valid         bool   `json:"valid"`
	Violations    int    `json:"violations"`
	Body          string `json:"-"`
	CreatedAt     string `json:"created_at"`
}

// SavePipeline stores p under its name. Saving a name again replaces the
// definition and keeps the original id, so plans stay attached.
//
// The definition is stored as canonical JSON; the returned record carries
// a copy decoded back from it.
func (s *Store) SavePipeline(ctx context.Context, p *ir.Pipeline) (PipelineRecord, error) {
	if p.Name == "" {
		return PipelineRecord{}, fmt.Errorf("save pipeline: name is required")
	}
	definition, err := marshalPipeline(p)
	if err != nil {
		return PipelineRecord{}, fmt.Errorf("save pipeline %q: %w", p.Name, err)
	}
	hash, err := ir.PipelineHash(p)
	if err != nil {
		return PipelineRecord{}, fmt.Errorf("save pipeline %q: %w", p.Name, err)
	}

	now := s.now()
	rec := PipelineRecord{Name: p.Name, Hash: hash, UpdatedAt: now}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT id, created_at FROM pipelines WHERE name = ?`, p.Name,
		).Scan(&rec.ID, &rec.CreatedAt)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			rec.ID, rec.CreatedAt = s.ids.NewID(), now
			_, err = tx.ExecContext(ctx, `
				INSERT INTO pipelines (id, name, definition, pipeline_hash, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, rec.ID, p.Name, definition, hash, now, now)
		case err == nil:
			_, err = tx.ExecContext(ctx, `
				UPDATE pipelines SET definition = ?, pipeline_hash = ?, updated_at = ?
				WHERE id = ?
			`, definition, hash, now, rec.ID)
		}
		return err
	})
	if err != nil {
		return PipelineRecord{}, fmt.Errorf("save pipeline %q: %w", p.Name, err)
	}

	rec.Pipeline, err = unmarshalPipeline(definition)
	if err != nil {
		return PipelineRecord{}, err
	}
	return rec, nil
}

// SavePlan stores a compiled plan for a saved pipeline. Saving an identical
// plan again only refreshes its timestamp, so LatestPlan returns it.
func (s *Store) SavePlan(ctx context.Context, pipelineID string, plan *compiler.Plan) (PlanRecord, error) {
	body, err := plan.Canonical()
	if err != nil {
		return PlanRecord{}, fmt.Errorf("save plan: %w", err)
	}

	rec := PlanRecord{
		PipelineID:    pipelineID,
		PlanHash:      ir.PlanHash(body),
		PipelineHash:  plan.PipelineHash,
		EngineVersion: plan.EngineVersion,
		Valid:         plan.Valid(),
		Violations:    len(plan.Violations),
		Body:          string(body),
		CreatedAt:     s.now(),
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM pipelines WHERE id = ?`, pipelineID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("pipeline %q: %w", pipelineID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO plans
			(pipeline_id, plan_hash, pipeline_hash, engine_version, valid, violations, body, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(pipeline_id, plan_hash) DO UPDATE SET created_at = excluded.created_at
		`,
			rec.PipelineID,
			rec.PlanHash,
			rec.PipelineHash,
			rec.EngineVersion,
			boolToInt(rec.Valid),
			rec.Violations,
			rec.Body,
			rec.CreatedAt,
		)
		if err != nil {
			return err
		}

		return tx.QueryRowContext(ctx,
			`SELECT id FROM plans WHERE pipeline_id = ? AND plan_hash = ?`, pipelineID, rec.PlanHash,
		).Scan(&rec.ID)
	})
	if err != nil {
		return PlanRecord{}, fmt.Errorf("save plan: %w", err)
	}
	return rec, nil
}

// DeletePipeline removes a pipeline and its plans.
func (s *Store) DeletePipeline(ctx context.Context, ref string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipelines WHERE id = ? OR name = ?`, ref, ref)
	if err != nil {
		return fmt.Errorf("delete pipeline %q: %w", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pipeline %q: %w", ref, err)
	}
	if n == 0 {
		return fmt.Errorf("delete pipeline %q: %w", ref, ErrNotFound)
	}
	return nil
}
