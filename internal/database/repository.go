package database

import (
	"context"
	"fmt"
	"time"
)

// ==================== EVALUATIONS ====================

// CreateEvaluation persists an evaluation record
func (db *DB) CreateEvaluation(ctx context.Context, eval *SignalEvaluation) error {
	query := `
		INSERT INTO signal_evaluations (
			id, symbol, signal, base_confidence, confidence, structure_score,
			reward_weight, stop_loss, target_1, target_2, target_3,
			state_key, policy_mode, explanation, evaluated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`

	var t1, t2, t3 *float64
	if len(eval.Targets) > 0 {
		t1 = &eval.Targets[0]
	}
	if len(eval.Targets) > 1 {
		t2 = &eval.Targets[1]
	}
	if len(eval.Targets) > 2 {
		t3 = &eval.Targets[2]
	}

	_, err := db.Pool.Exec(ctx, query,
		eval.ID,
		eval.Symbol,
		eval.Signal,
		eval.BaseConfidence,
		eval.Confidence,
		eval.StructureScore,
		eval.RewardWeight,
		eval.StopLoss,
		t1, t2, t3,
		eval.StateKey,
		eval.PolicyMode,
		eval.Explanation,
		eval.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	return nil
}

// GetEvaluationByID retrieves one evaluation
func (db *DB) GetEvaluationByID(ctx context.Context, id string) (*SignalEvaluation, error) {
	query := `
		SELECT id, symbol, signal, base_confidence, confidence, structure_score,
			reward_weight, stop_loss, target_1, target_2, target_3,
			state_key, policy_mode, explanation, evaluated_at, created_at
		FROM signal_evaluations WHERE id = $1`

	eval := &SignalEvaluation{}
	var t1, t2, t3 *float64
	err := db.Pool.QueryRow(ctx, query, id).Scan(
		&eval.ID, &eval.Symbol, &eval.Signal, &eval.BaseConfidence,
		&eval.Confidence, &eval.StructureScore, &eval.RewardWeight,
		&eval.StopLoss, &t1, &t2, &t3,
		&eval.StateKey, &eval.PolicyMode, &eval.Explanation,
		&eval.EvaluatedAt, &eval.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation %s: %w", id, err)
	}
	for _, t := range []*float64{t1, t2, t3} {
		if t != nil {
			eval.Targets = append(eval.Targets, *t)
		}
	}
	return eval, nil
}

// ==================== OUTCOMES ====================

// CreateOutcome records a resolved trade outcome
func (db *DB) CreateOutcome(ctx context.Context, outcome *SignalOutcome) error {
	query := `
		INSERT INTO signal_outcomes (
			evaluation_id, symbol, action, state_key, return_percent,
			win, hit_status, reported_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		) RETURNING id`

	if outcome.ReportedAt.IsZero() {
		outcome.ReportedAt = time.Now()
	}

	err := db.Pool.QueryRow(ctx, query,
		outcome.EvaluationID,
		outcome.Symbol,
		outcome.Action,
		outcome.StateKey,
		outcome.ReturnPercent,
		outcome.Win,
		outcome.HitStatus,
		outcome.ReportedAt,
	).Scan(&outcome.ID)
	if err != nil {
		return fmt.Errorf("failed to create outcome: %w", err)
	}
	return nil
}

// GetUntrainedOutcomes returns outcomes not yet consumed by batch training,
// oldest first
func (db *DB) GetUntrainedOutcomes(ctx context.Context, limit int) ([]*SignalOutcome, error) {
	query := `
		SELECT id, evaluation_id, symbol, action, state_key, return_percent,
			win, hit_status, trained, reported_at, created_at
		FROM signal_outcomes
		WHERE trained = FALSE
		ORDER BY reported_at ASC
		LIMIT $1`

	rows, err := db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query untrained outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*SignalOutcome
	for rows.Next() {
		o := &SignalOutcome{}
		err := rows.Scan(
			&o.ID, &o.EvaluationID, &o.Symbol, &o.Action, &o.StateKey,
			&o.ReturnPercent, &o.Win, &o.HitStatus, &o.Trained,
			&o.ReportedAt, &o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// MarkOutcomesTrained flags a batch of outcomes as consumed by training
func (db *DB) MarkOutcomesTrained(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE signal_outcomes SET trained = TRUE WHERE id = ANY($1)`
	if _, err := db.Pool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to mark outcomes trained: %w", err)
	}
	return nil
}

// GetOutcomeStats returns win/loss counts per symbol over the lookback window
func (db *DB) GetOutcomeStats(ctx context.Context, symbol string, since time.Time) (wins, losses int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE win) AS wins,
			COUNT(*) FILTER (WHERE NOT win) AS losses
		FROM signal_outcomes
		WHERE symbol = $1 AND reported_at >= $2`

	err = db.Pool.QueryRow(ctx, query, symbol, since).Scan(&wins, &losses)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get outcome stats for %s: %w", symbol, err)
	}
	return wins, losses, nil
}
