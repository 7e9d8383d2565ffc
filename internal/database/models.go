package database

import "time"

// SignalEvaluation is the persisted record of one engine evaluation.
type SignalEvaluation struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Signal         string    `json:"signal"`
	BaseConfidence int       `json:"base_confidence"`
	Confidence     int       `json:"confidence"`
	StructureScore int       `json:"structure_score"`
	RewardWeight   float64   `json:"reward_weight"`
	StopLoss       *float64  `json:"stop_loss,omitempty"`
	Targets        []float64 `json:"targets,omitempty"`
	StateKey       string    `json:"state_key"`
	PolicyMode     string    `json:"policy_mode"`
	Explanation    string    `json:"explanation"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// SignalOutcome is a resolved trade reported back by the caller.
type SignalOutcome struct {
	ID            int64     `json:"id"`
	EvaluationID  *string   `json:"evaluation_id,omitempty"`
	Symbol        string    `json:"symbol"`
	Action        string    `json:"action"`
	StateKey      string    `json:"state_key"`
	ReturnPercent float64   `json:"return_percent"`
	Win           bool      `json:"win"`
	HitStatus     string    `json:"hit_status"`
	Trained       bool      `json:"trained"`
	ReportedAt    time.Time `json:"reported_at"`
	CreatedAt     time.Time `json:"created_at"`
}
