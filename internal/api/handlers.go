package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"smc-signal-engine/internal/database"
	"smc-signal-engine/internal/market"
	"smc-signal-engine/internal/policy"
)

// SignalRequest carries one instrument's price history for evaluation
type SignalRequest struct {
	Symbol  string    `json:"symbol" binding:"required"`
	Closes  []float64 `json:"closes" binding:"required"`
	Highs   []float64 `json:"highs"`
	Lows    []float64 `json:"lows"`
	Volumes []float64 `json:"volumes"`
	Candle  struct {
		Open  float64 `json:"open"`
		High  float64 `json:"high"`
		Low   float64 `json:"low"`
		Close float64 `json:"close"`
	} `json:"candle"`
}

// handleSignal runs the evaluation pipeline for one instrument
func (s *Server) handleSignal(c *gin.Context) {
	var req SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	series := market.PriceSeries{
		Closes:  req.Closes,
		Highs:   req.Highs,
		Lows:    req.Lows,
		Volumes: req.Volumes,
	}
	candle := market.Candle{
		Open:  req.Candle.Open,
		High:  req.Candle.High,
		Low:   req.Candle.Low,
		Close: req.Candle.Close,
	}

	eval := s.engine.Evaluate(req.Symbol, series, candle)

	if s.db != nil {
		record := &database.SignalEvaluation{
			ID:             eval.ID,
			Symbol:         eval.Result.Symbol,
			Signal:         string(eval.Result.Signal),
			BaseConfidence: eval.BaseConfidence,
			Confidence:     eval.Result.Confidence,
			StructureScore: eval.Context.StructureConfidence,
			RewardWeight:   eval.RewardWeight,
			Targets:        eval.Result.Targets,
			StateKey:       eval.Policy.StateKey,
			PolicyMode:     string(eval.Policy.Mode),
			Explanation:    eval.Result.Explanation,
			EvaluatedAt:    eval.EvaluatedAt,
		}
		if eval.Result.StopLoss > 0 {
			stop := eval.Result.StopLoss
			record.StopLoss = &stop
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := s.db.CreateEvaluation(ctx, record); err != nil {
			s.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("failed to persist evaluation")
		}
	}

	successResponse(c, eval)
}

// OutcomeRequest reports one resolved trade back to the engine
type OutcomeRequest struct {
	Symbol        string         `json:"symbol" binding:"required"`
	Action        string         `json:"action" binding:"required"`
	ReturnPercent float64        `json:"return_percent"`
	Context       policy.Context `json:"context"`
	EvaluationID  string         `json:"evaluation_id"`
	HitStatus     string         `json:"hit_status"`
}

// handleOutcome feeds a resolved trade into the reward and policy layers
func (s *Server) handleOutcome(c *gin.Context) {
	var req OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if err := s.engine.RecordOutcome(req.Symbol, req.Context, req.Action, req.ReturnPercent); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if s.db != nil {
		record := &database.SignalOutcome{
			Symbol:        req.Symbol,
			Action:        req.Action,
			StateKey:      policy.EncodeState(req.Context),
			ReturnPercent: req.ReturnPercent,
			Win:           req.ReturnPercent > 0,
			HitStatus:     req.HitStatus,
			ReportedAt:    time.Now().UTC(),
		}
		if record.HitStatus == "" {
			record.HitStatus = "ACTIVE"
		}
		if req.EvaluationID != "" {
			id := req.EvaluationID
			record.EvaluationID = &id
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := s.db.CreateOutcome(ctx, record); err != nil {
			s.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("failed to persist outcome")
		}
	}

	memory, _ := s.engine.Reward().Get(req.Symbol)
	successResponse(c, gin.H{
		"symbol":        req.Symbol,
		"reward_weight": memory.Weight,
		"wins":          memory.Wins,
		"losses":        memory.Losses,
	})
}

// trainBatchLimit bounds one replay pull from outcome history.
const trainBatchLimit = 500

// TrainRequest carries a batch of resolved outcomes for policy training.
// With no samples the handler replays untrained outcomes from history.
type TrainRequest struct {
	Samples []policy.OutcomeSample `json:"samples"`
}

// handleTrain replays a batch of outcomes through the policy trainer
func (s *Server) handleTrain(c *gin.Context) {
	var req TrainRequest
	// An empty body is a replay request, not an error
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if len(req.Samples) > 0 {
		report := s.engine.TrainBatch(req.Samples)
		successResponse(c, report)
		return
	}

	if s.db == nil {
		errorResponse(c, http.StatusBadRequest, "no samples provided and outcome history is disabled")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	outcomes, err := s.db.GetUntrainedOutcomes(ctx, trainBatchLimit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load outcomes: "+err.Error())
		return
	}

	samples := make([]policy.StateSample, 0, len(outcomes))
	ids := make([]int64, 0, len(outcomes))
	for _, o := range outcomes {
		samples = append(samples, policy.StateSample{
			StateKey: o.StateKey,
			Action:   o.Action,
			Reward:   o.ReturnPercent,
		})
		ids = append(ids, o.ID)
	}

	report := s.engine.TrainPersisted(samples)

	// Skipped rows are marked consumed too so a malformed row cannot wedge
	// the replay loop.
	if err := s.db.MarkOutcomesTrained(ctx, ids); err != nil {
		s.logger.Warn().Err(err).Int("count", len(ids)).Msg("failed to mark outcomes trained")
	}

	successResponse(c, gin.H{
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"replayed":  len(ids),
	})
}

// handlePolicyState returns the current Q-table
func (s *Server) handlePolicyState(c *gin.Context) {
	pol := s.engine.Policy()
	successResponse(c, gin.H{
		"states": pol.Size(),
		"table":  pol.Snapshot(),
	})
}

// rewardStatsWindow is the lookback for historical win/loss counts.
const rewardStatsWindow = 30 * 24 * time.Hour

// handleRewardMemory returns the adaptive memory for one symbol, with
// win/loss history over the lookback window when outcome history is enabled
func (s *Server) handleRewardMemory(c *gin.Context) {
	symbol := c.Param("symbol")

	memory, ok := s.engine.Reward().Get(symbol)
	if !ok {
		errorResponse(c, http.StatusNotFound, "no outcomes recorded for "+symbol)
		return
	}

	resp := gin.H{
		"symbol": symbol,
		"memory": memory,
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		wins, losses, err := s.db.GetOutcomeStats(ctx, symbol, time.Now().Add(-rewardStatsWindow))
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to load outcome stats")
		} else {
			resp["history"] = gin.H{"wins": wins, "losses": losses}
		}
	}

	successResponse(c, resp)
}

// handleEvaluation returns one persisted evaluation record
func (s *Server) handleEvaluation(c *gin.Context) {
	if s.db == nil {
		errorResponse(c, http.StatusNotFound, "outcome history is disabled")
		return
	}

	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	eval, err := s.db.GetEvaluationByID(ctx, id)
	if err != nil {
		errorResponse(c, http.StatusNotFound, "evaluation not found: "+id)
		return
	}

	successResponse(c, eval)
}
