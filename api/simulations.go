package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stsysd/dosesim/metrics"
	"github.com/stsysd/dosesim/model"
	"github.com/stsysd/dosesim/pkpd"
	"github.com/stsysd/dosesim/store"
)

// MaxCompareRegimens は1回の比較で実行できる投与計画の最大数です。
const MaxCompareRegimens = 10

// SimulateParams represents parameters for running a simulation.
type SimulateParams struct {
	SubstanceID uuid.UUID
	Weight      float64
	Age         float64
	Regimen     *model.Regimen
}

// NewSimulateParams creates parameters for a simulation run from HTTP request.
func NewSimulateParams(r *http.Request, maxDuration float64) (*SimulateParams, error) {
	var requestBody struct {
		SubstanceID string   `json:"substanceId"`
		Weight      *float64 `json:"weight"`
		Age         *float64 `json:"age"`
		model.RegimenInput
	}

	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}

	substanceID, err := model.ParseID("substanceId", requestBody.SubstanceID)
	if err != nil {
		return nil, err
	}
	weight, age, err := parseSubject(requestBody.Weight, requestBody.Age)
	if err != nil {
		return nil, err
	}
	regimen, err := model.NewRegimen(requestBody.RegimenInput, maxDuration)
	if err != nil {
		return nil, err
	}

	return &SimulateParams{
		SubstanceID: substanceID,
		Weight:      weight,
		Age:         age,
		Regimen:     regimen,
	}, nil
}

// parseSubject は体重と年齢を検証します。体重の省略は0 (基準体重) として扱います。
func parseSubject(weight, age *float64) (float64, float64, error) {
	if age == nil {
		return 0, 0, &model.ValidationError{Field: "age", Message: "is required"}
	}
	if *age < 0 {
		return 0, 0, &model.ValidationError{Field: "age", Message: "must not be negative"}
	}
	if weight == nil {
		return 0, *age, nil
	}
	return *weight, *age, nil
}

// SimulateResponse はシミュレーション実行の成功レスポンスです。
type SimulateResponse struct {
	Success      bool         `json:"success"`
	SimulationID uuid.UUID    `json:"simulationId"`
	Simulation   *pkpd.Result `json:"simulation"`
}

// handleSimulate はシミュレーションを実行し、結果を保存するハンドラーです。
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	params, err := NewSimulateParams(r, s.config.MaxDurationHours)
	if err != nil {
		s.writeRequestError(w, err, "Error parsing simulation request")
		return
	}

	// エンジンの実行前に物質の存在を確認
	sub, ok := s.lookupSubstance(w, r, params.SubstanceID)
	if !ok {
		return
	}

	weight := s.effectiveWeight(params.Weight)

	start := time.Now()
	res, err := pkpd.Simulate(params.Regimen.Params(sub, weight, params.Age))
	if err != nil {
		s.writeEngineError(w, sub.Name, err)
		return
	}
	s.metrics.ObserveSimulation(sub.Name, metrics.OutcomeOK, time.Since(start), res.Stats.RiskScore)

	sim, err := model.NewSimulation(sub, weight, params.Age, *params.Regimen, res, s.banding)
	if err != nil {
		s.logger.Error("Error creating simulation record", "error", err)
		s.writeJSONError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := s.store.CreateSimulation(r.Context(), sim); err != nil {
		s.logger.Error("Error saving simulation", "error", err)
		s.writeJSONError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// アーカイブの失敗はリクエストを失敗させない
	if s.archive != nil {
		if key, err := s.archive.Put(r.Context(), sim); err != nil {
			s.logger.Warn("Error archiving simulation", "simulation_id", sim.ID, "error", err)
		} else {
			s.logger.Debug("Simulation archived", "simulation_id", sim.ID, "driver", s.archive.Driver(), "key", key)
		}
	}

	s.logger.Info("Simulation completed",
		"simulation_id", sim.ID,
		"substance", sub.Name,
		"risk_score", res.Stats.RiskScore,
		"risk_band", sim.Results.RiskBand,
	)
	s.writeJSON(w, http.StatusOK, SimulateResponse{
		Success:      true,
		SimulationID: sim.ID,
		Simulation:   res,
	})
}

// lookupSubstance は物質を取得します。見つからない場合はエラーレスポンスを書き込みfalseを返します。
func (s *Server) lookupSubstance(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*model.Substance, bool) {
	sub, err := s.store.GetSubstance(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrSubstanceNotFound) {
			s.metrics.ObserveSimulation("unknown", metrics.OutcomeNotFound, 0, 0)
			s.writeJSONError(w, "Substance not found", http.StatusNotFound)
		} else {
			s.logger.Error("Error retrieving substance", "error", err)
			s.writeJSONError(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return nil, false
	}
	return sub, true
}

// effectiveWeight は体重が0以下の場合に基準体重へ置き換え、警告を記録します。
func (s *Server) effectiveWeight(weight float64) float64 {
	w, replaced := pkpd.EffectiveWeight(weight)
	if replaced {
		s.logger.Warn("Non-positive weight replaced by reference weight", "weight", weight, "reference", w)
	}
	return w
}

// writeEngineError はエンジンのエラーをレスポンスに変換します。
func (s *Server) writeEngineError(w http.ResponseWriter, substance string, err error) {
	if errors.Is(err, pkpd.ErrInvalidParameter) {
		s.metrics.ObserveSimulation(substance, metrics.OutcomeInvalid, 0, 0)
		s.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.metrics.ObserveSimulation(substance, metrics.OutcomeError, 0, 0)
	s.logger.Error("Simulation failed", "substance", substance, "error", err)
	s.writeJSONError(w, "Internal Server Error", http.StatusInternalServerError)
}

// CompareParams represents parameters for comparing regimens.
type CompareParams struct {
	SubstanceID uuid.UUID
	Weight      float64
	Age         float64
	Regimens    []*model.Regimen
}

// NewCompareParams creates parameters for regimen comparison from HTTP request.
func NewCompareParams(r *http.Request, maxDuration float64) (*CompareParams, error) {
	var requestBody struct {
		SubstanceID string               `json:"substanceId"`
		Weight      *float64             `json:"weight"`
		Age         *float64             `json:"age"`
		Regimens    []model.RegimenInput `json:"regimens"`
	}

	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}

	substanceID, err := model.ParseID("substanceId", requestBody.SubstanceID)
	if err != nil {
		return nil, err
	}
	weight, age, err := parseSubject(requestBody.Weight, requestBody.Age)
	if err != nil {
		return nil, err
	}

	if len(requestBody.Regimens) == 0 || len(requestBody.Regimens) > MaxCompareRegimens {
		return nil, &model.ValidationError{
			Field:   "regimens",
			Message: fmt.Sprintf("must contain between 1 and %d regimens", MaxCompareRegimens),
		}
	}
	regimens := make([]*model.Regimen, len(requestBody.Regimens))
	for i, in := range requestBody.Regimens {
		regimen, err := model.NewRegimen(in, maxDuration)
		if err != nil {
			var validationErr *model.ValidationError
			if errors.As(err, &validationErr) {
				return nil, &model.ValidationError{
					Field:   fmt.Sprintf("regimens[%d].%s", i, validationErr.Field),
					Message: validationErr.Message,
				}
			}
			return nil, err
		}
		regimens[i] = regimen
	}

	return &CompareParams{
		SubstanceID: substanceID,
		Weight:      weight,
		Age:         age,
		Regimens:    regimens,
	}, nil
}

// CompareResult は比較した投与計画1件分の結果です。
type CompareResult struct {
	Regimen    model.Regimen  `json:"regimen"`
	RiskBand   model.RiskBand `json:"riskBand"`
	Simulation *pkpd.Result   `json:"simulation"`
}

// handleCompare は複数の投与計画を並行して実行し、結果を並べて返すハンドラーです。結果は保存しません。
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	params, err := NewCompareParams(r, s.config.MaxDurationHours)
	if err != nil {
		s.writeRequestError(w, err, "Error parsing compare request")
		return
	}

	sub, ok := s.lookupSubstance(w, r, params.SubstanceID)
	if !ok {
		return
	}
	weight := s.effectiveWeight(params.Weight)

	results := make([]CompareResult, len(params.Regimens))
	g, ctx := errgroup.WithContext(r.Context())
	for i, regimen := range params.Regimens {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := pkpd.Simulate(regimen.Params(sub, weight, params.Age))
			if err != nil {
				return fmt.Errorf("regimens[%d]: %w", i, err)
			}
			s.metrics.ObserveSimulation(sub.Name, metrics.OutcomeOK, time.Since(start), res.Stats.RiskScore)
			results[i] = CompareResult{
				Regimen:    *regimen,
				RiskBand:   s.banding.Band(res.Stats.RiskScore),
				Simulation: res,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.writeEngineError(w, sub.Name, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// ListSimulationsParams represents parameters for listing simulations.
type ListSimulationsParams struct {
	SubstanceID *uuid.UUID
	Pagination  *model.Pagination
}

// NewListSimulationsParams creates parameters for simulation listing from HTTP request.
func NewListSimulationsParams(r *http.Request) (*ListSimulationsParams, error) {
	query := r.URL.Query()

	substanceID, err := model.ParseOptionalID("substance_id", query.Get("substance_id"))
	if err != nil {
		return nil, err
	}
	pagination, err := model.NewPagination(query.Get("limit"), query.Get("offset"))
	if err != nil {
		return nil, err
	}

	return &ListSimulationsParams{
		SubstanceID: substanceID,
		Pagination:  pagination,
	}, nil
}

// handleListSimulations は保存されたシミュレーションを新しい順に返すハンドラーです。タイムラインは含みません。
func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	params, err := NewListSimulationsParams(r)
	if err != nil {
		s.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sims, err := s.store.ListSimulations(r.Context(), store.ListSimulationsParams{
		SubstanceID: params.SubstanceID,
		Pagination:  params.Pagination,
	})
	if err != nil {
		s.logger.Error("Error listing simulations", "error", err)
		s.writeJSONError(w, "Failed to retrieve simulations", http.StatusInternalServerError)
		return
	}
	if sims == nil {
		sims = []*model.Simulation{}
	}

	s.writeJSON(w, http.StatusOK, sims)
}

// SimulationIDParams represents parameters that identify a stored simulation.
type SimulationIDParams struct {
	SimulationID uuid.UUID
}

// NewSimulationIDParams creates parameters for simulation retrieval or deletion from HTTP request.
func NewSimulationIDParams(r *http.Request) (*SimulationIDParams, error) {
	id, err := model.ParseID("simulation_id", r.PathValue("simulation_id"))
	if err != nil {
		return nil, err
	}
	return &SimulationIDParams{SimulationID: id}, nil
}

// handleGetSimulation は特定のIDのシミュレーションをタイムライン付きで返すハンドラーです。
func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	params, err := NewSimulationIDParams(r)
	if err != nil {
		s.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sim, err := s.store.GetSimulation(r.Context(), params.SimulationID)
	if err != nil {
		if errors.Is(err, model.ErrSimulationNotFound) {
			s.writeJSONError(w, "Simulation not found", http.StatusNotFound)
		} else {
			s.logger.Error("Error retrieving simulation", "error", err)
			s.writeJSONError(w, "Failed to retrieve simulation", http.StatusInternalServerError)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, sim)
}

// handleDeleteSimulation は特定のIDのシミュレーションを削除するハンドラーです。
func (s *Server) handleDeleteSimulation(w http.ResponseWriter, r *http.Request) {
	params, err := NewSimulationIDParams(r)
	if err != nil {
		s.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteSimulation(r.Context(), params.SimulationID); err != nil {
		if errors.Is(err, model.ErrSimulationNotFound) {
			s.writeJSONError(w, "Simulation not found", http.StatusNotFound)
		} else {
			s.logger.Error("Error deleting simulation", "error", err)
			s.writeJSONError(w, "Failed to delete simulation", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
