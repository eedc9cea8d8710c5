package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/stsysd/dosesim/model"
)

// handleListSubstances は物質の一覧 (名前、種類、説明) を返すハンドラーです。
func (s *Server) handleListSubstances(w http.ResponseWriter, r *http.Request) {
	substances, err := s.store.ListSubstances(r.Context())
	if err != nil {
		s.logger.Error("Error listing substances", "error", err)
		s.writeJSONError(w, "Failed to retrieve substances", http.StatusInternalServerError)
		return
	}

	summaries := lo.Map(substances, func(sub *model.Substance, _ int) model.SubstanceSummary {
		return sub.Summary()
	})
	s.writeJSON(w, http.StatusOK, summaries)
}

// GetSubstanceParams represents parameters for getting a substance.
type GetSubstanceParams struct {
	SubstanceID uuid.UUID
}

// NewGetSubstanceParams creates parameters for substance retrieval from HTTP request.
func NewGetSubstanceParams(r *http.Request) (*GetSubstanceParams, error) {
	id, err := model.ParseID("substance_id", r.PathValue("substance_id"))
	if err != nil {
		return nil, err
	}
	return &GetSubstanceParams{SubstanceID: id}, nil
}

// handleGetSubstance は特定のIDの物質を取得するハンドラーです。
func (s *Server) handleGetSubstance(w http.ResponseWriter, r *http.Request) {
	params, err := NewGetSubstanceParams(r)
	if err != nil {
		s.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := s.store.GetSubstance(r.Context(), params.SubstanceID)
	if err != nil {
		if errors.Is(err, model.ErrSubstanceNotFound) {
			s.writeJSONError(w, "Substance not found", http.StatusNotFound)
		} else {
			s.logger.Error("Error retrieving substance", "error", err)
			s.writeJSONError(w, "Failed to retrieve substance", http.StatusInternalServerError)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, sub)
}
