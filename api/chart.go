package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/stsysd/dosesim/chart"
	"github.com/stsysd/dosesim/model"
)

// GetChartParams represents parameters for rendering a simulation chart.
type GetChartParams struct {
	SimulationParams *SimulationIDParams
	Width            int
	Height           int
}

// NewGetChartParams creates parameters for chart rendering from HTTP request.
func NewGetChartParams(r *http.Request) (*GetChartParams, error) {
	idParams, err := NewSimulationIDParams(r)
	if err != nil {
		return nil, err
	}

	query := r.URL.Query()
	width, err := parseDimension("width", query.Get("width"))
	if err != nil {
		return nil, err
	}
	height, err := parseDimension("height", query.Get("height"))
	if err != nil {
		return nil, err
	}

	return &GetChartParams{
		SimulationParams: idParams,
		Width:            width,
		Height:           height,
	}, nil
}

// parseDimension は画像サイズを解析します。空の場合は0 (既定値) を返します。
func parseDimension(field, v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 200 || n > 4000 {
		return 0, &model.ValidationError{Field: field, Message: "must be an integer between 200 and 4000"}
	}
	return n, nil
}

// loadChart は保存されたシミュレーションとチャートの描画オプションを用意します。
// 失敗した場合はエラーレスポンスを書き込みnilを返します。
func (s *Server) loadChart(w http.ResponseWriter, r *http.Request) (*model.Simulation, *chart.Options) {
	params, err := NewGetChartParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil
	}

	sim, err := s.store.GetSimulation(r.Context(), params.SimulationParams.SimulationID)
	if err != nil {
		if errors.Is(err, model.ErrSimulationNotFound) {
			http.Error(w, "Simulation not found", http.StatusNotFound)
		} else {
			s.logger.Error("Error retrieving simulation", "error", err)
			http.Error(w, "Failed to retrieve simulation", http.StatusInternalServerError)
		}
		return nil, nil
	}

	d := sim.Substance
	subtitle := fmt.Sprintf("%g mg", d.Dose)
	if d.Doses > 1 {
		subtitle = fmt.Sprintf("%d × %g mg every %g h", d.Doses, d.Dose, d.Frequency)
	}
	return sim, &chart.Options{
		Width:    params.Width,
		Height:   params.Height,
		Title:    d.Name,
		Subtitle: subtitle,
	}
}

// handleGetChartSVG は指定シミュレーションのチャートをSVGで返すハンドラーです。
func (s *Server) handleGetChartSVG(w http.ResponseWriter, r *http.Request) {
	sim, opts := s.loadChart(w, r)
	if sim == nil {
		return
	}

	svg := chart.RenderSVG(sim.Result(), opts)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write([]byte(svg)); err != nil {
		s.logger.Error("Error writing SVG response", "error", err)
	}
}

// handleGetChartPNG は指定シミュレーションのチャートをPNGで返すハンドラーです。
func (s *Server) handleGetChartPNG(w http.ResponseWriter, r *http.Request) {
	sim, opts := s.loadChart(w, r)
	if sim == nil {
		return
	}

	data, err := chart.RenderPNG(sim.Result(), opts)
	if err != nil {
		s.logger.Error("Error rendering PNG chart", "simulation_id", sim.ID, "error", err)
		http.Error(w, "Failed to render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Error writing PNG response", "error", err)
	}
}
