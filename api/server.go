// Package api はdosesimのAPIサーバー実装を提供します。
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/stsysd/dosesim/archive"
	"github.com/stsysd/dosesim/config"
	"github.com/stsysd/dosesim/logging"
	"github.com/stsysd/dosesim/metrics"
	"github.com/stsysd/dosesim/model"
	"github.com/stsysd/dosesim/store"
)

// Server はAPIサーバーの構造体です。
type Server struct {
	router  *http.ServeMux
	store   store.Store
	config  *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	archive archive.Store
	banding model.RiskBanding
}

// Option はServerの任意の依存を設定します。
type Option func(*Server)

// WithLogger はサーバーが使うロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics はメトリクスの記録先を設定します。
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithArchive は保存したシミュレーションのアーカイブ先を設定します。
func WithArchive(a archive.Store) Option {
	return func(s *Server) { s.archive = a }
}

// ErrorResponse はエラーレスポンスの構造体です。
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// writeJSONError はJSON形式でエラーレスポンスを返却します。
func (s *Server) writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{
		Error: message,
		Code:  statusCode,
	})
}

// writeJSON はvをJSONで返却します。
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Error encoding response", "error", err)
	}
}

// writeRequestError はリクエスト検証のエラーを400で返し、それ以外を500で返します。
func (s *Server) writeRequestError(w http.ResponseWriter, err error, message string) {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		s.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Error(message, "error", err)
	s.writeJSONError(w, "Internal Server Error", http.StatusInternalServerError)
}

// NewServer は新しいAPIサーバーインスタンスを生成します。
func NewServer(store store.Store, config *config.Config, opts ...Option) *Server {
	s := &Server{
		router: http.NewServeMux(),
		store:  store,
		config: config,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	banding, err := model.ParseRiskBanding(config.RiskBanding)
	if err != nil {
		s.logger.Warn("Falling back to two-tier risk banding", "error", err)
		banding = model.TwoTierBanding{}
	}
	s.banding = banding

	s.routes()
	return s
}

// routes はAPIエンドポイントのルーティングを設定します。
func (s *Server) routes() {
	// ヘルスチェックとメトリクスは認証不要
	s.handle(s.router, "GET /healthz", s.handleHealthCheck)
	s.router.Handle("GET /metrics", s.metrics.Handler())

	// すべての保護されたエンドポイントをまずセキュアなルータに登録
	secured := http.NewServeMux()

	// Substance endpoints
	s.handle(secured, "GET /api/v0/substances", s.handleListSubstances)
	s.handle(secured, "GET /api/v0/substances/{substance_id}", s.handleGetSubstance)

	// Simulation endpoints
	s.handle(secured, "POST /api/v0/simulate", s.handleSimulate)
	s.handle(secured, "POST /api/v0/compare", s.handleCompare)
	s.handle(secured, "GET /api/v0/simulations", s.handleListSimulations)
	s.handle(secured, "GET /api/v0/simulations/{simulation_id}", s.handleGetSimulation)
	s.handle(secured, "DELETE /api/v0/simulations/{simulation_id}", s.handleDeleteSimulation)

	// 認証ミドルウェアを適用し、メインルータにマウント
	s.router.Handle("/api/", s.authMiddleware(secured))

	// Chart endpoints - support both with and without .svg extension
	s.handle(s.router, "GET /s/{simulation_id}/chart.svg", s.handleGetChartSVG)
	s.handle(s.router, "GET /s/{simulation_id}/chart", s.handleGetChartSVG)
	s.handle(s.router, "GET /s/{simulation_id}/chart.png", s.handleGetChartPNG)
}

// handle はパターンをルート名としてリクエストを記録するハンドラーを登録します。
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, h))
}

// ServeHTTP はServer構造体をhttp.Handlerとして実装します。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealthCheck はヘルスチェックエンドポイントのハンドラーです。
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run はサーバーを指定されたアドレスで起動し、ctxがキャンセルされると停止します。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
