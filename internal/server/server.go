// Package server exposes a small HTTP surface for liveness checks and
// state inspection. It is read-mostly: the only mutating endpoint is
// /tick, which forces one scheduler cycle.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"grid-trader-go/internal/feed"
	"grid-trader-go/internal/models"
	"grid-trader-go/internal/state"

	"go.uber.org/zap"
)

// keep-alive self ping period, matches free-tier hosting idle limits
const keepAlivePeriod = 240 * time.Second

// Server wraps the status HTTP endpoints.
type Server struct {
	cfg    *models.Config
	store  *state.Store
	feed   feed.PriceFeed
	logger *zap.SugaredLogger

	// Tick forces one scheduler cycle, wired in main.
	Tick func() error

	httpServer *http.Server
	stopCh     chan struct{}
}

// New creates the status server.
func New(cfg *models.Config, store *state.Store, priceFeed feed.PriceFeed, logger *zap.SugaredLogger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		feed:   priceFeed,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/price", s.handlePrice)
	mux.HandleFunc("/tick", s.handleTick)
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Run serves until Stop is called. If public_url is configured a
// keep-alive goroutine pings it periodically so the host does not idle out.
func (s *Server) Run() {
	if s.cfg.PublicURL != "" {
		go s.keepAlive()
	}
	s.logger.Infof("HTTP status server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Errorf("HTTP server error: %v", err)
	}
}

// Stop shuts the server down.
func (s *Server) Stop() {
	close(s.stopCh)
	_ = s.httpServer.Close()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	snap := s.store.Snapshot()
	fmt.Fprintf(w, "grid-trader %s | auto=%v test=%v | cells=%d\n",
		s.cfg.Symbol, snap.AutoMode, snap.TestMode, len(snap.Cells))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		s.logger.Warnf("failed to encode status: %v", err)
	}
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.feed.Last(s.cfg.Symbol)
	if err != nil {
		http.Error(w, fmt.Sprintf("price unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"symbol": s.cfg.Symbol,
		"price":  price,
	})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if s.Tick == nil {
		http.Error(w, "tick not available", http.StatusServiceUnavailable)
		return
	}
	if err := s.Tick(); err != nil {
		http.Error(w, fmt.Sprintf("tick failed: %v", err), http.StatusInternalServerError)
		return
	}
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

// keepAlive pings the public URL so free hosting tiers keep the
// process warm between trading ticks.
func (s *Server) keepAlive() {
	client := &http.Client{Timeout: 10 * time.Second}
	ticker := time.NewTicker(keepAlivePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			resp, err := client.Get(s.cfg.PublicURL)
			if err != nil {
				s.logger.Debugf("keep-alive ping failed: %v", err)
				continue
			}
			resp.Body.Close()
		}
	}
}
