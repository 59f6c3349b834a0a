// Command matchingengine starts the matching engine process: it wires
// together configuration, logging, metrics, the trade/order-book
// publisher and the Exchange itself, then serves a small HTTP surface
// for submitting orders and scraping metrics. A simulator, benchmark
// harness, or dashboard that drives this process is a separate concern,
// out of scope here.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lightningex/matchingengine/config"
	"github.com/lightningex/matchingengine/domain"
	"github.com/lightningex/matchingengine/matching"
	"github.com/lightningex/matchingengine/metrics"
	"github.com/lightningex/matchingengine/orderbook"
	"github.com/lightningex/matchingengine/publish"
)

func main() {
	cfg := config.FromEnv()

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "matchingengine: building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	var recorder publish.Recorder
	var publisher publish.Publisher
	if cfg.RedisAddr != "" {
		bus, err := publish.NewRedisBus(cfg.RedisAddr, logger)
		if err != nil {
			logger.Fatal("matchingengine: connecting to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer bus.Close()
		recorder, publisher = bus, bus
	} else {
		bus := publish.NewMemoryBus()
		recorder, publisher = bus, bus
	}

	exchange := matching.NewExchange(matching.ExchangeConfig{
		Recorder:          recorder,
		Publisher:         publisher,
		PublishThrottleMs: cfg.PublishThrottleMs,
		IndexKind:         orderbook.HashMapListIndex,
		Logger:            logger,
		Metrics:           m,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/orders", submitHandler(exchange, logger))

	server := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("matchingengine: listening", zap.String("addr", cfg.MetricsAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("matchingengine: server exited", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("matchingengine: graceful shutdown failed", zap.Error(err))
	}
}

// orderRequest is the wire shape accepted by POST /orders.
type orderRequest struct {
	Symbol   string `json:"symbol"`
	UserID   int64  `json:"user_id"`
	Side     string `json:"side"`
	Price    int64  `json:"price"`
	Qty      int64  `json:"qty"`
}

func submitHandler(exchange *matching.Exchange, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req orderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Symbol == "" {
			http.Error(w, "symbol is required", http.StatusBadRequest)
			return
		}

		var side domain.Side
		switch req.Side {
		case "buy":
			side = domain.SideBuy
		case "sell":
			side = domain.SideSell
		default:
			http.Error(w, "side must be \"buy\" or \"sell\"", http.StatusBadRequest)
			return
		}

		outcome, err := exchange.Submit(r.Context(), req.Symbol, matching.SubmitRequest{
			OrderType: domain.OrderTypeLimit,
			UserID:    req.UserID,
			Side:      side,
			Price:     req.Price,
			Qty:       req.Qty,
		})
		if err != nil {
			// A non-nil error out of Submit only ever signals internal
			// state corruption, never a caller-input problem (those come
			// back as Outcome.Status == StatusError with no Go error).
			// That leaves this engine instance's state untrustworthy, so
			// the process halts rather than keep serving from it.
			logger.Fatal("matchingengine: engine state corruption, halting", zap.String("symbol", req.Symbol), zap.Error(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(outcome)
	}
}
