// Command api exposes the extraction pipeline over HTTP. Each request runs a
// single document through retrieval, generation, and repair, and returns the
// completed record as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/medsift/adr-engine/engine/domain"
	"github.com/medsift/adr-engine/engine/examples"
	"github.com/medsift/adr-engine/engine/pipeline"
	"github.com/medsift/adr-engine/engine/semantic"
	"github.com/medsift/adr-engine/engine/sink"
	"github.com/medsift/adr-engine/engine/source"
	"github.com/medsift/adr-engine/pkg/config"
	"github.com/medsift/adr-engine/pkg/metrics"
	"github.com/medsift/adr-engine/pkg/mid"
	"github.com/medsift/adr-engine/pkg/ollama"
)

var met = metrics.New()

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "config file path")
		port       = flag.String("port", envOr("PORT", "8080"), "listen port")
		loadCorpus = flag.Bool("load-corpus", false, "reload the example store from the corpus on startup")
	)
	flag.Parse()

	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	met.ServeAsync(cfg.MetricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vs, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		logger.Error("qdrant connect failed", "err", err)
		os.Exit(1)
	}
	defer vs.Close()
	if err := vs.EnsureCollection(ctx, cfg.Qdrant.Dims); err != nil {
		logger.Error("qdrant ensure collection failed", "err", err)
		os.Exit(1)
	}

	llm := ollama.New(cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel, cfg.Ollama.ChatModel,
		ollama.WithTimeout(time.Duration(cfg.Ollama.TimeoutSecs)*time.Second))
	store := examples.New(llm, vs, logger)

	opts := pipeline.DefaultOptions()
	opts.TopK = cfg.Pipeline.TopK
	opts.MaxDocLength = cfg.Pipeline.MaxDocLength
	opts.Streaming = cfg.Pipeline.Streaming

	svc := pipeline.New(source.NewSlice(nil), store, llm, sink.NewMulti(logger), opts, logger, met)

	if *loadCorpus {
		if err := svc.LoadCorpus(ctx, cfg.CorpusPath); err != nil {
			logger.Error("corpus load failed", "path", cfg.CorpusPath, "err", err)
			os.Exit(1)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/extract", handleExtract(svc, logger))
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS("*"),
		mid.OTel("adr-api"),
	)

	srv := &http.Server{Addr: ":" + *port, Handler: handler}
	go func() {
		logger.Info("api starting", "port", *port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
	logger.Info("shutdown complete")
}

type extractRequest struct {
	Text string `json:"text"`
}

// extractor is the slice of the pipeline service the handler needs.
type extractor interface {
	ProcessOne(ctx context.Context, raw string) (domain.Record, error)
}

func handleExtract(svc extractor, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			http.Error(w, `{"error":"text required"}`, http.StatusBadRequest)
			return
		}

		rec, err := svc.ProcessOne(r.Context(), req.Text)
		switch {
		case errors.Is(err, pipeline.ErrEmptyDocument):
			http.Error(w, `{"error":"empty document"}`, http.StatusBadRequest)
			return
		case errors.Is(err, pipeline.ErrNoRelevantData):
			http.Error(w, `{"error":"no relevant data found"}`, http.StatusUnprocessableEntity)
			return
		case err != nil:
			logger.Error("extraction failed", "err", err)
			http.Error(w, `{"error":"extraction failed"}`, http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rec)
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
