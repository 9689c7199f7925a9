// Command extract loads the labeled corpus into the vector store, then
// serves documents through the adverse-drug-reaction extraction loop:
// retrieve similar examples, prompt the model, repair the reply into a
// complete record, and deliver it to the configured sinks.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/medsift/adr-engine/engine/examples"
	"github.com/medsift/adr-engine/engine/graph"
	"github.com/medsift/adr-engine/engine/pipeline"
	"github.com/medsift/adr-engine/engine/semantic"
	"github.com/medsift/adr-engine/engine/sink"
	"github.com/medsift/adr-engine/engine/source"
	"github.com/medsift/adr-engine/pkg/config"
	"github.com/medsift/adr-engine/pkg/metrics"
	"github.com/medsift/adr-engine/pkg/ollama"
)

var met = metrics.New()

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "config file path")
		corpusPath = flag.String("corpus", "", "labeled corpus CSV (overrides config)")
		docsDir    = flag.String("docs", "", "directory of .txt documents to process")
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
	if *corpusPath != "" {
		cfg.CorpusPath = *corpusPath
	}

	met.ServeAsync(cfg.MetricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Vector store
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
	logger.Info("connected to Qdrant", "collection", cfg.Qdrant.Collection, "dims", cfg.Qdrant.Dims)

	// Model client
	ollamaOpts := []ollama.Option{ollama.WithTimeout(time.Duration(cfg.Ollama.TimeoutSecs) * time.Second)}
	if cfg.Ollama.RPS > 0 {
		burst := cfg.Ollama.Burst
		if burst < 1 {
			burst = 1
		}
		ollamaOpts = append(ollamaOpts, ollama.WithRateLimit(cfg.Ollama.RPS, burst))
	}
	llm := ollama.New(cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel, cfg.Ollama.ChatModel, ollamaOpts...)

	store := examples.New(llm, vs, logger)

	// Optional NATS
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL)
		if err != nil {
			logger.Error("nats connect failed", "err", err)
			os.Exit(1)
		}
		defer nc.Close()
		logger.Info("connected to NATS", "url", cfg.NATS.URL)
	}

	// Sinks
	sinks := []sink.Sink{
		sink.NewConsole(os.Stdout),
		sink.NewCSV(cfg.Output.CSVPath),
	}
	if nc != nil {
		sinks = append(sinks, sink.NewNATS(nc, cfg.NATS.RecordSubject))
	}
	if cfg.Neo4j.URL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URL, neo4j.BasicAuth(cfg.Neo4j.User, cfg.Neo4j.Pass, ""))
		if err != nil {
			logger.Error("neo4j connect failed", "err", err)
			os.Exit(1)
		}
		defer driver.Close(ctx)
		if err := driver.VerifyConnectivity(ctx); err != nil {
			logger.Error("neo4j verify failed", "err", err)
			os.Exit(1)
		}
		sinks = append(sinks, sink.NewGraph(graph.New(driver)))
		logger.Info("connected to Neo4j")
	}

	// Document source
	var src source.Source
	switch {
	case *docsDir != "":
		src, err = source.NewDir(*docsDir, logger)
		if err != nil {
			logger.Error("document directory unreadable", "dir", *docsDir, "err", err)
			os.Exit(1)
		}
	case nc != nil:
		natsSrc, err := source.NewNATS(nc, cfg.NATS.DocSubject)
		if err != nil {
			logger.Error("nats subscribe failed", "err", err)
			os.Exit(1)
		}
		defer natsSrc.Close()
		src = natsSrc
	default:
		logger.Error("no document source: pass -docs or configure nats.url")
		os.Exit(1)
	}

	opts := pipeline.DefaultOptions()
	opts.TopK = cfg.Pipeline.TopK
	opts.MaxDocLength = cfg.Pipeline.MaxDocLength
	opts.Streaming = cfg.Pipeline.Streaming

	svc := pipeline.New(src, store, llm, sink.NewMulti(logger, sinks...), opts, logger, met)

	if err := svc.LoadCorpus(ctx, cfg.CorpusPath); err != nil {
		logger.Error("corpus load failed", "path", cfg.CorpusPath, "err", err)
		os.Exit(1)
	}

	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("pipeline stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
