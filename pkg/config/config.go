// Package config loads pipeline configuration from a YAML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// OllamaConfig configures the model endpoint.
type OllamaConfig struct {
	BaseURL     string  `yaml:"base_url"`
	EmbedModel  string  `yaml:"embed_model"`
	ChatModel   string  `yaml:"chat_model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	RPS         float64 `yaml:"rps"`
	Burst       int     `yaml:"burst"`
}

// QdrantConfig contains connection details for the vector store.
type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
	Dims       int    `yaml:"dims"`
}

// PipelineConfig tunes the extraction loop.
type PipelineConfig struct {
	TopK         int  `yaml:"top_k"`
	MaxDocLength int  `yaml:"max_doc_length"`
	Streaming    bool `yaml:"streaming"`
}

// NATSConfig enables message-bus input/output when URL is set.
type NATSConfig struct {
	URL           string `yaml:"url"`
	DocSubject    string `yaml:"doc_subject"`
	RecordSubject string `yaml:"record_subject"`
}

// Neo4jConfig enables the graph sink when URL is set.
type Neo4jConfig struct {
	URL  string `yaml:"url"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
}

// OutputConfig configures file output.
type OutputConfig struct {
	CSVPath string `yaml:"csv_path"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Ollama      OllamaConfig   `yaml:"ollama"`
	Qdrant      QdrantConfig   `yaml:"qdrant"`
	Pipeline    PipelineConfig `yaml:"pipeline"`
	NATS        NATSConfig     `yaml:"nats"`
	Neo4j       Neo4jConfig    `yaml:"neo4j"`
	Output      OutputConfig   `yaml:"output"`
	CorpusPath  string         `yaml:"corpus_path"`
	MetricsPort int            `yaml:"metrics_port"`
}

// Load reads the config at path. A missing file yields defaults; environment
// overrides apply either way.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			EmbedModel:  "nomic-embed-text",
			ChatModel:   "llama3.1:8b",
			TimeoutSecs: 120,
		},
		Qdrant: QdrantConfig{
			Addr:       "localhost:6334",
			Collection: "adr_examples",
			Dims:       768,
		},
		Pipeline: PipelineConfig{
			TopK:         2,
			MaxDocLength: 2000,
			Streaming:    true,
		},
		NATS: NATSConfig{
			DocSubject:    "adr.documents",
			RecordSubject: "adr.records",
		},
		Output: OutputConfig{
			CSVPath: "extractions.csv",
		},
		CorpusPath:  "corpus.csv",
		MetricsPort: 9100,
	}
}

func applyDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = def.Ollama.BaseURL
	}
	if cfg.Ollama.EmbedModel == "" {
		cfg.Ollama.EmbedModel = def.Ollama.EmbedModel
	}
	if cfg.Ollama.ChatModel == "" {
		cfg.Ollama.ChatModel = def.Ollama.ChatModel
	}
	if cfg.Ollama.TimeoutSecs <= 0 {
		cfg.Ollama.TimeoutSecs = def.Ollama.TimeoutSecs
	}
	if cfg.Qdrant.Addr == "" {
		cfg.Qdrant.Addr = def.Qdrant.Addr
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = def.Qdrant.Collection
	}
	if cfg.Qdrant.Dims <= 0 {
		cfg.Qdrant.Dims = def.Qdrant.Dims
	}
	if cfg.Pipeline.TopK <= 0 {
		cfg.Pipeline.TopK = def.Pipeline.TopK
	}
	if cfg.Pipeline.MaxDocLength <= 0 {
		cfg.Pipeline.MaxDocLength = def.Pipeline.MaxDocLength
	}
	if cfg.NATS.DocSubject == "" {
		cfg.NATS.DocSubject = def.NATS.DocSubject
	}
	if cfg.NATS.RecordSubject == "" {
		cfg.NATS.RecordSubject = def.NATS.RecordSubject
	}
	if cfg.Output.CSVPath == "" {
		cfg.Output.CSVPath = def.Output.CSVPath
	}
	if cfg.CorpusPath == "" {
		cfg.CorpusPath = def.CorpusPath
	}
	if cfg.MetricsPort <= 0 {
		cfg.MetricsPort = def.MetricsPort
	}
}

// applyEnv lets deployment environments override connection endpoints without
// editing the config file.
func applyEnv(cfg *AppConfig) {
	setStr(&cfg.Ollama.BaseURL, "OLLAMA_URL")
	setStr(&cfg.Ollama.EmbedModel, "EMBED_MODEL")
	setStr(&cfg.Ollama.ChatModel, "CHAT_MODEL")
	setStr(&cfg.Qdrant.Addr, "QDRANT_URL")
	setStr(&cfg.Qdrant.Collection, "QDRANT_COLLECTION")
	setStr(&cfg.NATS.URL, "NATS_URL")
	setStr(&cfg.Neo4j.URL, "NEO4J_URL")
	setStr(&cfg.Neo4j.User, "NEO4J_USER")
	setStr(&cfg.Neo4j.Pass, "NEO4J_PASS")
	setStr(&cfg.CorpusPath, "CORPUS_PATH")
	setInt(&cfg.MetricsPort, "METRICS_PORT")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
