package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func init() {
	// Best effort; a missing .env file is fine.
	_ = godotenv.Load()
}

// applyEnv overrides cfg fields from environment variables. Environment
// always wins over the YAML file.
func applyEnv(cfg *Config) {
	cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")

	setEnvString(&cfg.Environment, "KOTAE_ENV")
	setEnvString(&cfg.Server.Host, "KOTAE_HOST")
	setEnvInt(&cfg.Server.Port, "KOTAE_PORT", "PORT")
	setEnvString(&cfg.Storage.DataDir, "DATA_DIR")
	setEnvString(&cfg.Embedding.BaseURL, "OPENAI_BASE_URL")
	setEnvString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setEnvString(&cfg.LLM.BaseURL, "OLLAMA_BASE_URL")
	setEnvString(&cfg.LLM.Model, "OLLAMA_MODEL")
	setEnvInt(&cfg.Retrieval.TopK, "TOP_K")
	setEnvInt(&cfg.Retrieval.ChunkSize, "CHUNK_SIZE")
	setEnvInt(&cfg.Retrieval.ChunkOverlap, "CHUNK_OVERLAP")

	if v := os.Getenv("KOTAE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}
}

func setEnvString(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
			return
		}
	}
}

func setEnvInt(dst *int, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
			return
		}
	}
}
