package config

import (
	"os"
	"strconv"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// AgentConfig points at the agent-service that hosts the LLM endpoints
// (/classify, /extract_events, /embed, /chat).
type AgentConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SearchConfig tunes the hybrid ranking weights. Weights are normalized at
// load time, so they only need to be relative.
type SearchConfig struct {
	KeywordWeight float64 `yaml:"keyword_weight"`
	BM25Weight    float64 `yaml:"bm25_weight"`
	VectorWeight  float64 `yaml:"vector_weight"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	MQ     MQConfig     `yaml:"mq"`
	Redis  RedisConfig  `yaml:"redis"`
	JWT    JWTConfig    `yaml:"jwt"`
	MinIO  MinIOConfig  `yaml:"minio"`
	Agent  AgentConfig  `yaml:"agent"`
	Search SearchConfig `yaml:"search"`
}

// OverrideFromEnv applies environment variable overrides. Env always wins
// over file values so container deployments can reconfigure without
// touching the yaml.
func (c *Config) OverrideFromEnv() {
	if host := os.Getenv("DB_HOST"); host != "" {
		c.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		c.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		c.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		c.DB.Name = name
	}
	if url := os.Getenv("MQ_URL"); url != "" {
		c.MQ.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		c.MinIO.Endpoint = endpoint
	}
	if key := os.Getenv("MINIO_ACCESS_KEY"); key != "" {
		c.MinIO.AccessKey = key
	}
	if key := os.Getenv("MINIO_SECRET_KEY"); key != "" {
		c.MinIO.SecretKey = key
	}
	if bucket := os.Getenv("MINIO_BUCKET"); bucket != "" {
		c.MinIO.Bucket = bucket
	}
	if url := os.Getenv("AGENT_BASE_URL"); url != "" {
		c.Agent.BaseURL = url
	}
}

// GetEnv returns an environment variable or a default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv returns the active config environment (CONFIG_ENV, default
// "local").
func GetConfigEnv() string {
	return GetEnv("CONFIG_ENV", "local")
}
