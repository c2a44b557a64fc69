package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	ctopics "github.com/radieske/casino-house/pkg/contracts/topics"
)

// Config centraliza variáveis de ambiente e parâmetros de execução do serviço
// Inclui conexões, tópicos, portas e os parâmetros da house
type Config struct {
	Env         string `env:"ENV" envDefault:"local"` // "local", "dev", "prod"
	ServiceName string `env:"SERVICE_NAME" envDefault:"house-service"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Conexões; POSTGRES_DSN vazio usa o store em memória, REDIS_ADDR/KAFKA_BROKERS vazios desligam cache e eventos
	PostgresDSN  string `env:"POSTGRES_DSN"`
	RedisAddr    string `env:"REDIS_ADDR"`
	KafkaBrokers string `env:"KAFKA_BROKERS"` // "a:9092,b:9092"

	// Tópicos
	TopicWagerCreated  string `env:"KAFKA_TOPIC_WAGER_CREATED"`
	TopicWagerResolved string `env:"KAFKA_TOPIC_WAGER_RESOLVED"`
	TopicFeesWithdrawn string `env:"KAFKA_TOPIC_FEES_WITHDRAWN"`

	// Portas do serviço
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8084"`    // API pública
	MetricsPort string `env:"METRICS_PORT" envDefault:"9100"` // /metrics e /healthz

	House House `envPrefix:"HOUSE_"`
}

// House agrupa os parâmetros do núcleo de liquidação
type House struct {
	Deployer         string        `env:"DEPLOYER,required,notEmpty"` // identidade que pode chamar Init e SetAdmin
	FeePolicy        string        `env:"FEE_POLICY" envDefault:"per_wager"`
	WagerTTL         time.Duration `env:"WAGER_TTL" envDefault:"24h"` // idade mínima para forçar resolução
	ApprovalCacheTTL time.Duration `env:"APPROVAL_CACHE_TTL" envDefault:"5m"`
	AccountDeposits  bool          `env:"ACCOUNT_DEPOSITS" envDefault:"false"` // expõe POST /accounts/deposit
}

// Load carrega as variáveis de ambiente aplicando os defaults
// Tópicos não informados caem nos nomes de pkg/contracts/topics
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.TopicWagerCreated == "" {
		cfg.TopicWagerCreated = ctopics.WagerCreated
	}
	if cfg.TopicWagerResolved == "" {
		cfg.TopicWagerResolved = ctopics.WagerResolved
	}
	if cfg.TopicFeesWithdrawn == "" {
		cfg.TopicFeesWithdrawn = ctopics.FeesWithdrawn
	}
	return cfg, nil
}
