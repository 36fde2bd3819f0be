package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"agent-staffing/erlanga"
	"agent-staffing/erlangb"
	"agent-staffing/models"
	"agent-staffing/specfunc"
	"agent-staffing/staffing"
)

// Config holds the application configuration
type Config struct {
	Engine   EngineConfig
	Staffing StaffingConfig
	Server   ServerConfig
}

// EngineConfig holds the iteration ceilings and tolerances of the queueing models
type EngineConfig struct {
	GammaMaxIterations   int
	GammaEpsilon         float64
	SeriesMaxIterations  int
	SeriesEpsilon        float64
	ConsistencyTolerance float64
	ErlangBMaxServers    int
}

// StaffingConfig holds the service-level defaults used when sizing a schedule
type StaffingConfig struct {
	MaxAgents          int
	Strategy           staffing.Strategy
	Model              models.QueueModel
	TargetServiceLevel float64
	TargetWaitTime     time.Duration
	DefaultPatience    time.Duration
}

// ServerConfig holds the metrics endpoint configuration
type ServerConfig struct {
	MetricsAddr string
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			GammaMaxIterations:   getEnvInt("GAMMA_MAX_ITERATIONS", specfunc.DefaultMaxIterations),
			GammaEpsilon:         getEnvFloat("GAMMA_EPSILON", specfunc.DefaultEpsilon),
			SeriesMaxIterations:  getEnvInt("SERIES_MAX_ITERATIONS", erlanga.DefaultMaxIterations),
			SeriesEpsilon:        getEnvFloat("SERIES_EPSILON", erlanga.DefaultEpsilon),
			ConsistencyTolerance: getEnvFloat("CONSISTENCY_TOLERANCE", erlanga.DefaultConsistencyTolerance),
			ErlangBMaxServers:    getEnvInt("ERLANGB_MAX_SERVERS", erlangb.DefaultMaxServers),
		},
		Staffing: StaffingConfig{
			MaxAgents:          getEnvInt("STAFFING_MAX_AGENTS", staffing.DefaultMaxAgents),
			Strategy:           staffing.Strategy(getEnv("STAFFING_STRATEGY", string(staffing.Linear))),
			Model:              models.QueueModel(getEnv("STAFFING_MODEL", string(models.ErlangC))),
			TargetServiceLevel: getEnvFloat("TARGET_SERVICE_LEVEL", 0.8),
			TargetWaitTime:     time.Duration(getEnvInt("TARGET_WAIT_SECONDS", 20)) * time.Second,
			DefaultPatience:    time.Duration(getEnvInt("DEFAULT_PATIENCE_SECONDS", 180)) * time.Second,
		},
		Server: ServerConfig{
			MetricsAddr: getEnv("METRICS_ADDR", ""),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Engine.GammaMaxIterations < 1 {
		return fmt.Errorf("gamma max iterations must be at least 1")
	}
	if c.Engine.GammaEpsilon <= 0 || c.Engine.GammaEpsilon >= 1 {
		return fmt.Errorf("gamma epsilon must be between 0 and 1")
	}
	if c.Engine.SeriesMaxIterations < 1 {
		return fmt.Errorf("series max iterations must be at least 1")
	}
	if c.Engine.SeriesEpsilon <= 0 || c.Engine.SeriesEpsilon >= 1 {
		return fmt.Errorf("series epsilon must be between 0 and 1")
	}
	if c.Engine.ConsistencyTolerance <= 0 {
		return fmt.Errorf("consistency tolerance must be positive")
	}
	if c.Engine.ErlangBMaxServers < 1 {
		return fmt.Errorf("erlang-b max servers must be at least 1")
	}

	if c.Staffing.MaxAgents < 1 {
		return fmt.Errorf("max agents must be at least 1")
	}
	if _, err := staffing.ParseStrategy(string(c.Staffing.Strategy)); err != nil {
		return err
	}
	if _, err := models.ParseQueueModel(string(c.Staffing.Model)); err != nil {
		return err
	}
	if c.Staffing.TargetServiceLevel <= 0 || c.Staffing.TargetServiceLevel > 1 {
		return fmt.Errorf("target service level must be in (0, 1]")
	}
	if c.Staffing.TargetWaitTime < 0 {
		return fmt.Errorf("target wait time must not be negative")
	}
	if c.Staffing.DefaultPatience <= 0 {
		return fmt.Errorf("default patience must be positive")
	}

	return nil
}

// ToGammaConfig converts to specfunc.Config
func (c *Config) ToGammaConfig() specfunc.Config {
	return specfunc.Config{
		MaxIterations: c.Engine.GammaMaxIterations,
		Epsilon:       c.Engine.GammaEpsilon,
		FPMin:         specfunc.DefaultFPMin,
	}
}

// ToErlangBConfig converts to erlangb.Config
func (c *Config) ToErlangBConfig() erlangb.Config {
	return erlangb.Config{
		Gamma:      c.ToGammaConfig(),
		MaxServers: c.Engine.ErlangBMaxServers,
	}
}

// ToErlangAConfig converts to erlanga.Config
func (c *Config) ToErlangAConfig() erlanga.Config {
	return erlanga.Config{
		Epsilon:              c.Engine.SeriesEpsilon,
		MaxIterations:        c.Engine.SeriesMaxIterations,
		ConsistencyTolerance: c.Engine.ConsistencyTolerance,
	}
}

// ToSolverConfig converts to staffing.Config
func (c *Config) ToSolverConfig() staffing.Config {
	strategy, err := staffing.ParseStrategy(string(c.Staffing.Strategy))
	if err != nil {
		strategy = staffing.Linear
	}
	return staffing.Config{
		MaxAgents: c.Staffing.MaxAgents,
		Strategy:  strategy,
		ErlangA:   c.ToErlangAConfig(),
	}
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
