package config

import (
	"spendlens/internal/logger"

	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion       string `mapstructure:"GENERAL_VERSION"`
	Environment          string `mapstructure:"ENVIRONMENT"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	DatabaseHost         string `mapstructure:"DB_HOST"`
	DatabasePort         int    `mapstructure:"DB_PORT"`
	DatabaseName         string `mapstructure:"DB_NAME"`
	DatabaseUser         string `mapstructure:"DB_USER"`
	DatabasePassword     string `mapstructure:"DB_PASSWORD"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	DatabaseCacheReset   int    `mapstructure:"DB_CACHE_RESET"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`
	SessionSecret        string `mapstructure:"SESSION_SECRET"`
	SessionTTLMinutes    int    `mapstructure:"SESSION_TTL_MINUTES"`
	ChecklistPath        string `mapstructure:"CHECKLIST_PATH"`
	StorageNamespace     string `mapstructure:"STORAGE_NAMESPACE"`
	StorageMaxValueBytes int    `mapstructure:"STORAGE_MAX_VALUE_BYTES"`
	StateDebounceMS      int    `mapstructure:"STATE_DEBOUNCE_MS"`
	SchedulerEnabled     bool   `mapstructure:"SCHEDULER_ENABLED"`
}

var ConfigInstance Config

func InitConfig() (Config, error) {
	log := logger.New("config").Function("InitConfig")
	log.Info("Initializing config")

	// Enable automatic environment variable reading first
	viper.AutomaticEnv()

	// Bind environment variables to config keys
	envVars := []string{
		"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT",
		"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
		"DB_CACHE_ADDRESS", "DB_CACHE_PORT", "DB_CACHE_RESET",
		"CORS_ALLOW_ORIGINS",
		"SESSION_SECRET", "SESSION_TTL_MINUTES",
		"CHECKLIST_PATH",
		"STORAGE_NAMESPACE", "STORAGE_MAX_VALUE_BYTES", "STATE_DEBOUNCE_MS",
		"SCHEDULER_ENABLED",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	// Check if key environment variables are already set
	envVarsSet := viper.IsSet("SERVER_PORT") && viper.IsSet("DB_HOST")

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		// Load base .env file
		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		// Load .env.local overrides if it exists
		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	applyDefaults(&config)

	if err := validateConfig(config, log); err != nil {
		return Config{}, err
	}

	log.Info("Successfully initialized config",
		"environment", config.Environment,
		"port", config.ServerPort,
		"namespace", config.StorageNamespace,
	)
	return ConfigInstance, nil
}

func GetConfig() Config {
	return ConfigInstance
}

func applyDefaults(config *Config) {
	if config.StorageNamespace == "" {
		config.StorageNamespace = "sop_assist_"
	}
	if config.StorageMaxValueBytes == 0 {
		config.StorageMaxValueBytes = 5 * 1024 * 1024
	}
	if config.StateDebounceMS == 0 {
		config.StateDebounceMS = 500
	}
	if config.SessionTTLMinutes == 0 {
		config.SessionTTLMinutes = 12 * 60
	}
	if config.ChecklistPath == "" {
		config.ChecklistPath = "checklist.json"
	}
}

func validateConfig(config Config, log logger.Logger) error {
	if config.ServerPort <= 0 {
		return log.Error(
			"Fatal error: invalid server port",
			"port", config.ServerPort,
		)
	}

	if config.SessionSecret == "" && config.Environment != "development" {
		return log.ErrMsg("Fatal error: SESSION_SECRET required outside development")
	}

	if config.StateDebounceMS < 0 {
		return log.Error(
			"Fatal error: invalid state debounce window",
			"debounceMs", config.StateDebounceMS,
		)
	}

	ConfigInstance = config
	return nil
}
