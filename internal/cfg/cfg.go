package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the resolved runtime configuration shared by both services.
type Settings struct {
	PredictPort int
	AuthPort    int
	FrontendURL string

	ModelPath          string
	TransformerPath    string
	TargetPipelinePath string
	PythonBin          string
	BridgeTimeout      time.Duration

	JWTSecret          string
	TokenTTL           time.Duration
	GoogleClientID     string
	GoogleClientSecret string

	GeminiAPIKey  string
	AdviceTimeout time.Duration

	DataPath       string
	LogLevel       string
	MaxUploadBytes int64
}

// ConfigFile is the YAML layout accepted via CONFIG_FILE.
type ConfigFile struct {
	Server struct {
		PredictPort int    `yaml:"predictPort"`
		AuthPort    int    `yaml:"authPort"`
		FrontendURL string `yaml:"frontendURL"`
	} `yaml:"server"`

	ML struct {
		ModelPath          string `yaml:"modelPath"`
		TransformerPath    string `yaml:"transformerPath"`
		TargetPipelinePath string `yaml:"targetPipelinePath"`
		Python             string `yaml:"python"`
		BridgeTimeout      string `yaml:"bridgeTimeout"`
	} `yaml:"ml"`

	Auth struct {
		JWTSecret          string `yaml:"jwtSecret"`
		TokenTTL           string `yaml:"tokenTTL"`
		GoogleClientID     string `yaml:"googleClientID"`
		GoogleClientSecret string `yaml:"googleClientSecret"`
	} `yaml:"auth"`

	Advice struct {
		GeminiAPIKey string `yaml:"geminiAPIKey"`
		Timeout      string `yaml:"timeout"`
	} `yaml:"advice"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		LogLevel    string `yaml:"logLevel"`
		MaxUploadMB int64  `yaml:"maxUploadMB"`
	} `yaml:"system"`
}

// Load resolves settings from the YAML file named by CONFIG_FILE when set,
// falling back to environment variables. Environment variables always win
// over file values.
func Load() (Settings, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	bridgeTimeout, err := time.ParseDuration(config.ML.BridgeTimeout)
	if err != nil {
		bridgeTimeout = 30 * time.Second
	}
	tokenTTL, err := time.ParseDuration(config.Auth.TokenTTL)
	if err != nil {
		tokenTTL = 24 * time.Hour
	}
	adviceTimeout, err := time.ParseDuration(config.Advice.Timeout)
	if err != nil {
		adviceTimeout = 10 * time.Second
	}

	maxUploadMB := config.System.MaxUploadMB
	if maxUploadMB == 0 {
		maxUploadMB = 16
	}

	settings := Settings{
		PredictPort:        getIntFromEnvOrConfig("PREDICT_PORT", config.Server.PredictPort, 5002),
		AuthPort:           getIntFromEnvOrConfig("AUTH_PORT", config.Server.AuthPort, 5001),
		FrontendURL:        getEnvOrDefault("FRONTEND_URL", orDefault(config.Server.FrontendURL, "http://localhost:3000")),
		ModelPath:          getEnvOrDefault("MODEL_PATH", config.ML.ModelPath),
		TransformerPath:    getEnvOrDefault("TRANSFORMER_PATH", config.ML.TransformerPath),
		TargetPipelinePath: getEnvOrDefault("TARGET_PIPELINE_PATH", config.ML.TargetPipelinePath),
		PythonBin:          getEnvOrDefault("PYTHON_BIN", config.ML.Python),
		BridgeTimeout:      getDurationOrDefault("BRIDGE_TIMEOUT", bridgeTimeout),
		JWTSecret:          getEnvOrDefault("JWT_SECRET", config.Auth.JWTSecret),
		TokenTTL:           getDurationOrDefault("TOKEN_TTL", tokenTTL),
		GoogleClientID:     getEnvOrDefault("GOOGLE_CLIENT_ID", config.Auth.GoogleClientID),
		GoogleClientSecret: getEnvOrDefault("GOOGLE_CLIENT_SECRET", config.Auth.GoogleClientSecret),
		GeminiAPIKey:       getEnvOrDefault("GEMINI_API_KEY", config.Advice.GeminiAPIKey),
		AdviceTimeout:      getDurationOrDefault("ADVICE_TIMEOUT", adviceTimeout),
		DataPath:           getEnvOrDefault("DATA_PATH", config.System.DataPath),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", orDefault(config.System.LogLevel, "info")),
		MaxUploadBytes:     getInt64OrDefault("MAX_UPLOAD_MB", maxUploadMB) << 20,
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		PredictPort:        getIntOrDefault("PREDICT_PORT", 5002),
		AuthPort:           getIntOrDefault("AUTH_PORT", 5001),
		FrontendURL:        getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		ModelPath:          os.Getenv("MODEL_PATH"),
		TransformerPath:    os.Getenv("TRANSFORMER_PATH"),
		TargetPipelinePath: os.Getenv("TARGET_PIPELINE_PATH"),
		PythonBin:          os.Getenv("PYTHON_BIN"),
		BridgeTimeout:      getDurationOrDefault("BRIDGE_TIMEOUT", 30*time.Second),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenTTL:           getDurationOrDefault("TOKEN_TTL", 24*time.Hour),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		AdviceTimeout:      getDurationOrDefault("ADVICE_TIMEOUT", 10*time.Second),
		DataPath:           os.Getenv("DATA_PATH"), // optional
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		MaxUploadBytes:     getInt64OrDefault("MAX_UPLOAD_MB", 16) << 20,
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// RequireModelArtifacts enforces the prediction service's startup contract:
// all three pipeline artifact paths must be configured.
func (s *Settings) RequireModelArtifacts() error {
	if s.ModelPath == "" || s.TransformerPath == "" || s.TargetPipelinePath == "" {
		return fmt.Errorf("MODEL_PATH, TRANSFORMER_PATH and TARGET_PIPELINE_PATH are all required")
	}
	return nil
}

// RequireJWTSecret enforces the token-issuing contract shared by both
// services.
func (s *Settings) RequireJWTSecret() error {
	if s.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(s.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters, got %d", len(s.JWTSecret))
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs validation of values every service shares.
// Per-service requirements (model artifacts, JWT secret) are enforced by
// the Require* methods at startup.
func validateSettings(settings *Settings) error {
	if settings.PredictPort < 1 || settings.PredictPort > 65535 {
		return fmt.Errorf("prediction port must be between 1 and 65535, got %d", settings.PredictPort)
	}
	if settings.AuthPort < 1 || settings.AuthPort > 65535 {
		return fmt.Errorf("auth port must be between 1 and 65535, got %d", settings.AuthPort)
	}
	if settings.BridgeTimeout < time.Second || settings.BridgeTimeout > 5*time.Minute {
		return fmt.Errorf("bridge timeout must be between 1s and 5m, got %v", settings.BridgeTimeout)
	}
	if settings.TokenTTL < time.Minute || settings.TokenTTL > 7*24*time.Hour {
		return fmt.Errorf("token TTL must be between 1m and 168h, got %v", settings.TokenTTL)
	}
	if settings.AdviceTimeout < time.Second || settings.AdviceTimeout > time.Minute {
		return fmt.Errorf("advice timeout must be between 1s and 1m, got %v", settings.AdviceTimeout)
	}
	if settings.MaxUploadBytes < 1<<20 || settings.MaxUploadBytes > 256<<20 {
		return fmt.Errorf("max upload size must be between 1MB and 256MB, got %d bytes", settings.MaxUploadBytes)
	}
	if settings.FrontendURL == "" {
		return fmt.Errorf("frontend URL cannot be empty")
	}
	return nil
}
