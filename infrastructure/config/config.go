package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"devrank/domain/graph"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Graph database
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
	Neo4jPoolSize int

	// Interaction behaviour
	AutocompleteUserMin     int
	AutocompleteRepoMin     int
	AutocompleteLanguageMin int
	AutocompleteLimit       int
	AutocompleteTimeout     time.Duration
	RenderTimeout           time.Duration
	NamesCacheTTL           time.Duration
	ViewIdleTimeout         time.Duration
	FormRawInterpolation    bool
	DisplayConfigPath       string

	// AWS configuration
	AWSRegion        string
	EventBusName     string
	ConnectionsTable string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// WebSocket configuration
	WebSocketEndpoint string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Rate limiting of suggestion lookups, per client per minute
	SuggestRateLimit int

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool
	CORSOrigins   []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		Neo4jURI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase: getEnv("NEO4J_DATABASE", ""),
		Neo4jPoolSize: getEnvInt("NEO4J_POOL_SIZE", 50),

		AutocompleteUserMin:     getEnvInt("AUTOCOMPLETE_USER_MIN", 0),
		AutocompleteRepoMin:     getEnvInt("AUTOCOMPLETE_REPO_MIN", 0),
		AutocompleteLanguageMin: getEnvInt("AUTOCOMPLETE_LANGUAGE_MIN", 1),
		AutocompleteLimit:       getEnvInt("AUTOCOMPLETE_LIMIT", 0),
		AutocompleteTimeout:     getEnvDuration("AUTOCOMPLETE_TIMEOUT", 0),
		RenderTimeout:           getEnvDuration("RENDER_TIMEOUT", 0),
		NamesCacheTTL:           getEnvDuration("NAMES_CACHE_TTL", 5*time.Minute),
		ViewIdleTimeout:         getEnvDuration("VIEW_IDLE_TIMEOUT", 30*time.Minute),
		FormRawInterpolation:    getEnvBool("FORM_RAW_INTERPOLATION", false),
		DisplayConfigPath:       getEnv("DISPLAY_CONFIG", ""),

		AWSRegion:        getEnv("AWS_REGION", "us-west-2"),
		EventBusName:     getEnv("EVENT_BUS_NAME", ""),
		ConnectionsTable: getEnv("CONNECTIONS_TABLE", "devrank-connections"),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		// WebSocket configuration
		WebSocketEndpoint: getEnv("WEBSOCKET_ENDPOINT", ""),

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "devrank-explorer"),

		SuggestRateLimit: getEnvInt("SUGGEST_RATE_LIMIT", 600),

		// Logging and features
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"*"}),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	for name, v := range map[string]int{
		"AUTOCOMPLETE_USER_MIN":     c.AutocompleteUserMin,
		"AUTOCOMPLETE_REPO_MIN":     c.AutocompleteRepoMin,
		"AUTOCOMPLETE_LANGUAGE_MIN": c.AutocompleteLanguageMin,
		"AUTOCOMPLETE_LIMIT":        c.AutocompleteLimit,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.Neo4jPassword == "" {
			return fmt.Errorf("NEO4J_PASSWORD is required in production")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Display returns the default display mapping overlaid with the YAML file
// at DisplayConfigPath, if any.
func (c *Config) Display() (graph.DisplayConfig, error) {
	display := graph.DefaultDisplay()
	if c.DisplayConfigPath == "" {
		return display, nil
	}

	data, err := os.ReadFile(c.DisplayConfigPath)
	if err != nil {
		return display, fmt.Errorf("failed to read display config: %w", err)
	}
	overlay, err := ParseDisplay(data)
	if err != nil {
		return display, err
	}
	return display.Merge(overlay), nil
}

// ParseDisplay decodes a YAML display mapping.
func ParseDisplay(data []byte) (graph.DisplayConfig, error) {
	var overlay graph.DisplayConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return graph.DisplayConfig{}, fmt.Errorf("invalid display config: %w", err)
	}
	return overlay, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("750ms") or whole seconds ("30")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvList splits a comma separated variable
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
