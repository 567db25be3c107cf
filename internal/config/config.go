package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"

	"dress-rental/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
		MigrationsDir      string   `mapstructure:"migrations_dir"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		MaxConns int    `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Kafka struct {
		Brokers  []string `mapstructure:"brokers"`
		Topic    string   `mapstructure:"topic"`
		ClientID string   `mapstructure:"client_id"`
	} `mapstructure:"kafka"`

	// S3-compatible bucket for report archives. Empty bucket disables uploads.
	Storage struct {
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		PathStyle bool   `mapstructure:"path_style"`
	} `mapstructure:"storage"`

	Razorpay struct {
		KeyID     string `mapstructure:"key_id"`
		KeySecret string `mapstructure:"key_secret"`
		Currency  string `mapstructure:"currency"`
	} `mapstructure:"razorpay"`

	// Administrator created on first start when no administrator exists
	Bootstrap struct {
		AdminUsername string `mapstructure:"admin_username"`
		AdminPassword string `mapstructure:"admin_password"`
	} `mapstructure:"bootstrap"`

	// IANA zone rental dates are counted in
	Timezone string `mapstructure:"timezone"`

	// Defaults for the rental rules; system_settings rows override them at runtime
	Rules struct {
		MaxDurationDays  int     `mapstructure:"max_duration_days"`
		MaxActiveRentals int     `mapstructure:"max_active_rentals"`
		MinItems         int     `mapstructure:"min_items"`
		MaxItems         int     `mapstructure:"max_items"`
		LateFeePerDay    float64 `mapstructure:"late_fee_per_day"`
	} `mapstructure:"rules"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(configFile())

	// Auto bind environment variables (server.port -> SERVER_PORT)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Config] %v", err)
	}

	return &cfg
}

func configFile() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}
	return "configs/config.yaml"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("server.migrations_dir", "migrations")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "dress_rental")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("jwt.expiration_hours", 12)
	v.SetDefault("jwt.issuer", "dress-rental")

	v.SetDefault("kafka.topic", "rental.events")
	v.SetDefault("kafka.client_id", "dress-rental-api")

	v.SetDefault("storage.region", "auto")

	v.SetDefault("razorpay.currency", "MYR")

	v.SetDefault("bootstrap.admin_username", "admin")
	v.SetDefault("bootstrap.admin_password", "")

	v.SetDefault("timezone", "Asia/Kuala_Lumpur")

	v.SetDefault("rules.max_duration_days", 14)
	v.SetDefault("rules.max_active_rentals", 3)
	v.SetDefault("rules.min_items", 1)
	v.SetDefault("rules.max_items", 5)
	v.SetDefault("rules.late_fee_per_day", 10.0)
}

// applyEnvOverrides honours the plain DB_*, REDIS_*, KAFKA_* and secret
// variables used by the deployment manifests.
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}

	if key := os.Getenv("S3_ACCESS_KEY"); key != "" {
		cfg.Storage.AccessKey = key
	}
	if secret := os.Getenv("S3_SECRET_KEY"); secret != "" {
		cfg.Storage.SecretKey = secret
	}

	if keyID := os.Getenv("RAZORPAY_KEY_ID"); keyID != "" {
		cfg.Razorpay.KeyID = keyID
	}
	if keySecret := os.Getenv("RAZORPAY_KEY_SECRET"); keySecret != "" {
		cfg.Razorpay.KeySecret = keySecret
	}
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET not found in environment or config file")
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port must be positive")
	}
	if c.Rules.MaxDurationDays < 1 || c.Rules.MaxActiveRentals < 1 {
		return errors.New("rules.max_duration_days and rules.max_active_rentals must be at least 1")
	}
	if c.Rules.MinItems < 1 || c.Rules.MaxItems < c.Rules.MinItems {
		return errors.New("rules.min_items must be at least 1 and not exceed rules.max_items")
	}
	if c.Rules.LateFeePerDay < 0 {
		return errors.New("rules.late_fee_per_day must not be negative")
	}
	return nil
}

// RentalRules returns the configured defaults for the rental lifecycle
func (c *Config) RentalRules() models.RentalRules {
	return models.RentalRules{
		MaxDurationDays:  c.Rules.MaxDurationDays,
		MaxActiveRentals: c.Rules.MaxActiveRentals,
		MinItems:         c.Rules.MinItems,
		MaxItems:         c.Rules.MaxItems,
		LateFeePerDay:    c.Rules.LateFeePerDay,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
