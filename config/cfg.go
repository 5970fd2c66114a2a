package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	httpapi "github.com/wickery/storepulse/internal/api/http"
	"github.com/wickery/storepulse/internal/goals"
	"github.com/wickery/storepulse/internal/insights"
	"github.com/wickery/storepulse/internal/mail"
	"github.com/wickery/storepulse/internal/report"
	"github.com/wickery/storepulse/internal/shopify"
	"github.com/wickery/storepulse/internal/store"
	"github.com/wickery/storepulse/log"
)

// Config represents the global configuration for the service.
type Config struct {
	DB       store.Config    `mapstructure:"mysql"`
	Logger   log.Config      `mapstructure:"logger"`
	HTTP     httpapi.Config  `mapstructure:"http"`
	Shopify  shopify.Config  `mapstructure:"shopify"`
	Goals    goals.Config    `mapstructure:"goals"`
	Insights insights.Config `mapstructure:"insights"`
	Mailer   mail.Config     `mapstructure:"mailer"`
	Report   report.Config   `mapstructure:"report"`
}

// LoadConfig loads the configuration from a file and/or environment variables.
// Environment variables take precedence over config file values.
// Nested config keys use double underscore, e.g., MYSQL__DSN for mysql.dsn
func LoadConfig(cfgFile string) (*Config, error) {
	viper.SetConfigType("toml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))

	bindEnvVars()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %v", err)
			}
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("$HOME/config/storepulse")
		viper.AddConfigPath("/etc/storepulse")
		_ = viper.ReadInConfig()
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config into struct: %v", err)
	}

	// Construct the MySQL DSN from individual env vars when not set directly.
	if config.DB.DSN == "" {
		host := os.Getenv("MYSQL_HOST")
		if host != "" {
			port := os.Getenv("MYSQL_PORT")
			if port == "" {
				port = "3306"
			}
			user := os.Getenv("MYSQL_USER")
			password := os.Getenv("MYSQL_PASSWORD")
			database := os.Getenv("MYSQL_DATABASE")
			if user != "" && password != "" && database != "" {
				config.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8&parseTime=true",
					user, password, host, port, database)
			}
		}
	}

	return &config, nil
}

// bindEnvVars binds environment variables to config keys
// This allows using both nested keys (MYSQL__DSN) and flat keys (MYSQL_DSN)
func bindEnvVars() {
	// MySQL
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("mysql.automigrate", "MYSQL_AUTOMIGRATE")
	viper.BindEnv("mysql.max_open_connections", "MYSQL_MAX_OPEN_CONNECTIONS")
	viper.BindEnv("mysql.max_idle_connections", "MYSQL_MAX_IDLE_CONNECTIONS")

	// Logger
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.add_source", "LOG_ADD_SOURCE")

	// HTTP
	viper.BindEnv("http.port", "HTTP_PORT")
	viper.BindEnv("http.address", "HTTP_ADDRESS")
	viper.BindEnv("http.allowed_origins", "HTTP_ALLOWED_ORIGINS")

	// Shopify
	viper.BindEnv("shopify.shop_domain", "SHOPIFY_SHOP_DOMAIN")
	viper.BindEnv("shopify.access_token", "SHOPIFY_ACCESS_TOKEN")
	viper.BindEnv("shopify.api_version", "SHOPIFY_API_VERSION")

	// Goals
	viper.BindEnv("goals.enabled", "GOALS_ENABLED")
	viper.BindEnv("goals.credentials_file", "GOALS_CREDENTIALS_FILE")
	viper.BindEnv("goals.credentials_json", "GOALS_CREDENTIALS_JSON")
	viper.BindEnv("goals.forecast_range", "GOALS_FORECAST_RANGE")

	// Insights
	viper.BindEnv("insights.api_key", "INSIGHTS_API_KEY")
	viper.BindEnv("insights.model", "INSIGHTS_MODEL")
	viper.BindEnv("insights.max_tokens", "INSIGHTS_MAX_TOKENS")

	// Mailer
	viper.BindEnv("mailer.sendgrid_api_key", "MAILER_SENDGRID_API_KEY")
	viper.BindEnv("mailer.from_email", "MAILER_FROM_EMAIL")
	viper.BindEnv("mailer.from_email_name", "MAILER_FROM_EMAIL_NAME")
	viper.BindEnv("mailer.reply_to", "MAILER_REPLY_TO")
	viper.BindEnv("mailer.admin_email", "MAILER_ADMIN_EMAIL")
	viper.BindEnv("mailer.worker_interval", "MAILER_WORKER_INTERVAL")

	// Report schedule
	viper.BindEnv("report.report_weekday", "REPORT_WEEKDAY")
	viper.BindEnv("report.report_hour", "REPORT_HOUR")
	viper.BindEnv("report.timezone", "REPORT_TIMEZONE")
	viper.BindEnv("report.reply_interval", "REPORT_REPLY_INTERVAL")
	viper.BindEnv("report.memory_depth", "REPORT_MEMORY_DEPTH")
	viper.BindEnv("report.include_trends", "REPORT_INCLUDE_TRENDS")
}
