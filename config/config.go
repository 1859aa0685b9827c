package config

import (
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port int    `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"` // development | production

	// Storage
	DBPath    string `mapstructure:"DB_PATH"`
	ReportDir string `mapstructure:"REPORT_DIR"`

	// Ledger policy. Both default to the historical behavior; see
	// inventory.Policy before changing them.
	OutflowDeductsStock     bool `mapstructure:"OUTFLOW_DEDUCTS_STOCK"`
	DeleteCompensatesTotals bool `mapstructure:"DELETE_COMPENSATES_TOTALS"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", 8080)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_PATH", "./data/inventario.db")
	viper.SetDefault("REPORT_DIR", "./data/reportes")
	viper.SetDefault("OUTFLOW_DEDUCTS_STOCK", false)
	viper.SetDefault("DELETE_COMPENSATES_TOTALS", false)

	// Optional .env file for local development — does not fail if missing
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
