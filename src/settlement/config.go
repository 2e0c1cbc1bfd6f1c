package settlement

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// BatchSize bounds how many expired trades settle concurrently.
	BatchSize    int           `envconfig:"SETTLEMENT_BATCH_SIZE" default:"10"`
	SettingsTTL  time.Duration `envconfig:"SETTLEMENT_SETTINGS_TTL" default:"30s"`
	PriceTimeout time.Duration `envconfig:"SETTLEMENT_PRICE_TIMEOUT" default:"5s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
