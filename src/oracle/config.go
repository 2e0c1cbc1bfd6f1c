package oracle

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseURL     string        `envconfig:"ORACLE_BASE_URL" default:"https://api.binance.com"`
	StreamURL   string        `envconfig:"ORACLE_STREAM_URL" default:"wss://stream.binance.com:9443/stream"`
	Timeout     time.Duration `envconfig:"ORACLE_TIMEOUT" default:"5s"`
	RetryCount  int           `envconfig:"ORACLE_RETRY_COUNT" default:"2"`
	MaxPriceAge time.Duration `envconfig:"ORACLE_MAX_PRICE_AGE" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
