package seed

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	UserName        string `envconfig:"SEED_USER_NAME" default:"demo"`
	Password        string `envconfig:"SEED_PASSWORD" default:"demo-password"`
	Deposit         string `envconfig:"SEED_DEPOSIT" default:"1000"`
	TradesRemaining int    `envconfig:"SEED_TRADES_REMAINING" default:"100"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
