package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LoopPeriod time.Duration `envconfig:"LOOP_PERIOD" default:"5s"`
	// MaxConsecutiveFailures stops the loop after that many failed passes in
	// a row. Zero means keep retrying forever.
	MaxConsecutiveFailures int `envconfig:"MAX_CONSECUTIVE_FAILURES" default:"10"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
