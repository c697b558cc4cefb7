package holding

import (
	"github.com/tos-network/holdpool/common/mclock"
	"github.com/tos-network/holdpool/log"
)

// Config are the configuration parameters of a holding pool.
type Config struct {
	Expiration uint64 // Seconds an untouched entry is kept before Clean drops it
	Name       string `toml:",omitempty"` // Metrics namespace, empty disables pool metrics

	Clock mclock.Clock `toml:"-"` // Time source, defaults to the system clock
}

// DefaultConfig contains the default configurations for a holding pool.
var DefaultConfig = Config{
	Expiration: 120,
}

// sanitize checks the provided user configurations and changes anything that's
// unreasonable or unworkable.
func (config *Config) sanitize() Config {
	conf := *config
	if conf.Clock == nil {
		conf.Clock = mclock.System{}
	}
	if conf.Expiration == 0 {
		log.Debug("Holding pool expires entries immediately", "name", conf.Name)
	}
	return conf
}
