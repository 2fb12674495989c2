package gateway

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the gateway's one-time wiring: the paired contract on the
// secondary chain, the sole authorized deposit caller, and the messaging
// subsystem endpoint. All three are immutable once set.
type Config struct {
	Counterpart common.Address
	Router      common.Address
	Channel     common.Address
}

func (c Config) validate() error {
	if (c.Counterpart == common.Address{}) {
		return fmt.Errorf("%w: zero counterpart address", ErrInvalidConfig)
	}
	if (c.Router == common.Address{}) {
		return fmt.Errorf("%w: zero router address", ErrInvalidConfig)
	}
	if (c.Channel == common.Address{}) {
		return fmt.Errorf("%w: zero channel address", ErrInvalidConfig)
	}
	return nil
}

// configCell is a set-once holder for Config. A second set attempt fails
// regardless of value; there is no per-field sentinel checking.
type configCell struct {
	mu  sync.Mutex
	set bool
	cfg Config
}

func (c *configCell) put(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return ErrAlreadyInitialized
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	c.cfg = cfg
	c.set = true
	return nil
}

func (c *configCell) get() (Config, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg, c.set
}
