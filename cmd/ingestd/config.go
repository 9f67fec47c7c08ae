package main

import (
	"io/ioutil"
	"os"
	"time"

	toml "github.com/BurntSushi/toml"

	"github.com/akumuli/ingestd/logger"
	ingestdtoml "github.com/akumuli/ingestd/toml"
)

// DefaultBlockStorePath is where the block store file is created when
// Config.BlockStorePath is left unset.
const DefaultBlockStorePath = "ingestd/blocks.db"

// DefaultMetaStorePath is where the metadata store file is created when
// Config.MetaStorePath is left unset.
const DefaultMetaStorePath = "ingestd/meta.db"

// Config is the configuration format for the ingestd binary.
type Config struct {
	BlockStorePath string `toml:"block-store-path"`
	MetaStorePath  string `toml:"meta-store-path"`

	// FlushEvery is the sample count at which a series' extent list
	// reports a flush is needed. Zero uses extent.DefaultFlushEvery.
	FlushEvery int `toml:"flush-every"`

	// WriteLimit and WriteBurst throttle the block store's write of each
	// flushed block, one block at a time; the rate is not carried across
	// blocks. A WriteLimit of zero disables throttling.
	WriteLimit ingestdtoml.Size `toml:"write-limit"`
	WriteBurst ingestdtoml.Size `toml:"write-burst"`

	// SyncInterval bounds how long the sync loop waits between checks
	// of the rescue-point buffer.
	SyncInterval ingestdtoml.Duration `toml:"sync-interval"`

	// MetricsBindAddress is the address the Prometheus metrics endpoint
	// listens on.
	MetricsBindAddress string `toml:"metrics-bind-address"`

	Logging logger.Config `toml:"logging"`
}

// NewConfig returns a Config with reasonable defaults.
func NewConfig() *Config {
	return &Config{
		BlockStorePath:     DefaultBlockStorePath,
		MetaStorePath:      DefaultMetaStorePath,
		FlushEvery:         0,
		SyncInterval:       ingestdtoml.Duration(time.Second),
		MetricsBindAddress: ":9102",
		Logging:            logger.NewConfig(),
	}
}

// FromTomlFile loads Config from the TOML file at path, then applies any
// INGESTD_-prefixed environment variable overrides.
func (c *Config) FromTomlFile(path string) error {
	bs, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := toml.Decode(string(bs), c); err != nil {
		return err
	}
	return ingestdtoml.ApplyEnvOverrides(os.Getenv, "INGESTD", c)
}
