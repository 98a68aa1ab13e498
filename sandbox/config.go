package sandbox

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "100ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// ServiceConfig describes one of the sandbox's containers.
type ServiceConfig struct {
	Image string `toml:"image"`
	Tag   string `toml:"tag"`
	// HostPort is the fixed localhost port the service is published on.
	HostPort int `toml:"host_port"`
}

// CatchupConfig tunes the fast-catchup monitor.
type CatchupConfig struct {
	// Interval between status polls.
	Interval Duration `toml:"interval"`
	// AbsentPolls is how many consecutive marker-absent polls complete a
	// phase once it has started reporting.
	AbsentPolls int `toml:"absent_polls"`
	// Timeout bounds the whole catchup; zero means no timeout.
	Timeout Duration `toml:"timeout"`
}

// Config is a sandbox profile: which network channel to join, which images
// to run, and where to publish their ports.
type Config struct {
	// Channel is the network the node joins (e.g. testnet, mainnet, betanet).
	Channel string `toml:"channel"`
	// CatchpointURL is the base URL serving each channel's latest
	// catchpoint label at <url>/<channel>/latest.catchpoint.
	CatchpointURL string `toml:"catchpoint_url"`

	Algod   ServiceConfig `toml:"algod"`
	Indexer ServiceConfig `toml:"indexer"`
	DB      ServiceConfig `toml:"db"`

	Catchup CatchupConfig `toml:"catchup"`
}

// DefaultConfig returns the testnet profile the sandbox starts with when no
// profile file is given.
func DefaultConfig() Config {
	return Config{
		Channel:       "testnet",
		CatchpointURL: "https://algorand-catchpoints.s3.us-east-2.amazonaws.com/channel",
		Algod: ServiceConfig{
			Image:    "algorand/algod",
			Tag:      "stable",
			HostPort: 4001,
		},
		Indexer: ServiceConfig{
			Image:    "algorand/indexer",
			Tag:      "latest",
			HostPort: 8980,
		},
		DB: ServiceConfig{
			Image:    "postgres",
			Tag:      "13-alpine",
			HostPort: 5433,
		},
		Catchup: CatchupConfig{
			Interval:    Duration(100 * time.Millisecond),
			AbsentPolls: 1,
		},
	}
}

// LoadConfig reads a TOML profile from path, layered over the defaults so a
// profile only has to state what it changes.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading profile %s: %w", path, err)
	}
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return cfg, nil
}
