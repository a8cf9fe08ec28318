package nexus

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/nexuscore/nexus/logging"
)

// MaxRPCID bounds the hook registry: endpoint IDs are 8-bit, so the
// registry array has MaxRPCID+1 slots.
const MaxRPCID = 255

// MaxReqTypes bounds the request-function table, also indexed by an 8-bit
// request type.
const MaxReqTypes = 256

// MaxBgThreads is the configured ceiling on background worker count, the
// small-RPC-optimized regime this core is built for.
const MaxBgThreads = 64

// DefaultSMPollInterval is the SM thread's bounded per-iteration wait,
// chosen to keep idle CPU use low without adding meaningful latency to
// control-plane dispatch.
const DefaultSMPollInterval = 50 * time.Millisecond

// Config is the YAML-driven process configuration for a Nexus.
type Config struct {
	// Hostname is the local hostname SM peers use to address this process.
	Hostname string `yaml:"hostname"`
	// MgmtUDPPort is the UDP port the control-transport host binds.
	MgmtUDPPort uint16 `yaml:"mgmt_udp_port"`
	// NumBgThreads is the number of background worker threads to spawn,
	// in [0, MaxBgThreads].
	NumBgThreads int `yaml:"num_bg_threads"`
	// SMPollInterval overrides DefaultSMPollInterval when non-zero.
	SMPollInterval time.Duration `yaml:"sm_poll_interval"`
	// BgQueueCapacity sizes each background worker's request queue.
	BgQueueCapacity int `yaml:"bg_queue_capacity"`
	// SMQueueCapacity sizes the SM TX queue and each endpoint's SM RX
	// mailbox.
	SMQueueCapacity int `yaml:"sm_queue_capacity"`
	// Logging configures the structured logger nexusd builds at startup.
	// Embedded directly in the process config, following the teacher's
	// convention of one flat YAML document per process.
	Logging logging.Config `yaml:"logging"`
}

// DefaultConfig returns a Config with every optional field filled in.
func DefaultConfig() *Config {
	return &Config{
		Hostname:        "localhost",
		MgmtUDPPort:     31850,
		NumBgThreads:    2,
		SMPollInterval:  DefaultSMPollInterval,
		BgQueueCapacity: 1024,
		SMQueueCapacity: 1024,
		Logging:         logging.Config{Level: zapcore.DebugLevel},
	}
}

// LoadConfig reads and parses a YAML Config file, starting from
// DefaultConfig so unset fields keep sane defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nexus: read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("nexus: parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks constraints LoadConfig/DefaultConfig alone cannot
// enforce (e.g. user-supplied thread counts).
func (c *Config) Validate() error {
	if c.NumBgThreads < 0 || c.NumBgThreads > MaxBgThreads {
		return fmt.Errorf("nexus: num_bg_threads %d out of range [0,%d]", c.NumBgThreads, MaxBgThreads)
	}
	if c.SMPollInterval <= 0 {
		c.SMPollInterval = DefaultSMPollInterval
	}
	if c.BgQueueCapacity <= 0 {
		c.BgQueueCapacity = 1024
	}
	if c.SMQueueCapacity <= 0 {
		c.SMQueueCapacity = 1024
	}
	return nil
}
