package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Metadata configures the HTTP client for the metadata service that
// owns job/cluster documents.
type Metadata struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SSH configures how sessions are dialed against cluster head nodes.
type SSH struct {
	User                  string        `mapstructure:"user"`
	KeyPath               string        `mapstructure:"key_path"`
	DialTimeout           time.Duration `mapstructure:"dial_timeout"`
	MaxSessionsPerCluster int           `mapstructure:"max_sessions_per_cluster"`
}

// Poll configures how often the two monitor ticks re-check their
// target after an Observing reschedule.
type Poll struct {
	JobInterval     time.Duration `mapstructure:"job_interval"`
	ProcessInterval time.Duration `mapstructure:"process_interval"`
}

// Backoff mirrors queue.BackoffConfig in mapstructure form, so each
// lane can be tuned independently from YAML/env.
type Backoff struct {
	MaxRetries          uint32        `mapstructure:"max_retries"`
	InitialInterval     time.Duration `mapstructure:"initial_interval"`
	MaxInterval         time.Duration `mapstructure:"max_interval"`
	Multiplier          float64       `mapstructure:"multiplier"`
	RandomizationFactor float64       `mapstructure:"randomization_factor"`
}

// Lane configures one queue.Worker.
type Lane struct {
	Concurrency  int           `mapstructure:"concurrency"`
	Queue        int           `mapstructure:"queue"`
	BatchSize    int           `mapstructure:"batch_size"`
	PullInterval time.Duration `mapstructure:"pull_interval"`
	LockTimeout  time.Duration `mapstructure:"lock_timeout"`
	Backoff      Backoff       `mapstructure:"backoff"`
}

// Database configures the bun/sqlite storage backend.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Config is cumulus-workerd's complete runtime configuration.
type Config struct {
	Metadata Metadata `mapstructure:"metadata"`
	SSH      SSH      `mapstructure:"ssh"`
	Poll     Poll     `mapstructure:"poll"`
	Database Database `mapstructure:"database"`

	// Command is the one-shot work lane (download/submit/upload/
	// terminate/remove-output/terminate-cluster).
	Command Lane `mapstructure:"command"`
	// Monitor is the recurring-poll lane (job-monitor/process-monitor
	// ticks).
	Monitor Lane `mapstructure:"monitor"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("metadata.timeout", 30*time.Second)

	v.SetDefault("ssh.user", "ec2-user")
	v.SetDefault("ssh.dial_timeout", 15*time.Second)
	v.SetDefault("ssh.max_sessions_per_cluster", 4)

	v.SetDefault("poll.job_interval", 10*time.Second)
	v.SetDefault("poll.process_interval", 5*time.Second)

	v.SetDefault("database.dsn", "file:cumulus.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")

	v.SetDefault("command.concurrency", 8)
	v.SetDefault("command.queue", 32)
	v.SetDefault("command.batch_size", 8)
	v.SetDefault("command.pull_interval", 2*time.Second)
	v.SetDefault("command.lock_timeout", 2*time.Minute)
	v.SetDefault("command.backoff.max_retries", uint32(5))
	v.SetDefault("command.backoff.initial_interval", 5*time.Second)
	v.SetDefault("command.backoff.max_interval", 5*time.Minute)
	v.SetDefault("command.backoff.multiplier", 2.0)
	v.SetDefault("command.backoff.randomization_factor", 0.2)

	v.SetDefault("monitor.concurrency", 16)
	v.SetDefault("monitor.queue", 64)
	v.SetDefault("monitor.batch_size", 16)
	v.SetDefault("monitor.pull_interval", 2*time.Second)
	v.SetDefault("monitor.lock_timeout", time.Minute)
	v.SetDefault("monitor.backoff.max_retries", uint32(0))
	v.SetDefault("monitor.backoff.initial_interval", 5*time.Second)
	v.SetDefault("monitor.backoff.max_interval", time.Minute)
	v.SetDefault("monitor.backoff.multiplier", 2.0)
	v.SetDefault("monitor.backoff.randomization_factor", 0.2)
}

// Load reads configuration from path (a YAML file; ignored if empty
// or not found) and overlays it with CUMULUS_-prefixed environment
// variables, e.g. CUMULUS_METADATA_BASE_URL or
// CUMULUS_SSH_MAX_SESSIONS_PER_CLUSTER.
//
// Monitor-lane retries default to unlimited (MaxRetries: 0): a stuck
// tick reschedules itself rather than relying on the engine's backoff
// (see jobmonitor/procmon's self-requeue pattern). With MaxRetries 0
// the lane imposes no retry cap: a failing monitor task is retried
// with backoff indefinitely and never killed for its attempt count.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CUMULUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Metadata.BaseURL == "" {
		return nil, fmt.Errorf("metadata.base_url is required (set CUMULUS_METADATA_BASE_URL)")
	}
	return &cfg, nil
}
