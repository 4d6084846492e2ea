// Package judgeconfig loads the judge-job configuration document the CLI
// front-end feeds to the engine: which executables to run, their resource
// limits, stdio redirection and monitor interval. It is an external
// collaborator to the core engine per the engine's scope — internal/monitor
// never imports viper or mapstructure.
package judgeconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/sandrun/sandrun/internal/env"
	"github.com/sandrun/sandrun/internal/model"
)

// Config is the root document: a batch of jobs plus ambient log/metrics
// settings, grounded on the teacher's top-level Config shape
// (internal/config.Config) with the DB/HTTP/cron-specific fields dropped.
type Config struct {
	UseOSEnv bool           `mapstructure:"use_os_env"`
	Env      []string       `mapstructure:"env"`
	Log      *LogConfig     `mapstructure:"log"`
	Metrics  *MetricsConfig `mapstructure:"metrics"`
	Jobs     []JobConfig    `mapstructure:"jobs"`

	GlobalEnv []string
}

// LogConfig configures the rotating run-log the monitor writes through,
// grounded on internal/logger.Config's field shape.
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls whether internal/metrics collectors are
// registered and where promhttp.Handler is mounted by the CLI.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// JobConfig is one child program to run under the engine.
type JobConfig struct {
	Name            string            `mapstructure:"name"`
	Command         string            `mapstructure:"command"`
	Args            []string          `mapstructure:"args"`
	WorkDir         string            `mapstructure:"workdir"`
	Env             []string          `mapstructure:"env"`
	MonitorInterval string            `mapstructure:"monitor_interval"`
	WaitForChildren bool              `mapstructure:"wait_for_children"`
	Stdin           string            `mapstructure:"stdin"`
	Stdout          string            `mapstructure:"stdout"`
	Stderr          string            `mapstructure:"stderr"`
	Limits          ResourceLimitsCfg `mapstructure:"limits"`
}

// ResourceLimitsCfg mirrors model.ResourceLimits with string-durations and
// plain-value fields, the decoded-from-YAML shape mapstructure targets
// before it is converted to model.ResourceLimits.
type ResourceLimitsCfg struct {
	WallClockTime            string   `mapstructure:"wall_clock_time"`
	TotalUserTime            string   `mapstructure:"total_user_time"`
	IdleTimeTotal            string   `mapstructure:"idle_time_total"`
	IdleTimeCPULoadThreshold *float64 `mapstructure:"idle_time_cpu_load_threshold"`
	MaxMemoryUsage           *uint64  `mapstructure:"max_memory_usage"`
	TotalBytesWritten        *uint64  `mapstructure:"total_bytes_written"`
	TotalProcessesCreated    *uint64  `mapstructure:"total_processes_created"`
	ActiveProcesses          *uint64  `mapstructure:"active_processes"`
	ActiveNetworkConnections *uint64  `mapstructure:"active_network_connections"`
}

// Load reads and decodes path (any format viper supports: yaml, json,
// toml) into a Config, then computes GlobalEnv.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("judgeconfig: read %s: %w", path, err)
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("judgeconfig: decode %s: %w", path, err)
	}

	cfg.GlobalEnv = computeGlobalEnv(cfg)
	return &cfg, nil
}

func computeGlobalEnv(cfg Config) []string {
	e := env.New()
	for _, kv := range cfg.Env {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			e = e.WithSet(kv[:i], kv[i+1:])
		}
	}
	if cfg.UseOSEnv {
		return e.Merge(nil)
	}
	return cfg.Env
}

// ToResourceLimits converts the decoded config shape to the engine's
// model.ResourceLimits, parsing duration strings and leaving every field
// nil (unenforced) when absent from the document.
func (r ResourceLimitsCfg) ToResourceLimits() (model.ResourceLimits, error) {
	var out model.ResourceLimits

	if r.WallClockTime != "" {
		d, err := time.ParseDuration(r.WallClockTime)
		if err != nil {
			return out, fmt.Errorf("wall_clock_time: %w", err)
		}
		out.WallClockTime = &d
	}
	if r.TotalUserTime != "" {
		d, err := time.ParseDuration(r.TotalUserTime)
		if err != nil {
			return out, fmt.Errorf("total_user_time: %w", err)
		}
		out.TotalUserTime = &d
	}
	if r.IdleTimeTotal != "" {
		d, err := time.ParseDuration(r.IdleTimeTotal)
		if err != nil {
			return out, fmt.Errorf("idle_time_total: %w", err)
		}
		threshold := 0.05
		if r.IdleTimeCPULoadThreshold != nil {
			threshold = *r.IdleTimeCPULoadThreshold
		}
		out.IdleTime = &model.IdleTime{Total: d, CPULoadThreshold: threshold}
	}

	out.MaxMemoryUsage = r.MaxMemoryUsage
	out.TotalBytesWritten = r.TotalBytesWritten
	out.TotalProcessesCreated = r.TotalProcessesCreated
	out.ActiveProcesses = r.ActiveProcesses
	out.ActiveNetworkConnections = r.ActiveNetworkConnections

	return out, nil
}

// ParsedMonitorInterval parses the configured interval. It returns 0 when
// the field is unset, which leaves the engine's own default in place.
func (j JobConfig) ParsedMonitorInterval() (time.Duration, error) {
	if j.MonitorInterval == "" {
		return 0, nil
	}
	return time.ParseDuration(j.MonitorInterval)
}
