// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/spf13/viper"

	"firestige.xyz/pktforge/internal/core"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `pktforge:` root key in YAML.
type GlobalConfig struct {
	Log    LogConfig    `mapstructure:"log"`
	Build  BuildConfig  `mapstructure:"build"`
	Decode DecodeConfig `mapstructure:"decode"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level     string           `mapstructure:"level"`   // trace / debug / info / warn / error
	Pattern   string           `mapstructure:"pattern"` // %time %level %field %msg %caller %func %goroutine
	Time      string           `mapstructure:"time"`    // Go time layout
	Appenders []AppenderConfig `mapstructure:"appenders"`
}

// AppenderConfig configures one log output. Options are appender specific
// and decoded by the log package.
type AppenderConfig struct {
	Type    string                 `mapstructure:"type"` // console | file
	Options map[string]interface{} `mapstructure:"options"`
}

// ─── Build ───

// BuildConfig holds defaults for datagrams built from the command line.
type BuildConfig struct {
	SrcIP   string `mapstructure:"src_ip"`
	DstIP   string `mapstructure:"dst_ip"`
	SrcPort int    `mapstructure:"src_port"`
	DstPort int    `mapstructure:"dst_port"`
}

// ─── Decode ───

// DecodeConfig controls how captures are decoded and printed.
type DecodeConfig struct {
	LinkType       string `mapstructure:"link_type"` // ethernet | raw | ipv4 | ipv6
	Output         string `mapstructure:"output"`    // text | yaml
	VerifyChecksum bool   `mapstructure:"verify_checksum"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `pktforge: ...`.
type configRoot struct {
	Pktforge GlobalConfig `mapstructure:"pktforge"`
}

// Load loads configuration from file. An empty path yields the defaults,
// still subject to env overrides (PKTFORGE_LOG_LEVEL, PKTFORGE_BUILD_SRC_IP, ...).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Key "pktforge.log.level" maps to env "PKTFORGE_LOG_LEVEL".
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Pktforge

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("pktforge.log.level", "info")
	v.SetDefault("pktforge.log.pattern", "%time [%level] %msg %field\n")
	v.SetDefault("pktforge.log.time", "2006-01-02 15:04:05")

	// Build defaults
	v.SetDefault("pktforge.build.src_ip", "127.0.0.1")
	v.SetDefault("pktforge.build.dst_ip", "127.0.0.1")
	v.SetDefault("pktforge.build.src_port", 0)
	v.SetDefault("pktforge.build.dst_port", 0)

	// Decode defaults
	v.SetDefault("pktforge.decode.link_type", "ethernet")
	v.SetDefault("pktforge.decode.output", "text")
	v.SetDefault("pktforge.decode.verify_checksum", false)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log ──
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %q (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if len(cfg.Log.Appenders) == 0 {
		cfg.Log.Appenders = []AppenderConfig{{Type: "console"}}
	}
	for i, a := range cfg.Log.Appenders {
		switch a.Type {
		case "console":
		case "file":
			if name, _ := a.Options["filename"].(string); name == "" {
				return fmt.Errorf("%w: log.appenders[%d]: file appender requires options.filename", core.ErrConfigInvalid, i)
			}
		default:
			return fmt.Errorf("%w: log.appenders[%d]: unknown type %q (must be console/file)", core.ErrConfigInvalid, i, a.Type)
		}
	}

	// ── Build ──
	for name, addr := range map[string]string{"build.src_ip": cfg.Build.SrcIP, "build.dst_ip": cfg.Build.DstIP} {
		if addr == "" {
			continue
		}
		if _, err := netip.ParseAddr(addr); err != nil {
			return fmt.Errorf("%w: %s: %v", core.ErrConfigInvalid, name, err)
		}
	}
	for name, port := range map[string]int{"build.src_port": cfg.Build.SrcPort, "build.dst_port": cfg.Build.DstPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%w: %s %d out of range", core.ErrConfigInvalid, name, port)
		}
	}

	// ── Decode ──
	switch strings.ToLower(cfg.Decode.LinkType) {
	case "ethernet", "en10mb", "raw", "ipv4", "ipv6":
	default:
		return fmt.Errorf("%w: decode.link_type %q (must be ethernet/raw/ipv4/ipv6)", core.ErrConfigInvalid, cfg.Decode.LinkType)
	}
	if cfg.Decode.Output != "text" && cfg.Decode.Output != "yaml" {
		return fmt.Errorf("%w: decode.output %q (must be text/yaml)", core.ErrConfigInvalid, cfg.Decode.Output)
	}

	return nil
}
