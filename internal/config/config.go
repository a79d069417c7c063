package config

import (
	"chorddht/internal/logger"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"`
	Mode     string           `yaml:"mode"`
	File     FileLoggerConfig `yaml:"file"`
}

// ReplicationConfig configures the chain-replicated key-value layer.
type ReplicationConfig struct {
	Factor int `yaml:"factor"`
}

type FaultToleranceConfig struct {
	SuccessorListSize     int           `yaml:"successorListSize"`
	StabilizationInterval time.Duration `yaml:"stabilizationInterval"`
	FailureTimeout        time.Duration `yaml:"failureTimeout"`
}

type RegisterConfig struct {
	Enabled      bool   `yaml:"enabled"`
	HostedZoneID string `yaml:"hostedZoneId"`
	DomainSuffix string `yaml:"domainSuffix"`
	TTL          int64  `yaml:"ttl"`
}

type BootstrapConfig struct {
	Mode     string         `yaml:"mode"`
	DNSName  string         `yaml:"dnsName"`
	SRV      bool           `yaml:"srv"`
	Port     int            `yaml:"port"`
	Peers    []string       `yaml:"peers"`
	Register RegisterConfig `yaml:"register"`
}

type StorageConfig struct {
	Path         string        `yaml:"path"`
	FixInterval  time.Duration `yaml:"fixInterval"`
}

type DHTConfig struct {
	IDBits         int                  `yaml:"idBits"`
	Mode           string               `yaml:"mode"`
	Replication    ReplicationConfig    `yaml:"replication"`
	FaultTolerance FaultToleranceConfig `yaml:"faultTolerance"`
	Storage        StorageConfig        `yaml:"storage"`
	Bootstrap      BootstrapConfig      `yaml:"bootstrap"`
}

type NodeConfig struct {
	Id   string `yaml:"id"`
	Bind string `yaml:"bind"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	DHT       DHTConfig       `yaml:"dht"`
	Node      NodeConfig      `yaml:"node"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoadConfig loads the configuration from a YAML file at the given path.
// It performs only syntactic parsing; call ValidateConfig afterwards to
// check structural correctness.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnvOverrides overrides selected deployment-specific fields from
// environment variables:
//
//	NODE_ID, NODE_BIND, NODE_HOST, NODE_PORT
//	BOOTSTRAP_MODE, BOOTSTRAP_DNSNAME, BOOTSTRAP_SRV, BOOTSTRAP_PORT, BOOTSTRAP_PEERS
//	REGISTER_ENABLED, REGISTER_ZONE_ID, REGISTER_SUFFIX, REGISTER_TTL
//	TRACE_ENABLED, TRACE_EXPORTER, TRACE_ENDPOINT
//	LOGGER_ENABLED, LOGGER_LEVEL, LOGGER_ENCODING, LOGGER_MODE, LOGGER_FILE_PATH
func (cfg *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NODE_ID"); v != "" {
		cfg.Node.Id = v
	}
	if v := os.Getenv("NODE_BIND"); v != "" {
		cfg.Node.Bind = v
	} else if cfg.Node.Bind == "" {
		cfg.Node.Bind = "0.0.0.0"
	}
	if v := os.Getenv("NODE_HOST"); v != "" {
		cfg.Node.Host = v
	}
	if v := os.Getenv("NODE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Node.Port = port
		}
	}

	if v := os.Getenv("BOOTSTRAP_MODE"); v != "" {
		cfg.DHT.Bootstrap.Mode = v
	}
	if v := os.Getenv("BOOTSTRAP_DNSNAME"); v != "" {
		cfg.DHT.Bootstrap.DNSName = v
	}
	if v := os.Getenv("BOOTSTRAP_SRV"); v != "" {
		v = strings.ToLower(v)
		cfg.DHT.Bootstrap.SRV = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("BOOTSTRAP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.DHT.Bootstrap.Port = port
		}
	}
	if v := os.Getenv("BOOTSTRAP_PEERS"); v != "" {
		cfg.DHT.Bootstrap.Peers = strings.Split(v, ",")
	}
	if v := os.Getenv("TRACE_ENABLED"); v != "" {
		v = strings.ToLower(v)
		cfg.Telemetry.Tracing.Enabled = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("TRACE_EXPORTER"); v != "" {
		cfg.Telemetry.Tracing.Exporter = v
	}
	if v := os.Getenv("TRACE_ENDPOINT"); v != "" {
		cfg.Telemetry.Tracing.Endpoint = v
	}
	if v := os.Getenv("REGISTER_ENABLED"); v != "" {
		v = strings.ToLower(v)
		cfg.DHT.Bootstrap.Register.Enabled = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("REGISTER_ZONE_ID"); v != "" {
		cfg.DHT.Bootstrap.Register.HostedZoneID = v
	}
	if v := os.Getenv("REGISTER_SUFFIX"); v != "" {
		cfg.DHT.Bootstrap.Register.DomainSuffix = v
	}
	if v := os.Getenv("REGISTER_TTL"); v != "" {
		if ttl, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.DHT.Bootstrap.Register.TTL = ttl
		}
	}
	if v := os.Getenv("LOGGER_ENABLED"); v != "" {
		v = strings.ToLower(v)
		cfg.Logger.Active = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LOGGER_ENCODING"); v != "" {
		cfg.Logger.Encoding = v
	}
	if v := os.Getenv("LOGGER_MODE"); v != "" {
		cfg.Logger.Mode = v
	}
	if v := os.Getenv("LOGGER_FILE_PATH"); v != "" {
		cfg.Logger.File.Path = v
	}
}

// ValidateConfig performs structural validation of the loaded
// configuration, accumulating every problem found into a single error.
func (cfg *Config) ValidateConfig() error {
	var errs []string

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
		if cfg.Logger.File.MaxSize < 0 || cfg.Logger.File.MaxBackups < 0 || cfg.Logger.File.MaxAge < 0 {
			errs = append(errs, "logger.file.* values must be non-negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	if cfg.DHT.IDBits <= 0 {
		errs = append(errs, "dht.idBits must be > 0")
	}
	switch cfg.DHT.Mode {
	case "public", "private":
	default:
		errs = append(errs, fmt.Sprintf("invalid dht.mode: %s", cfg.DHT.Mode))
	}
	if cfg.DHT.Replication.Factor < 1 {
		errs = append(errs, "dht.replication.factor must be >= 1")
	}
	if cfg.DHT.FaultTolerance.SuccessorListSize < cfg.DHT.Replication.Factor {
		errs = append(errs, "dht.faultTolerance.successorListSize must be >= dht.replication.factor")
	}
	if cfg.DHT.FaultTolerance.StabilizationInterval <= 0 {
		errs = append(errs, "dht.faultTolerance.stabilizationInterval must be > 0")
	}
	if cfg.DHT.FaultTolerance.FailureTimeout <= 0 {
		errs = append(errs, "dht.faultTolerance.failureTimeout must be > 0")
	}
	if cfg.DHT.Storage.Path != "" && cfg.DHT.Storage.FixInterval <= 0 {
		errs = append(errs, "dht.storage.fixInterval must be > 0 when dht.storage.path is set")
	}

	b := cfg.DHT.Bootstrap
	switch b.Mode {
	case "dns":
		if b.DNSName == "" {
			errs = append(errs, "bootstrap.dnsName is required in mode=dns")
		}
		if !b.SRV && b.Port <= 0 {
			errs = append(errs, "bootstrap.port must be > 0 when using A/AAAA (srv=false)")
		}
		if b.Register.Enabled {
			if b.Register.HostedZoneID == "" {
				errs = append(errs, "bootstrap.register.hostedZoneId is required when register.enabled=true")
			}
			if b.Register.DomainSuffix == "" {
				errs = append(errs, "bootstrap.register.domainSuffix is required when register.enabled=true")
			}
			if b.Register.TTL <= 0 {
				errs = append(errs, "bootstrap.register.ttl must be > 0 when register.enabled=true")
			}
		}
	case "static":
		for _, p := range b.Peers {
			if _, _, err := net.SplitHostPort(p); err != nil {
				errs = append(errs, fmt.Sprintf("invalid peer address %q in bootstrap.peers: %v", p, err))
			}
		}
	case "init":
		// the first node of a ring has no extra constraints.
	default:
		errs = append(errs, fmt.Sprintf("invalid bootstrap.mode: %s (must be dns, static or init)", b.Mode))
	}

	if cfg.Node.Port < 0 || cfg.Node.Port > 65535 {
		errs = append(errs, fmt.Sprintf("node.port must be in [0,65535], got %d", cfg.Node.Port))
	}

	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
		if cfg.Telemetry.Tracing.Endpoint == "" && cfg.Telemetry.Tracing.Exporter == "otlp" {
			errs = append(errs, "telemetry.tracing.endpoint is required for the otlp exporter")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogConfig prints the loaded configuration at DEBUG level, useful for
// diagnosing startup issues.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.active", cfg.Logger.Active),
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),
		logger.F("logger.file.path", cfg.Logger.File.Path),

		logger.F("dht.idBits", cfg.DHT.IDBits),
		logger.F("dht.mode", cfg.DHT.Mode),
		logger.F("dht.replication.factor", cfg.DHT.Replication.Factor),

		logger.F("dht.storage.path", cfg.DHT.Storage.Path),
		logger.F("dht.storage.fixInterval", cfg.DHT.Storage.FixInterval.String()),

		logger.F("dht.faultTolerance.successorListSize", cfg.DHT.FaultTolerance.SuccessorListSize),
		logger.F("dht.faultTolerance.stabilizationInterval", cfg.DHT.FaultTolerance.StabilizationInterval.String()),
		logger.F("dht.faultTolerance.failureTimeout", cfg.DHT.FaultTolerance.FailureTimeout.String()),

		logger.F("dht.bootstrap.mode", cfg.DHT.Bootstrap.Mode),
		logger.F("dht.bootstrap.dnsName", cfg.DHT.Bootstrap.DNSName),
		logger.F("dht.bootstrap.srv", cfg.DHT.Bootstrap.SRV),
		logger.F("dht.bootstrap.port", cfg.DHT.Bootstrap.Port),
		logger.F("dht.bootstrap.peers", cfg.DHT.Bootstrap.Peers),

		logger.F("dht.bootstrap.register.enabled", cfg.DHT.Bootstrap.Register.Enabled),
		logger.F("dht.bootstrap.register.hostedZoneId", cfg.DHT.Bootstrap.Register.HostedZoneID),
		logger.F("dht.bootstrap.register.domainSuffix", cfg.DHT.Bootstrap.Register.DomainSuffix),
		logger.F("dht.bootstrap.register.ttl", cfg.DHT.Bootstrap.Register.TTL),

		logger.F("node.id", cfg.Node.Id),
		logger.F("node.bind", cfg.Node.Bind),
		logger.F("node.port", cfg.Node.Port),

		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
		logger.F("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter),
		logger.F("telemetry.tracing.endpoint", cfg.Telemetry.Tracing.Endpoint),
	)
}
