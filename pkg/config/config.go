package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// ParseCommandFlags defines and parses the daemon's command-line flags.
func ParseCommandFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "ops HTTP listen address")
	dbPtr := flag.String("db", "./.agentdesk", "pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: set}
}

// ResolveConfigPath decides the config file path: an explicit --config flag
// wins, then AGENTDESK_CONFIG, then the flag default.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if v := os.Getenv("AGENTDESK_CONFIG"); v != "" {
		return v
	}
	return flagPath
}

// Load reads and parses the YAML config at path. A missing file is not an
// error; callers get a zero config plus exists=false.
func Load(path string) (*Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, true, err
	}
	return &cfg, true, nil
}

// applyEnv overlays environment overrides onto cfg. Envs win over the file
// so deployments can keep secrets out of it.
func applyEnv(cfg *Config) {
	if v := os.Getenv("AGENTDESK_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("AGENTDESK_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("AGENTDESK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AGENTDESK_REASONING_ENDPOINT"); v != "" {
		cfg.Reasoning.Endpoint = v
	}
	if v := os.Getenv("AGENTDESK_REASONING_API_KEY"); v != "" {
		cfg.Reasoning.APIKey = v
	}
	if v := os.Getenv("AGENTDESK_REASONING_MODEL"); v != "" {
		cfg.Reasoning.Model = v
	}
	if v := os.Getenv("AGENTDESK_QUEUE_BACKEND"); v != "" {
		cfg.Delivery.Queue.Backend = v
	}
	if v := os.Getenv("AGENTDESK_KAFKA_BROKERS"); v != "" {
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		cfg.Delivery.Queue.Kafka.Brokers = parts
	}
	if v := os.Getenv("AGENTDESK_WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Delivery.Worker.Concurrency = n
		}
	}
	if v := os.Getenv("AGENTDESK_SMTP_HOST"); v != "" {
		cfg.Delivery.SMTP.Host = v
	}
	if v := os.Getenv("AGENTDESK_SMTP_PASSWORD"); v != "" {
		cfg.Delivery.SMTP.Password = v
	}
}

// LoadEffective loads the config file at path, applies env overrides and
// defaults, and returns the canonical runtime config.
func LoadEffective(path string) (*Config, error) {
	cfg, _, err := Load(path)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
