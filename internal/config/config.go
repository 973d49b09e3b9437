package config

import (
	"errors"
	"fmt"
	"futuresbacktest/types"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	envPrefix  = "BACKTEST"
	dateLayout = "2006-01-02"
)

var (
	ErrUnknownSource   = errors.New("unknown data source")
	ErrUnknownContract = errors.New("unknown contract type")
	ErrUnknownField    = errors.New("unknown price field")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidWindow   = errors.New("start date after end date")
	ErrUnknownLevel    = errors.New("unknown log level")
)

// Config represents the complete run configuration
type Config struct {
	Data       DataConfig       `yaml:"data" envconfig:"DATA"`
	Simulation SimulationConfig `yaml:"simulation" envconfig:"SIMULATION"`
	Output     OutputConfig     `yaml:"output" envconfig:"OUTPUT"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
}

// DataConfig selects where panels come from
type DataConfig struct {
	Source        string        `yaml:"source" envconfig:"SOURCE"`
	DatabaseURL   string        `yaml:"database_url" envconfig:"DATABASE_URL"`
	RedisURL      string        `yaml:"redis_url" envconfig:"REDIS_URL"`
	CacheTTL      time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
	CSVDir        string        `yaml:"csv_dir" envconfig:"CSV_DIR"`
	Strategy      string        `yaml:"strategy" envconfig:"STRATEGY"`
	Contract      string        `yaml:"contract" envconfig:"CONTRACT"`
	PriceField    string        `yaml:"price_field" envconfig:"PRICE_FIELD"`
	RollDays      int           `yaml:"roll_days" envconfig:"ROLL_DAYS"`
	IndustryGroup string        `yaml:"industry_group" envconfig:"INDUSTRY_GROUP"`
	IndustryName  string        `yaml:"industry_name" envconfig:"INDUSTRY_NAME"`
}

// SimulationConfig contains the backtest parameters
type SimulationConfig struct {
	InitialCapital float64  `yaml:"initial_capital" envconfig:"INITIAL_CAPITAL"`
	Rate           float64  `yaml:"rate" envconfig:"RATE"`
	Interest       string   `yaml:"interest" envconfig:"INTEREST"`
	Mode           string   `yaml:"mode" envconfig:"MODE"`
	Rebalance      string   `yaml:"rebalance" envconfig:"REBALANCE"`
	Period         int      `yaml:"period" envconfig:"PERIOD"`
	Dates          []string `yaml:"dates" envconfig:"DATES"`
	Start          string   `yaml:"start" envconfig:"START"`
	End            string   `yaml:"end" envconfig:"END"`
	NextOpen       bool     `yaml:"next_open" envconfig:"NEXT_OPEN"`
	Progress       bool     `yaml:"progress" envconfig:"PROGRESS"`
	Workers        int      `yaml:"workers" envconfig:"WORKERS"`
	Groups         int      `yaml:"groups" envconfig:"GROUPS"`
}

// OutputConfig contains report destinations
type OutputConfig struct {
	Dir   string `yaml:"dir" envconfig:"DIR"`
	CSV   bool   `yaml:"csv" envconfig:"CSV"`
	XLSX  bool   `yaml:"xlsx" envconfig:"XLSX"`
	Print bool   `yaml:"print" envconfig:"PRINT"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// Default returns the configuration used when neither file nor environment set a value.
func Default() Config {
	return Config{
		Data: DataConfig{
			Source:     "csv",
			CacheTTL:   24 * time.Hour,
			CSVDir:     "data",
			Contract:   "main",
			PriceField: "close",
		},
		Simulation: SimulationConfig{
			InitialCapital: 100000000,
			Interest:       string(types.Simple),
			Mode:           string(types.CrossSection),
			Rebalance:      string(types.RebalancePeriod),
			Period:         1,
			Workers:        4,
		},
		Output: OutputConfig{
			Dir:   "reports",
			CSV:   true,
			Print: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies BACKTEST_* environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

var contracts = map[string]bool{"main": true, "active_near": true}
var priceFields = map[string]bool{"close": true, "settlement": true, "open": true}
var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate rejects unknown enum strings and malformed dates. Numeric ranges are checked by
// the engine's own configs.
func (c *Config) Validate() error {
	switch c.Data.Source {
	case "postgres", "csv":
	default:
		return fmt.Errorf("%q %w", c.Data.Source, ErrUnknownSource)
	}
	if !contracts[c.Data.Contract] {
		return fmt.Errorf("%q %w", c.Data.Contract, ErrUnknownContract)
	}
	if !priceFields[c.Data.PriceField] {
		return fmt.Errorf("%q %w", c.Data.PriceField, ErrUnknownField)
	}
	if _, err := types.ParseInterest(c.Simulation.Interest); err != nil {
		return err
	}
	if _, err := types.ParseSizing(c.Simulation.Mode); err != nil {
		return err
	}
	if _, err := types.ParseRebalance(c.Simulation.Rebalance); err != nil {
		return err
	}
	if _, err := c.Simulation.RebalanceDates(); err != nil {
		return err
	}
	start, end, err := c.Simulation.Window()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return fmt.Errorf("%s > %s %w", c.Simulation.Start, c.Simulation.End, ErrInvalidWindow)
	}
	if !logLevels[c.Logging.Level] {
		return fmt.Errorf("%q %w", c.Logging.Level, ErrUnknownLevel)
	}
	return nil
}

// Window parses the start and end bounds. Empty bounds come back as the zero time.
func (s SimulationConfig) Window() (start, end time.Time, err error) {
	if start, err = parseDate(s.Start); err != nil {
		return
	}
	end, err = parseDate(s.End)
	return
}

// RebalanceDates parses the explicit rebalance calendar.
func (s SimulationConfig) RebalanceDates() ([]time.Time, error) {
	dates := make([]time.Time, 0, len(s.Dates))
	for _, d := range s.Dates {
		t, err := parseDate(d)
		if err != nil {
			return nil, err
		}
		if !t.IsZero() {
			dates = append(dates, t)
		}
	}
	return dates, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q %w", s, ErrInvalidDate)
	}
	return t, nil
}
