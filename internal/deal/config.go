// Package deal loads a deal's configuration file and assembles the
// component tree — schedule, fees, triggers, tranches, waterfall — for
// the engine. Every deal built here owns its components exclusively.
package deal

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the top-level deal configuration. Monetary amounts and rates
// are decimal strings; they are parsed during Build so a malformed value
// is caught before any component exists.
type Config struct {
	Name             string          `yaml:"name"`
	Periods          int             `yaml:"periods"`
	FirstPeriodBegin string          `yaml:"first_period_begin"` // YYYY-MM-DD
	FrequencyMonths  int             `yaml:"frequency_months"`
	DayCount         string          `yaml:"day_count"`
	IndexRate        string          `yaml:"index_rate"`
	CollateralPar    string          `yaml:"collateral_par"`
	Tranches         []TrancheConfig `yaml:"tranches"`
	Fees             []FeeConfig     `yaml:"fees"`
	OCTriggers       []TriggerConfig `yaml:"oc_triggers"`
	ICTriggers       []TriggerConfig `yaml:"ic_triggers"`
	Waterfall        []StepConfig    `yaml:"waterfall"`
}

// TrancheConfig declares one liability class. List order is seniority
// order, most senior first.
type TrancheConfig struct {
	Name    string `yaml:"name"`
	Coupon  string `yaml:"coupon"`
	Balance string `yaml:"balance"`
}

// FeeConfig declares one fee schedule.
type FeeConfig struct {
	Name             string `yaml:"name"`
	Basis            string `yaml:"basis"` // beginning | average | fixed
	AnnualRate       string `yaml:"annual_rate"`
	FixedAmount      string `yaml:"fixed_amount"`
	InterestOnUnpaid bool   `yaml:"interest_on_unpaid"`
	Spread           string `yaml:"spread"`
}

// TriggerConfig declares one coverage trigger and the tranche classes it
// covers.
type TriggerConfig struct {
	Name      string   `yaml:"name"`
	Threshold string   `yaml:"threshold"`
	Tranches  []string `yaml:"tranches"`
}

// StepConfig is one entry in the priority-ordered waterfall. Target names
// a fee, trigger, or tranche depending on type; residual steps have none.
type StepConfig struct {
	Type   string   `yaml:"type"`
	Target string   `yaml:"target,omitempty"`
	Bucket string   `yaml:"bucket"`
	Gates  []string `yaml:"gates,omitempty"` // trigger names that defer this step when failing
}

// Load reads a deal configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "deal: read config %s", path)
	}
	var wrapper struct {
		Deal Config `yaml:"deal"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "deal: parse config")
	}
	cfg := wrapper.Deal
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Name == "" {
		return eris.New("deal: name is required")
	}
	if c.Periods <= 0 {
		return eris.Errorf("deal %s: periods must be positive, got %d", c.Name, c.Periods)
	}
	if c.FrequencyMonths <= 0 {
		return eris.Errorf("deal %s: frequency_months must be positive, got %d", c.Name, c.FrequencyMonths)
	}
	if _, err := time.Parse("2006-01-02", c.FirstPeriodBegin); err != nil {
		return eris.Wrapf(err, "deal %s: first_period_begin", c.Name)
	}
	if len(c.Tranches) == 0 {
		return eris.Errorf("deal %s: at least one tranche is required", c.Name)
	}
	if len(c.Waterfall) == 0 {
		return eris.Errorf("deal %s: waterfall step list is required", c.Name)
	}
	return nil
}

// parseAmount parses a decimal string, treating empty as zero.
func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, eris.Wrapf(err, "deal: %s", field)
	}
	return d, nil
}
