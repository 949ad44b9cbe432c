package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the rate configuration used to price an order. It is passed
// explicitly into order creation so pricing stays deterministic; there is no
// process-wide current preset.
type Config struct {
	RatePerKM   decimal.Decimal
	MinimumFare decimal.Decimal
}

// Presets returns the built-in rate configurations keyed by preset name.
func Presets() map[string]Config {
	return map[string]Config{
		"standard":  {RatePerKM: decimal.NewFromInt(10), MinimumFare: decimal.NewFromInt(50)},
		"rush_hour": {RatePerKM: decimal.NewFromInt(15), MinimumFare: decimal.NewFromInt(70)},
		"off_peak":  {RatePerKM: decimal.NewFromInt(8), MinimumFare: decimal.NewFromInt(40)},
		"weekend":   {RatePerKM: decimal.NewFromInt(12), MinimumFare: decimal.NewFromInt(60)},
	}
}

// PresetConfig looks up a preset by name.
func PresetConfig(name string) (Config, error) {
	cfg, ok := Presets()[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown pricing preset %q", name)
	}
	return cfg, nil
}

// Calculate returns the price for a distance: distance * rate, floored at the
// minimum fare, rounded to two decimal places.
func (c Config) Calculate(distanceKM decimal.Decimal) decimal.Decimal {
	price := distanceKM.Mul(c.RatePerKM)
	if price.LessThan(c.MinimumFare) {
		price = c.MinimumFare
	}
	return price.Round(2)
}
