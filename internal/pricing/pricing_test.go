package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculate_DistanceTimesRate(t *testing.T) {
	t.Parallel()

	cfg := Config{RatePerKM: decimal.NewFromInt(10), MinimumFare: decimal.NewFromInt(50)}

	got := cfg.Calculate(decimal.NewFromInt(12))
	if !got.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected 120, got %s", got)
	}
}

func TestCalculate_MinimumFareFloor(t *testing.T) {
	t.Parallel()

	cfg := Config{RatePerKM: decimal.NewFromInt(10), MinimumFare: decimal.NewFromInt(50)}

	got := cfg.Calculate(decimal.NewFromInt(3))
	if !got.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected minimum fare 50, got %s", got)
	}
}

func TestCalculate_RoundsToTwoPlaces(t *testing.T) {
	t.Parallel()

	cfg := Config{RatePerKM: decimal.RequireFromString("10.333"), MinimumFare: decimal.NewFromInt(1)}

	got := cfg.Calculate(decimal.RequireFromString("7.1"))
	// 7.1 * 10.333 = 73.3643 -> 73.36
	if !got.Equal(decimal.RequireFromString("73.36")) {
		t.Errorf("expected 73.36, got %s", got)
	}
}

func TestPresetConfig(t *testing.T) {
	t.Parallel()

	rush, err := PresetConfig("rush_hour")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rush.RatePerKM.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected rush hour rate 15, got %s", rush.RatePerKM)
	}
	if !rush.MinimumFare.Equal(decimal.NewFromInt(70)) {
		t.Errorf("expected rush hour minimum 70, got %s", rush.MinimumFare)
	}

	if _, err := PresetConfig("happy_hour"); err == nil {
		t.Error("expected an error for an unknown preset")
	}
}

func TestPresets_RushHourAboveStandard(t *testing.T) {
	t.Parallel()

	presets := Presets()
	distance := decimal.NewFromInt(10)

	standard := presets["standard"].Calculate(distance)
	rush := presets["rush_hour"].Calculate(distance)

	if !rush.GreaterThan(standard) {
		t.Errorf("rush hour fare %s should exceed standard %s", rush, standard)
	}
}
