package tables

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/otacake/pricing-automation/internal/domain"
)

// YieldCurve is an immutable spot-rate lookup keyed by integer tenor.
type YieldCurve struct {
	spot map[int]float64
}

// NewYieldCurve wraps a tenor-to-spot map. The map is copied so later
// mutation of the argument cannot leak in.
func NewYieldCurve(spot map[int]float64) *YieldCurve {
	copied := make(map[int]float64, len(spot))
	for t, rate := range spot {
		copied[t] = rate
	}
	return &YieldCurve{spot: copied}
}

// FlatCurve builds a curve with a single rate for tenors 1..maxTenor.
func FlatCurve(rate float64, maxTenor int) *YieldCurve {
	spot := make(map[int]float64, maxTenor)
	for t := 1; t <= maxTenor; t++ {
		spot[t] = rate
	}
	return &YieldCurve{spot: spot}
}

// Spot returns the spot rate for the given tenor. A lookup outside
// the curve domain is a fatal input error.
func (c *YieldCurve) Spot(tenor int) (float64, error) {
	rate, ok := c.spot[tenor]
	if !ok {
		return 0, domain.Invalidf("missing spot rate for tenor %d", tenor)
	}
	return rate, nil
}

// DiscountFactor returns (1+s_t)^-t for the given tenor.
func (c *YieldCurve) DiscountFactor(tenor int) (float64, error) {
	rate, err := c.Spot(tenor)
	if err != nil {
		return 0, err
	}
	return math.Pow(1.0+rate, -float64(tenor)), nil
}

// ForwardRates derives one-year forward rates for years 0..term-1:
// f_0 = s_1 and f_t = (1+s_{t+1})^(t+1) / (1+s_t)^t - 1.
func (c *YieldCurve) ForwardRates(termYears int) ([]float64, error) {
	forwards := make([]float64, 0, termYears)
	for t := 0; t < termYears; t++ {
		spotNext, err := c.Spot(t + 1)
		if err != nil {
			return nil, err
		}
		if t == 0 {
			forwards = append(forwards, spotNext)
			continue
		}
		spotPrev, err := c.Spot(t)
		if err != nil {
			return nil, err
		}
		forward := math.Pow(1.0+spotNext, float64(t+1))/math.Pow(1.0+spotPrev, float64(t)) - 1.0
		forwards = append(forwards, forward)
	}
	return forwards, nil
}

// Scale returns a new curve with every spot rate multiplied by
// factor, used by assumption-shock sweeps.
func (c *YieldCurve) Scale(factor float64) *YieldCurve {
	scaled := make(map[int]float64, len(c.spot))
	for t, rate := range c.spot {
		scaled[t] = rate * factor
	}
	return &YieldCurve{spot: scaled}
}

// LoadSpotCurveCSV reads a spot curve from a CSV file with the header
// columns t, spot_rate.
func LoadSpotCurveCSV(path string) (*YieldCurve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spot curve %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read spot curve %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, domain.Invalidf("spot curve %s is empty", path)
	}
	cols, err := columnIndex(records[0], "t", "spot_rate")
	if err != nil {
		return nil, fmt.Errorf("spot curve %s: %w", path, err)
	}

	spot := make(map[int]float64, len(records)-1)
	for i, record := range records[1:] {
		tenor, err := strconv.Atoi(strings.TrimSpace(record[cols["t"]]))
		if err != nil {
			return nil, domain.Invalidf("spot curve %s row %d: bad tenor %q", path, i+2, record[cols["t"]])
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(record[cols["spot_rate"]]), 64)
		if err != nil {
			return nil, domain.Invalidf("spot curve %s row %d: bad rate %q", path, i+2, record[cols["spot_rate"]])
		}
		spot[tenor] = rate
	}
	return &YieldCurve{spot: spot}, nil
}
