package calculation

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/otacake/pricing-automation/internal/domain"
)

// YearlyExpenses is one projection year's expense outgo for a model
// point, split by driver.
type YearlyExpenses struct {
	Acquisition float64
	Maintenance float64
	Collection  float64
}

// Total sums the expense components.
func (e YearlyExpenses) Total() float64 {
	return e.Acquisition + e.Maintenance + e.Collection
}

// ExpenseModel supplies per-year expense outgo to the profit test.
// One implementation exists per expense-assumption source; the mode is
// chosen once at construction, not dispatched per call.
type ExpenseModel interface {
	// Expenses returns the expense outgo for projection year t given
	// the opening in-force proportion and the year's premium income.
	Expenses(t int, openingInforce, premiumIncome float64, mp domain.ModelPoint, lv domain.LoadingValues) YearlyExpenses
}

// LoadingProxyExpenseModel derives expenses directly from the loading
// values: half of alpha as acquisition at issue, beta per sum assured
// as maintenance, gamma per premium as collection.
type LoadingProxyExpenseModel struct{}

func (LoadingProxyExpenseModel) Expenses(t int, openingInforce, premiumIncome float64, mp domain.ModelPoint, lv domain.LoadingValues) YearlyExpenses {
	var out YearlyExpenses
	if t == 0 {
		out.Acquisition = 0.5 * lv.Alpha * float64(mp.SumAssured)
	}
	if t < mp.PremiumPayingYears {
		out.Maintenance = openingInforce * float64(mp.SumAssured) * lv.Beta
		out.Collection = premiumIncome * lv.Gamma
	}
	return out
}

// ExpenseAssumptions are per-policy unit costs derived from company
// expense experience.
type ExpenseAssumptions struct {
	Year           int     `json:"year"`
	AcqPerPolicy   float64 `json:"acq_per_policy"`
	MaintPerPolicy float64 `json:"maint_per_policy"`
	CollRate       float64 `json:"coll_rate"`
}

// TabulatedExpenseModel charges tabulated per-policy unit costs:
// acquisition at issue, maintenance per in-force year, and a
// premium-proportional collection rate.
type TabulatedExpenseModel struct {
	Assumptions ExpenseAssumptions
}

func (m TabulatedExpenseModel) Expenses(t int, openingInforce, premiumIncome float64, mp domain.ModelPoint, lv domain.LoadingValues) YearlyExpenses {
	var out YearlyExpenses
	if t == 0 {
		out.Acquisition = m.Assumptions.AcqPerPolicy * openingInforce
	}
	out.Maintenance = m.Assumptions.MaintPerPolicy * openingInforce
	out.Collection = m.Assumptions.CollRate * premiumIncome
	return out
}

// ScaledExpenseModel multiplies another model's outgo by a fixed
// factor; assumption-shock sweeps use it to stress expenses without
// rebuilding the underlying source.
type ScaledExpenseModel struct {
	Inner  ExpenseModel
	Factor float64
}

func (m ScaledExpenseModel) Expenses(t int, openingInforce, premiumIncome float64, mp domain.ModelPoint, lv domain.LoadingValues) YearlyExpenses {
	inner := m.Inner.Expenses(t, openingInforce, premiumIncome, mp, lv)
	return YearlyExpenses{
		Acquisition: inner.Acquisition * m.Factor,
		Maintenance: inner.Maintenance * m.Factor,
		Collection:  inner.Collection * m.Factor,
	}
}

// LoadExpenseAssumptions derives unit costs from a company expense CSV
// with columns year, new_policies, inforce_avg, premium_income,
// acq_var_total, acq_fixed_total, maint_var_total, maint_fixed_total,
// coll_var_total, overhead_total. Overhead is apportioned by the
// acquisition/maintenance split. A negative derived unit cost is a
// fatal input error, never clamped.
func LoadExpenseAssumptions(path string, year *int, overheadSplitAcq, overheadSplitMaint float64) (ExpenseAssumptions, error) {
	f, err := os.Open(path)
	if err != nil {
		return ExpenseAssumptions{}, fmt.Errorf("failed to open company expense file %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return ExpenseAssumptions{}, fmt.Errorf("failed to read company expense file %s: %w", path, err)
	}
	if len(records) < 2 {
		return ExpenseAssumptions{}, domain.Invalidf("company expense file %s is empty", path)
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}

	var row []string
	if year == nil {
		row = records[1]
	} else {
		for _, candidate := range records[1:] {
			y, err := expenseField(candidate, cols, "year")
			if err != nil {
				return ExpenseAssumptions{}, err
			}
			if int(y) == *year {
				row = candidate
				break
			}
		}
		if row == nil {
			return ExpenseAssumptions{}, domain.Invalidf("company expense year not found: %d", *year)
		}
	}

	get := func(name string) (float64, error) { return expenseField(row, cols, name) }

	rowYear, err := get("year")
	if err != nil {
		return ExpenseAssumptions{}, err
	}
	newPolicies, err := get("new_policies")
	if err != nil {
		return ExpenseAssumptions{}, err
	}
	inforceAvg, err := get("inforce_avg")
	if err != nil {
		return ExpenseAssumptions{}, err
	}
	premiumIncome, err := get("premium_income")
	if err != nil {
		return ExpenseAssumptions{}, err
	}
	if newPolicies <= 0 || inforceAvg <= 0 || premiumIncome <= 0 {
		return ExpenseAssumptions{}, domain.Invalidf("company expense denominators must be positive")
	}

	acqVar, err := get("acq_var_total")
	if err != nil {
		return ExpenseAssumptions{}, err
	}
	acqFixed, err := get("acq_fixed_total")
	if err != nil {
		return ExpenseAssumptions{}, err
	}
	maintVar, err := get("maint_var_total")
	if err != nil {
		return ExpenseAssumptions{}, err
	}
	maintFixed, err := get("maint_fixed_total")
	if err != nil {
		return ExpenseAssumptions{}, err
	}
	collVar, err := get("coll_var_total")
	if err != nil {
		return ExpenseAssumptions{}, err
	}
	overhead, err := get("overhead_total")
	if err != nil {
		return ExpenseAssumptions{}, err
	}

	assumptions := ExpenseAssumptions{
		Year:           int(rowYear),
		AcqPerPolicy:   (acqVar + acqFixed + overhead*overheadSplitAcq) / newPolicies,
		MaintPerPolicy: (maintVar + maintFixed + overhead*overheadSplitMaint) / inforceAvg,
		CollRate:       collVar / premiumIncome,
	}
	if assumptions.AcqPerPolicy < 0 || assumptions.MaintPerPolicy < 0 || assumptions.CollRate < 0 {
		return ExpenseAssumptions{}, domain.Invalidf(
			"derived unit cost is negative (acq=%.2f maint=%.2f coll=%.6f)",
			assumptions.AcqPerPolicy, assumptions.MaintPerPolicy, assumptions.CollRate)
	}
	return assumptions, nil
}

func expenseField(row []string, cols map[string]int, name string) (float64, error) {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return 0, domain.Invalidf("company expense file missing column %q", name)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return 0, domain.Invalidf("company expense column %q: bad value %q", name, row[idx])
	}
	return value, nil
}
