package calculation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otacake/pricing-automation/internal/domain"
)

const companyExpenseCSV = `year,new_policies,inforce_avg,premium_income,acq_var_total,acq_fixed_total,maint_var_total,maint_fixed_total,coll_var_total,overhead_total
2023,1000,50000,8000000000,40000000,10000000,90000000,60000000,160000000,100000000
2024,2000,60000,9000000000,50000000,30000000,120000000,60000000,180000000,120000000
`

func writeCompanyCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "expenses.csv")
	require.NoError(t, os.WriteFile(path, []byte(companyExpenseCSV), 0o644))
	return path
}

func TestLoadExpenseAssumptions(t *testing.T) {
	path := writeCompanyCSV(t)
	year := 2024

	a, err := LoadExpenseAssumptions(path, &year, 0.5, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 2024, a.Year)
	// (50m + 30m + 120m*0.5) / 2000 policies
	assert.InDelta(t, 70000.0, a.AcqPerPolicy, 1e-9)
	// (120m + 60m + 120m*0.5) / 60000 in force
	assert.InDelta(t, 4000.0, a.MaintPerPolicy, 1e-9)
	// 180m / 9bn premium
	assert.InDelta(t, 0.02, a.CollRate, 1e-12)
}

func TestLoadExpenseAssumptionsFirstRowByDefault(t *testing.T) {
	path := writeCompanyCSV(t)

	a, err := LoadExpenseAssumptions(path, nil, 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 2023, a.Year)
}

func TestLoadExpenseAssumptionsUnknownYear(t *testing.T) {
	path := writeCompanyCSV(t)
	year := 1999

	_, err := LoadExpenseAssumptions(path, &year, 0.5, 0.5)
	require.Error(t, err)
	assert.True(t, domain.IsInputValidation(err))
}

func TestLoadExpenseAssumptionsBadDenominator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	bad := `year,new_policies,inforce_avg,premium_income,acq_var_total,acq_fixed_total,maint_var_total,maint_fixed_total,coll_var_total,overhead_total
2024,0,60000,9000000000,1,1,1,1,1,1
`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	_, err := LoadExpenseAssumptions(path, nil, 0.5, 0.5)
	require.Error(t, err)
	assert.True(t, domain.IsInputValidation(err))
}

func TestLoadingProxyExpenseModel(t *testing.T) {
	mp := domain.ModelPoint{Sex: domain.SexMale, IssueAge: 30, TermYears: 10, PremiumPayingYears: 10, SumAssured: 1000000}
	lv := domain.LoadingValues{Alpha: 0.03, Beta: 0.007, Gamma: 0.03}
	model := LoadingProxyExpenseModel{}

	first := model.Expenses(0, 1.0, 100000, mp, lv)
	assert.InDelta(t, 15000.0, first.Acquisition, 1e-9, "half of alpha times sum assured at issue")
	assert.InDelta(t, 7000.0, first.Maintenance, 1e-9)
	assert.InDelta(t, 3000.0, first.Collection, 1e-9)
	assert.InDelta(t, 25000.0, first.Total(), 1e-9)

	later := model.Expenses(3, 0.9, 90000, mp, lv)
	assert.Equal(t, 0.0, later.Acquisition)
	assert.InDelta(t, 0.007*1000000*0.9, later.Maintenance, 1e-9)
	assert.InDelta(t, 0.03*90000, later.Collection, 1e-9)

	// Outside the premium paying period nothing is charged.
	after := model.Expenses(10, 0.8, 0, mp, lv)
	assert.Equal(t, 0.0, after.Total())
}

func TestTabulatedExpenseModel(t *testing.T) {
	model := TabulatedExpenseModel{Assumptions: ExpenseAssumptions{
		Year: 2024, AcqPerPolicy: 70000, MaintPerPolicy: 4000, CollRate: 0.02,
	}}
	mp := domain.ModelPoint{Sex: domain.SexMale, IssueAge: 30, TermYears: 10, PremiumPayingYears: 5, SumAssured: 1000000}
	var lv domain.LoadingValues

	first := model.Expenses(0, 1.0, 100000, mp, lv)
	assert.InDelta(t, 70000.0, first.Acquisition, 1e-9)
	assert.InDelta(t, 4000.0, first.Maintenance, 1e-9)
	assert.InDelta(t, 2000.0, first.Collection, 1e-9)

	// Maintenance follows in-force even after premiums stop.
	after := model.Expenses(7, 0.8, 0, mp, lv)
	assert.Equal(t, 0.0, after.Acquisition)
	assert.InDelta(t, 3200.0, after.Maintenance, 1e-9)
	assert.Equal(t, 0.0, after.Collection)
}

func TestScaledExpenseModel(t *testing.T) {
	inner := TabulatedExpenseModel{Assumptions: ExpenseAssumptions{AcqPerPolicy: 100, MaintPerPolicy: 10, CollRate: 0.01}}
	scaled := ScaledExpenseModel{Inner: inner, Factor: 1.1}
	mp := domain.ModelPoint{Sex: domain.SexMale, IssueAge: 30, TermYears: 10, PremiumPayingYears: 10, SumAssured: 1000000}

	base := inner.Expenses(0, 1.0, 1000, mp, domain.LoadingValues{})
	shocked := scaled.Expenses(0, 1.0, 1000, mp, domain.LoadingValues{})
	assert.InDelta(t, base.Total()*1.1, shocked.Total(), 1e-9)
}
