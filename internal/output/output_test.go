package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/otacake/pricing-automation/internal/domain"
	"github.com/otacake/pricing-automation/internal/sweep"
)

func sampleResult() *domain.ProfitTestResult {
	return &domain.ProfitTestResult{
		ModelPoint: domain.ModelPoint{ID: "m30", Sex: domain.SexMale, IssueAge: 30, TermYears: 10, PremiumPayingYears: 10, SumAssured: 10000000},
		Premiums: domain.PremiumQuote{
			NetAnnualPremium:   decimal.NewFromInt(995480),
			GrossAnnualPremium: decimal.NewFromInt(1130000),
			MonthlyPremium:     decimal.NewFromInt(94167),
		},
		IRR:               domain.IRRResult{Rate: 0.085, Converged: true},
		NewBusinessValue:  123456.78,
		PremiumTotal:      11300000,
		PremiumToMaturity: 1.13,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteSummaryCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "summary.csv")

	require.NoError(t, WriteSummaryCSV(path, []*domain.ProfitTestResult{sampleResult()}))

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "model_point", records[0][0])
	assert.Equal(t, "m30", records[1][0])
	assert.Contains(t, records[1], "1130000")
	assert.Contains(t, records[1], "0.085")
}

func TestWriteCashflowCSVRequiresSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cashflow.csv")

	err := WriteCashflowCSV(path, sampleResult())
	require.Error(t, err)
	assert.True(t, domain.IsInputValidation(err))
}

func TestWriteSweepCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.csv")
	results := []*sweep.PTMResult{{
		ModelPointID: "m30",
		Points: []sweep.PTMPoint{
			{R: 1.0, GrossAnnualPremium: decimal.NewFromInt(1000000), IRR: domain.IRRResult{Rate: 0.05, Converged: true}},
			{R: 1.01, GrossAnnualPremium: decimal.NewFromInt(1010000), IRR: domain.IRRResult{Rate: 0.06, Converged: true}},
		},
		MinQualifying: 1.01,
		Found:         true,
	}}

	require.NoError(t, WriteSweepCSV(path, results))
	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, "1.01", records[2][1])
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")

	require.NoError(t, WriteJSON(path, []*domain.ProfitTestResult{sampleResult()}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []domain.ProfitTestResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "m30", decoded[0].ModelPoint.ID)
	assert.Equal(t, 0.085, decoded[0].IRR.Rate)
}

func TestWriteOptimizedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimized_config.yaml")
	result := &domain.OptimizationResult{
		Coefficients: domain.LoadingCoefficients{A0: 0.035, B0: 0.007, G0: 0.04},
		Objective:    0.081,
		Feasible:     true,
		Iterations:   120,
		Results:      []*domain.ProfitTestResult{sampleResult()},
		Report:       &domain.ConstraintReport{},
		ExemptModelPoints: map[string]string{
			"f60_t5": "no attainable premium in range",
		},
	}

	require.NoError(t, WriteOptimizedConfig(path, result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded OptimizedConfig
	require.NoError(t, yaml.Unmarshal(data, &decoded))

	assert.Equal(t, 0.035, decoded.LoadingParameters.A0)
	assert.True(t, decoded.Summary.Success)
	assert.Equal(t, 0.081, decoded.Summary.Objective)
	assert.Equal(t, []string{"f60_t5"}, decoded.Summary.ExemptModelPoints)
	require.NotNil(t, decoded.Summary.MinIRR)
	assert.Equal(t, 0.085, *decoded.Summary.MinIRR)
}

func TestWriteSummaryTable(t *testing.T) {
	res := sampleResult()
	report := &domain.ConstraintReport{
		Statuses: []domain.ConstraintStatus{
			{Name: "irr_floor", ModelPointID: "m30", Bound: 0.09, Achieved: 0.085, Slack: -0.005},
		},
		Classifications: map[string]domain.Classification{"m30": domain.ClassActive},
		ViolationCount:  1,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryTable(&buf, []*domain.ProfitTestResult{res}, report))

	out := buf.String()
	assert.Contains(t, out, "m30")
	assert.Contains(t, out, "1130000")
	assert.Contains(t, out, "0.0850")
	assert.Contains(t, out, "Violations (active points): 1")
	assert.Contains(t, out, "irr_floor")
}

func TestWriteSummaryTableUnconvergedIRR(t *testing.T) {
	res := sampleResult()
	res.IRR = domain.IRRResult{Converged: false, Reason: "root not bracketed"}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryTable(&buf, []*domain.ProfitTestResult{res}, nil))
	assert.Contains(t, buf.String(), "n/a")
}
