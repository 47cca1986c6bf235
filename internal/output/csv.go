// Package output writes run artifacts: CSV grids for spreadsheets and
// JSON for downstream tooling.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/otacake/pricing-automation/internal/domain"
	"github.com/otacake/pricing-automation/internal/sweep"
)

// WriteSummaryCSV writes one row per model point with premiums and
// derived metrics.
func WriteSummaryCSV(path string, results []*domain.ProfitTestResult) error {
	return writeCSV(path, func(w *csv.Writer) error {
		header := []string{
			"model_point", "sex", "issue_age", "term_years", "premium_paying_years",
			"sum_assured", "net_annual_premium", "gross_annual_premium", "monthly_premium",
			"irr", "irr_converged", "new_business_value", "pv_loading", "pv_expense",
			"loading_surplus", "loading_surplus_ratio", "premium_total", "premium_to_maturity",
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, res := range results {
			mp := res.ModelPoint
			row := []string{
				mp.Label(),
				string(mp.Sex),
				strconv.Itoa(mp.IssueAge),
				strconv.Itoa(mp.TermYears),
				strconv.Itoa(mp.PremiumPayingYears),
				strconv.FormatInt(mp.SumAssured, 10),
				res.Premiums.NetAnnualPremium.StringFixed(0),
				res.Premiums.GrossAnnualPremium.StringFixed(0),
				res.Premiums.MonthlyPremium.StringFixed(0),
				formatFloat(res.IRR.Rate),
				strconv.FormatBool(res.IRR.Converged),
				formatFloat(res.NewBusinessValue),
				formatFloat(res.PVLoading),
				formatFloat(res.PVExpense),
				formatFloat(res.LoadingSurplus),
				formatFloat(res.LoadingSurplusRatio),
				formatFloat(res.PremiumTotal),
				formatFloat(res.PremiumToMaturity),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCashflowCSV writes the full per-year series for one model
// point.
func WriteCashflowCSV(path string, res *domain.ProfitTestResult) error {
	if res.Cashflows == nil {
		return domain.Invalidf("cashflow series was not retained for %s", res.ModelPoint.Label())
	}
	return writeCSV(path, func(w *csv.Writer) error {
		header := []string{
			"t", "inforce_begin", "inforce_end", "death_rate", "lapse_rate",
			"premium_income", "net_premium_income", "loading_income", "investment_income",
			"death_benefit", "surrender_benefit", "maturity_benefit",
			"expenses_acq", "expenses_maint", "expenses_coll", "expenses_total",
			"reserve_change", "net_cf", "spot_rate", "forward_rate", "spot_df",
			"pv_net_cf", "pv_loading", "pv_expense",
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, year := range res.Cashflows {
			row := []string{
				strconv.Itoa(year.Year),
				formatFloat(year.OpeningInforce),
				formatFloat(year.ClosingInforce),
				formatFloat(year.DeathRate),
				formatFloat(year.LapseRate),
				formatFloat(year.PremiumIncome),
				formatFloat(year.NetPremiumIncome),
				formatFloat(year.LoadingIncome),
				formatFloat(year.InvestmentIncome),
				formatFloat(year.DeathBenefit),
				formatFloat(year.SurrenderBenefit),
				formatFloat(year.MaturityBenefit),
				formatFloat(year.AcquisitionExpense),
				formatFloat(year.MaintenanceExpense),
				formatFloat(year.CollectionExpense),
				formatFloat(year.TotalExpense),
				formatFloat(year.ReserveChange),
				formatFloat(year.NetCashflow),
				formatFloat(year.SpotRate),
				formatFloat(year.ForwardRate),
				formatFloat(year.DiscountFactor),
				formatFloat(year.PresentValue),
				formatFloat(year.PVLoading),
				formatFloat(year.PVExpense),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteSweepCSV writes the premium-to-maturity sweep grid, all model
// points stacked.
func WriteSweepCSV(path string, results []*sweep.PTMResult) error {
	return writeCSV(path, func(w *csv.Writer) error {
		header := []string{
			"model_point_id", "r", "gross_annual_premium", "irr", "irr_converged",
			"nbv", "loading_surplus", "loading_surplus_ratio", "premium_to_maturity",
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, result := range results {
			for _, point := range result.Points {
				row := []string{
					result.ModelPointID,
					formatFloat(point.R),
					point.GrossAnnualPremium.StringFixed(0),
					formatFloat(point.IRR.Rate),
					strconv.FormatBool(point.IRR.Converged),
					formatFloat(point.NBV),
					formatFloat(point.LoadingSurplus),
					formatFloat(point.LoadingSurplusRatio),
					formatFloat(point.PremiumToMaturity),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// WriteShockCSV writes one row per shock scenario with worst-case
// metrics.
func WriteShockCSV(path string, results []sweep.ShockResult) error {
	return writeCSV(path, func(w *csv.Writer) error {
		header := []string{
			"shock", "interest_factor", "lapse_factor", "expense_factor",
			"worst_irr", "mean_irr", "worst_nbv", "worst_premium_to_maturity", "violation_count",
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, result := range results {
			row := []string{
				result.Shock.Name,
				formatFloat(result.Shock.InterestFactor),
				formatFloat(result.Shock.LapseFactor),
				formatFloat(result.Shock.ExpenseFactor),
				formatFloat(result.WorstIRR),
				formatFloat(result.MeanIRR),
				formatFloat(result.WorstNBV),
				formatFloat(result.WorstPTM),
				strconv.Itoa(result.ViolationCount),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteConstraintCSV writes the per-point constraint slack table.
func WriteConstraintCSV(path string, report *domain.ConstraintReport) error {
	return writeCSV(path, func(w *csv.Writer) error {
		header := []string{"model_point_id", "classification", "constraint", "bound", "achieved", "slack", "passed"}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, st := range report.Statuses {
			row := []string{
				st.ModelPointID,
				string(report.Classifications[st.ModelPointID]),
				st.Name,
				formatFloat(st.Bound),
				formatFloat(st.Achieved),
				formatFloat(st.Slack),
				strconv.FormatBool(st.Passed),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCSV(path string, fill func(w *csv.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := fill(w); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
