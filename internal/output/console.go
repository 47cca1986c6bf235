package output

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/otacake/pricing-automation/internal/domain"
)

// WriteSummaryTable renders a fixed-width profit-test summary for the
// console. The CSV and JSON artifacts carry the full precision; this
// view is for a quick read of a run.
func WriteSummaryTable(w io.Writer, results []*domain.ProfitTestResult, report *domain.ConstraintReport) error {
	fmt.Fprintln(w, strings.Repeat("=", 96))
	fmt.Fprintln(w, "PROFIT TEST SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 96))
	fmt.Fprintf(w, "%-24s %8s %12s %9s %12s %9s %8s\n",
		"MODEL POINT", "CLASS", "GROSS", "IRR", "NBV", "LOAD SRP", "PTM")
	fmt.Fprintln(w, strings.Repeat("-", 96))

	for _, res := range results {
		label := res.ModelPoint.Label()
		class := domain.ClassActive
		if report != nil {
			if c, ok := report.Classifications[label]; ok {
				class = c
			}
		}
		irr := "n/a"
		if res.IRR.Converged {
			irr = fmt.Sprintf("%.4f", res.IRR.Rate)
		}
		fmt.Fprintf(w, "%-24s %8s %12s %9s %12.0f %9.4f %8.4f\n",
			label, class, res.Premiums.GrossAnnualPremium.StringFixed(0),
			irr, res.NewBusinessValue, res.LoadingSurplusRatio,
			res.PremiumToMaturity)
	}

	fmt.Fprintln(w, strings.Repeat("-", 96))
	if report != nil {
		fmt.Fprintf(w, "Violations (active points): %d\n", report.ViolationCount)
		for _, st := range report.Statuses {
			if st.Passed {
				continue
			}
			if report.Classifications[st.ModelPointID] != domain.ClassActive {
				continue
			}
			achieved := fmt.Sprintf("%.6f", st.Achieved)
			if math.IsInf(st.Achieved, -1) {
				achieved = "-inf"
			}
			fmt.Fprintf(w, "  %-24s %-28s achieved %s vs bound %.6f\n",
				st.ModelPointID, st.Name, achieved, st.Bound)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 96))
	return nil
}
