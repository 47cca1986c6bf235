package calculation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otacake/pricing-automation/internal/domain"
)

func TestLoadingsAtPivot(t *testing.T) {
	// A 30-year-old male with a 10-year term sits at the pivot, so the
	// slopes and sex offsets drop out.
	mp := domain.ModelPoint{Sex: domain.SexMale, IssueAge: 30, TermYears: 10, PremiumPayingYears: 10, SumAssured: 1000000}
	coeffs := domain.LoadingCoefficients{
		A0: 0.03, AAge: 0.001, ATerm: 0.002, ASex: 0.005,
		B0: 0.007, BAge: 0.0003, BTerm: 0.0004, BSex: 0.001,
		G0: 0.03, GTerm: 0.002,
	}

	lv := Loadings(mp, coeffs)
	assert.InDelta(t, 0.03, lv.Alpha, 1e-15)
	assert.InDelta(t, 0.007, lv.Beta, 1e-15)
	assert.InDelta(t, 0.03, lv.Gamma, 1e-15)
}

func TestLoadingsOffsets(t *testing.T) {
	coeffs := domain.LoadingCoefficients{
		A0: 0.03, AAge: 0.001, ATerm: 0.002, ASex: 0.005,
		B0: 0.007, BAge: 0.0003, BTerm: 0.0004, BSex: 0.001,
		G0: 0.03, GTerm: 0.002,
	}
	mp := domain.ModelPoint{Sex: domain.SexFemale, IssueAge: 40, TermYears: 15, PremiumPayingYears: 15, SumAssured: 1000000}

	lv := Loadings(mp, coeffs)
	assert.InDelta(t, 0.03+0.001*10+0.002*5+0.005, lv.Alpha, 1e-12)
	assert.InDelta(t, 0.007+0.0003*10+0.0004*5+0.001, lv.Beta, 1e-12)
	assert.InDelta(t, 0.03+0.002*5, lv.Gamma, 1e-12)
}

func TestLoadingsGammaClamped(t *testing.T) {
	mp := domain.ModelPoint{Sex: domain.SexMale, IssueAge: 30, TermYears: 30, PremiumPayingYears: 30, SumAssured: 1000000}

	low := Loadings(mp, domain.LoadingCoefficients{G0: 0.01, GTerm: -0.01})
	assert.Equal(t, 0.0, low.Gamma)

	high := Loadings(mp, domain.LoadingCoefficients{G0: 0.1, GTerm: 0.05})
	assert.Equal(t, 0.5, high.Gamma)
}

func TestPremium(t *testing.T) {
	mp := domain.ModelPoint{ID: "m30", Sex: domain.SexMale, IssueAge: 30, TermYears: 10, PremiumPayingYears: 10, SumAssured: 1000000}
	lv := domain.LoadingValues{Alpha: 0.03, Beta: 0.007, Gamma: 0.03}

	quote, err := Premium(mp, 0.8, 8.0, lv)
	require.NoError(t, err)

	// net_rate = 0.8/8 = 0.1
	// gross_rate = (0.1 + 0.03/8 + 0.007) / 0.97
	assert.InDelta(t, 0.1, quote.NetRate, 1e-12)
	assert.InDelta(t, 0.11075/0.97, quote.GrossRate, 1e-12)
	assert.Equal(t, "100000", quote.NetAnnualPremium.String())
	assert.Equal(t, "114175", quote.GrossAnnualPremium.String())
	assert.Equal(t, "9515", quote.MonthlyPremium.String())
	assert.True(t, quote.LoadingPositive)
}

func TestPremiumBankersRounding(t *testing.T) {
	mp := domain.ModelPoint{Sex: domain.SexMale, IssueAge: 30, TermYears: 10, PremiumPayingYears: 10, SumAssured: 1000}

	// net 0.1105 * 1000 = 110.5 rounds to the even neighbour 110.
	quote, err := Premium(mp, 1.105, 10.0, domain.LoadingValues{})
	require.NoError(t, err)
	assert.Equal(t, "110", quote.NetAnnualPremium.String())
}

func TestPremiumRejectsDegenerateInputs(t *testing.T) {
	mp := domain.ModelPoint{Sex: domain.SexMale, IssueAge: 30, TermYears: 10, PremiumPayingYears: 10, SumAssured: 1000000}

	_, err := Premium(mp, 0.8, 0, domain.LoadingValues{})
	require.Error(t, err)
	assert.True(t, domain.IsInputValidation(err))

	_, err = Premium(mp, 0.8, 8.0, domain.LoadingValues{Gamma: 1.0})
	require.Error(t, err)
	assert.True(t, domain.IsInputValidation(err))
}

func TestPremiumNegativeLoadingReported(t *testing.T) {
	mp := domain.ModelPoint{Sex: domain.SexMale, IssueAge: 30, TermYears: 10, PremiumPayingYears: 10, SumAssured: 1000000}

	// A negative beta can push the gross premium below the net
	// premium; that is a reported condition, not an error.
	quote, err := Premium(mp, 0.8, 8.0, domain.LoadingValues{Beta: -0.02})
	require.NoError(t, err)
	assert.False(t, quote.LoadingPositive)
}
