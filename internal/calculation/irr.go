package calculation

import (
	"math"

	"github.com/otacake/pricing-automation/internal/domain"
)

const (
	irrLowerBound   = -0.999999
	irrBracketLimit = 1024.0
	irrValueTol     = 1e-12
	irrRateTol      = 1e-12
	irrMaxIter      = 200
)

// NetPresentValue discounts annual cashflows at the given rate with
// the first flow at t=0.
func NetPresentValue(cashflows []float64, rate float64) float64 {
	pv := 0.0
	for t, cf := range cashflows {
		pv += cf / math.Pow(1.0+rate, float64(t))
	}
	return pv
}

// InternalRateOfReturn solves NPV(rate) = 0 by bounded bisection. The
// upper bracket starts at 1.0 and doubles up to 1024 until a sign
// change appears. A series that never brackets a root, or that fails
// to converge within the iteration cap, yields Converged=false rather
// than an error so the caller can record it and continue the batch.
func InternalRateOfReturn(cashflows []float64) domain.IRRResult {
	if len(cashflows) == 0 {
		return domain.IRRResult{Reason: "empty cashflow series"}
	}

	low := irrLowerBound
	high := 1.0
	fLow := NetPresentValue(cashflows, low)
	fHigh := NetPresentValue(cashflows, high)
	for fLow*fHigh > 0 && high < irrBracketLimit {
		high *= 2.0
		fHigh = NetPresentValue(cashflows, high)
	}
	if fLow*fHigh > 0 {
		return domain.IRRResult{Reason: "root not bracketed"}
	}

	for i := 0; i < irrMaxIter; i++ {
		mid := (low + high) / 2.0
		fMid := NetPresentValue(cashflows, mid)
		if math.Abs(fMid) < irrValueTol {
			return domain.IRRResult{Rate: mid, Converged: true, Iterations: i + 1}
		}
		if fLow*fMid <= 0 {
			high = mid
		} else {
			low = mid
			fLow = fMid
		}
		if high-low < irrRateTol {
			return domain.IRRResult{Rate: (high + low) / 2.0, Converged: true, Iterations: i + 1}
		}
	}
	return domain.IRRResult{Iterations: irrMaxIter, Reason: "bisection did not converge"}
}
