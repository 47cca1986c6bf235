package domain

// CoefficientName identifies one of the ten loading-function
// coefficients searched by the optimizer.
type CoefficientName string

const (
	CoefA0    CoefficientName = "a0"
	CoefAAge  CoefficientName = "a_age"
	CoefATerm CoefficientName = "a_term"
	CoefASex  CoefficientName = "a_sex"
	CoefB0    CoefficientName = "b0"
	CoefBAge  CoefficientName = "b_age"
	CoefBTerm CoefficientName = "b_term"
	CoefBSex  CoefficientName = "b_sex"
	CoefG0    CoefficientName = "g0"
	CoefGTerm CoefficientName = "g_term"
)

// CoefficientNames lists every coefficient in canonical order. The
// optimizer iterates in this order, which keeps the search trace
// reproducible.
var CoefficientNames = []CoefficientName{
	CoefA0, CoefAAge, CoefATerm, CoefASex,
	CoefB0, CoefBAge, CoefBTerm, CoefBSex,
	CoefG0, CoefGTerm,
}

// LoadingCoefficients parametrize the alpha/beta/gamma loading
// functions as affine functions of issue age, term and sex. Values are
// immutable snapshots; With produces a modified copy.
type LoadingCoefficients struct {
	A0    float64 `yaml:"a0" json:"a0"`
	AAge  float64 `yaml:"a_age" json:"a_age"`
	ATerm float64 `yaml:"a_term" json:"a_term"`
	ASex  float64 `yaml:"a_sex" json:"a_sex"`
	B0    float64 `yaml:"b0" json:"b0"`
	BAge  float64 `yaml:"b_age" json:"b_age"`
	BTerm float64 `yaml:"b_term" json:"b_term"`
	BSex  float64 `yaml:"b_sex" json:"b_sex"`
	G0    float64 `yaml:"g0" json:"g0"`
	GTerm float64 `yaml:"g_term" json:"g_term"`
}

// DefaultLoadingCoefficients returns the starting point used when the
// configuration does not pin explicit coefficients.
func DefaultLoadingCoefficients() LoadingCoefficients {
	return LoadingCoefficients{A0: 0.03, B0: 0.007, G0: 0.03}
}

// Value returns the named coefficient. Unknown names return zero.
func (c LoadingCoefficients) Value(name CoefficientName) float64 {
	switch name {
	case CoefA0:
		return c.A0
	case CoefAAge:
		return c.AAge
	case CoefATerm:
		return c.ATerm
	case CoefASex:
		return c.ASex
	case CoefB0:
		return c.B0
	case CoefBAge:
		return c.BAge
	case CoefBTerm:
		return c.BTerm
	case CoefBSex:
		return c.BSex
	case CoefG0:
		return c.G0
	case CoefGTerm:
		return c.GTerm
	}
	return 0
}

// With returns a copy with the named coefficient replaced.
func (c LoadingCoefficients) With(name CoefficientName, value float64) LoadingCoefficients {
	switch name {
	case CoefA0:
		c.A0 = value
	case CoefAAge:
		c.AAge = value
	case CoefATerm:
		c.ATerm = value
	case CoefASex:
		c.ASex = value
	case CoefB0:
		c.B0 = value
	case CoefBAge:
		c.BAge = value
	case CoefBTerm:
		c.BTerm = value
	case CoefBSex:
		c.BSex = value
	case CoefG0:
		c.G0 = value
	case CoefGTerm:
		c.GTerm = value
	}
	return c
}

// LoadingValues are the per-model-point alpha/beta/gamma loadings
// produced by evaluating the loading functions.
type LoadingValues struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}
