package domain

import "fmt"

// Sex identifies the mortality column used for a model point.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Valid reports whether the sex maps to a known mortality column.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// ModelPoint is a representative policy segment priced in place of
// individual policies. Immutable once loaded.
type ModelPoint struct {
	ID                 string `yaml:"id" json:"id"`
	Sex                Sex    `yaml:"sex" json:"sex"`
	IssueAge           int    `yaml:"issue_age" json:"issue_age"`
	TermYears          int    `yaml:"term_years" json:"term_years"`
	PremiumPayingYears int    `yaml:"premium_paying_years" json:"premium_paying_years"`
	SumAssured         int64  `yaml:"sum_assured" json:"sum_assured"`
}

// Label returns a compact identifier for logs and tables. The explicit
// ID wins; otherwise a sex/age/term label is derived.
func (mp ModelPoint) Label() string {
	if mp.ID != "" {
		return mp.ID
	}
	return fmt.Sprintf("%s_age%d_term%d", mp.Sex, mp.IssueAge, mp.TermYears)
}

// Validate checks the model point invariants.
func (mp ModelPoint) Validate() error {
	if !mp.Sex.Valid() {
		return Invalidf("model point %s: unsupported sex %q", mp.Label(), mp.Sex)
	}
	if mp.IssueAge < 0 {
		return Invalidf("model point %s: issue age must be non-negative", mp.Label())
	}
	if mp.TermYears <= 0 {
		return Invalidf("model point %s: term years must be positive", mp.Label())
	}
	if mp.PremiumPayingYears <= 0 {
		return Invalidf("model point %s: premium paying years must be positive", mp.Label())
	}
	if mp.PremiumPayingYears > mp.TermYears {
		return Invalidf("model point %s: premium paying years (%d) exceed term years (%d)",
			mp.Label(), mp.PremiumPayingYears, mp.TermYears)
	}
	if mp.SumAssured <= 0 {
		return Invalidf("model point %s: sum assured must be positive", mp.Label())
	}
	return nil
}
