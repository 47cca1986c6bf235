package tables

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/otacake/pricing-automation/internal/domain"
)

// MortalityRow is one mortality table row. Either rate may be absent
// when the source table covers a single sex.
type MortalityRow struct {
	Age     int
	QMale   *float64
	QFemale *float64
}

// MortalityTable is an immutable annual mortality lookup keyed by age
// and sex.
type MortalityTable struct {
	bySex map[domain.Sex]map[int]float64
}

// NewMortalityTable builds a table from rows, validating every rate.
// Rates outside [0, 1] are a fatal input error.
func NewMortalityTable(rows []MortalityRow) (*MortalityTable, error) {
	bySex := map[domain.Sex]map[int]float64{
		domain.SexMale:   {},
		domain.SexFemale: {},
	}
	for _, row := range rows {
		if row.QMale != nil {
			if err := checkRate(row.Age, domain.SexMale, *row.QMale); err != nil {
				return nil, err
			}
			bySex[domain.SexMale][row.Age] = *row.QMale
		}
		if row.QFemale != nil {
			if err := checkRate(row.Age, domain.SexFemale, *row.QFemale); err != nil {
				return nil, err
			}
			bySex[domain.SexFemale][row.Age] = *row.QFemale
		}
	}
	if len(bySex[domain.SexMale]) == 0 && len(bySex[domain.SexFemale]) == 0 {
		return nil, domain.Invalidf("mortality table has no usable rows")
	}
	return &MortalityTable{bySex: bySex}, nil
}

func checkRate(age int, sex domain.Sex, q float64) error {
	if q < 0 || q > 1 {
		return domain.Invalidf("mortality rate out of range for %s age %d: %g", sex, age, q)
	}
	return nil
}

// Q returns the annual mortality rate for the given sex and age. A
// lookup outside the table domain is a fatal input error.
func (t *MortalityTable) Q(sex domain.Sex, age int) (float64, error) {
	rates, ok := t.bySex[sex]
	if !ok {
		return 0, domain.Invalidf("unsupported sex %q", sex)
	}
	q, ok := rates[age]
	if !ok {
		return 0, domain.Invalidf("missing mortality rate for %s age %d", sex, age)
	}
	return q, nil
}

// LoadMortalityCSV reads a mortality table from a CSV file with the
// header columns age, q_male, q_female. Blank cells are treated as
// absent rates.
func LoadMortalityCSV(path string) (*MortalityTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mortality table %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read mortality table %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, domain.Invalidf("mortality table %s is empty", path)
	}

	cols, err := columnIndex(records[0], "age")
	if err != nil {
		return nil, fmt.Errorf("mortality table %s: %w", path, err)
	}
	rows := make([]MortalityRow, 0, len(records)-1)
	for i, record := range records[1:] {
		age, err := strconv.Atoi(strings.TrimSpace(record[cols["age"]]))
		if err != nil {
			return nil, domain.Invalidf("mortality table %s row %d: bad age %q", path, i+2, record[cols["age"]])
		}
		row := MortalityRow{Age: age}
		if idx, ok := cols["q_male"]; ok {
			row.QMale, err = parseOptionalRate(record[idx])
			if err != nil {
				return nil, domain.Invalidf("mortality table %s row %d: %v", path, i+2, err)
			}
		}
		if idx, ok := cols["q_female"]; ok {
			row.QFemale, err = parseOptionalRate(record[idx])
			if err != nil {
				return nil, domain.Invalidf("mortality table %s row %d: %v", path, i+2, err)
			}
		}
		rows = append(rows, row)
	}
	return NewMortalityTable(rows)
}

func parseOptionalRate(cell string) (*float64, error) {
	text := strings.TrimSpace(cell)
	if text == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("bad rate %q", cell)
	}
	return &value, nil
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return cols, nil
}
