package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/rgehrsitz/donormatch/internal/donor"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport() *Report {
	report := &Report{
		DonorsFile:     "donors.yaml",
		ParametersFile: "parameters.yaml",
		Rows: []Row{
			{
				ID:        "single-worker",
				Draw:      "0.420000",
				Household: domain.Household{SimulatedYear: 2030, Adults: 1, OriginalIncomePerWeek: 610},
				Imputation: &domain.Imputation{
					DisposableIncomePerWeek: decimal.NewFromFloat(512.25),
					BenefitsPerWeek:         decimal.NewFromFloat(12),
					GrossIncomePerWeek:      decimal.NewFromInt(610),
					DonorID:                 "tu00042",
					MatchQuality:            domain.NewMatchQuality(1, 37, 5),
					SystemYear:              2015,
					Regime:                  1,
					PoolSize:                37,
					PreferredCount:          5,
				},
			},
			{
				ID:        "lone-parent",
				Draw:      "average",
				Household: domain.Household{SimulatedYear: 2030, Adults: 1, OriginalIncomePerWeek: 140},
				Imputation: &domain.Imputation{
					DisposableIncomePerWeek: decimal.NewFromFloat(301.75),
					BenefitsPerWeek:         decimal.NewFromFloat(170),
					GrossIncomePerWeek:      decimal.NewFromInt(140),
					MatchQuality:            domain.NewMatchQuality(3, 12, 4),
					SystemYear:              2015,
					Regime:                  3,
					PoolSize:                12,
					PreferredCount:          4,
					LowIncome:               true,
					Averaged:                true,
				},
			},
			{
				ID:        "broken",
				Draw:      "0.100000",
				Household: domain.Household{SimulatedYear: 2031, Adults: 3},
				Error:     "adult count must be 1 or 2, got 3",
			},
		},
		IndexStats: []donor.ListStats{{SystemYear: 2015, Regime: 0, Lists: 12, Smallest: 1, Largest: 40, Below10: 7}},
	}
	report.Summarize(1)
	return report
}

func TestSummarize(t *testing.T) {
	s := sampleReport().Summary
	assert.Equal(t, 3, s.Households)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.LowIncome)
	assert.Equal(t, 1, s.ImperfectMatches)
	assert.Equal(t, [domain.NumRegimes]int{0, 1, 0, 1, 0}, s.ByRegime)
	assert.Equal(t, "407.00", s.MeanDisposable.StringFixed(2))
	assert.Equal(t, "91.00", s.MeanBenefits.StringFixed(2))

	empty := &Report{}
	empty.Summarize(0)
	assert.True(t, empty.Summary.MeanDisposable.IsZero())
}

func TestNewFormatter(t *testing.T) {
	for _, name := range []string{"console", "JSON", "csv", "yaml"} {
		f, err := NewFormatter(name)
		require.NoError(t, err, name)
		assert.Equal(t, strings.ToLower(name), f.Name())
	}
	_, err := NewFormatter("html")
	assert.ErrorContains(t, err, "unsupported format")
	assert.Equal(t, []string{"console", "csv", "json", "yaml"}, Formats())
}

func TestJSONFormatter(t *testing.T) {
	out, err := (&JSONFormatter{}).Format(sampleReport())
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Rows, 3)
	assert.Equal(t, "tu00042", decoded.Rows[0].Imputation.DonorID)
	assert.True(t, decoded.Rows[0].Imputation.DisposableIncomePerWeek.Equal(decimal.NewFromFloat(512.25)))
	assert.Nil(t, decoded.Rows[2].Imputation)
	assert.Equal(t, 1, decoded.Summary.Failed)
}

func TestYAMLFormatter(t *testing.T) {
	out, err := (&YAMLFormatter{}).Format(sampleReport())
	require.NoError(t, err)
	assert.Contains(t, out, "donors_file: donors.yaml")

	var decoded Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, domain.MatchQuality(3124), decoded.Rows[1].Imputation.MatchQuality)
	assert.Equal(t, "adult count must be 1 or 2, got 3", decoded.Rows[2].Error)
}

func TestCSVFormatter(t *testing.T) {
	out, err := (&CSVFormatter{}).Format(sampleReport())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Draw,Simulated Year,System Year"))
	assert.Equal(t, "single-worker,0.420000,2030,2015,610.00,512.25,12.00,2219.75,52.00,tu00042,1375,1,37,5,false,", lines[1])
	assert.Contains(t, lines[2], "average")
	assert.True(t, strings.HasSuffix(lines[3], "\"adult count must be 1 or 2, got 3\""))
}

func TestConsoleFormatter(t *testing.T) {
	out, err := (&ConsoleFormatter{}).Format(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, out, "DONOR IMPUTATION RESULTS")
	assert.Contains(t, out, "single-worker")
	assert.Contains(t, out, "£512.25")
	assert.Contains(t, out, "(average)")
	assert.Contains(t, out, "error: adult count must be 1 or 2")
	assert.Contains(t, out, "Imperfect matches")
	assert.Contains(t, out, "DONOR INDEX")
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "£1234.50", FormatCurrency(decimal.NewFromFloat(1234.5)))
	assert.Equal(t, "£-3.00", FormatCurrency(decimal.NewFromInt(-3)))
}
