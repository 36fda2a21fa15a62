package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Formatter renders a report.
type Formatter interface {
	Name() string
	Format(report *Report) (string, error)
}

var registry = map[string]func() Formatter{
	"console": func() Formatter { return &ConsoleFormatter{} },
	"json":    func() Formatter { return &JSONFormatter{Pretty: true} },
	"csv":     func() Formatter { return &CSVFormatter{} },
	"yaml":    func() Formatter { return &YAMLFormatter{} },
}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string) (Formatter, error) {
	ctor, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported format: %s (available: %s)", name, strings.Join(Formats(), ", "))
	}
	return ctor(), nil
}

// Formats lists the registered format names.
func Formats() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JSONFormatter formats reports as JSON
type JSONFormatter struct {
	Pretty bool // If true, format with indentation
}

func (jf *JSONFormatter) Name() string { return "json" }

// Format generates JSON output for the report
func (jf *JSONFormatter) Format(report *Report) (string, error) {
	var data []byte
	var err error

	if jf.Pretty {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}

	if err != nil {
		return "", err
	}

	return string(data) + "\n", nil
}

// YAMLFormatter formats reports as YAML
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Name() string { return "yaml" }

// Format generates YAML output for the report
func (yf *YAMLFormatter) Format(report *Report) (string, error) {
	data, err := yaml.Marshal(report)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CSVFormatter writes one row per household
type CSVFormatter struct{}

func (cf *CSVFormatter) Name() string { return "csv" }

// Format generates CSV output for the report
func (cf *CSVFormatter) Format(report *Report) (string, error) {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	header := []string{
		"ID",
		"Draw",
		"Simulated Year",
		"System Year",
		"Gross Income (Week)",
		"Disposable Income (Week)",
		"Benefits (Week)",
		"Disposable Income (Month)",
		"Benefits (Month)",
		"Donor",
		"Match Quality",
		"Regime",
		"Pool Size",
		"Preferred",
		"Low Income",
		"Error",
	}
	if err := writer.Write(header); err != nil {
		return "", err
	}

	for _, row := range report.Rows {
		if err := writer.Write(cf.formatRow(row)); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	return sb.String(), nil
}

func (cf *CSVFormatter) formatRow(row Row) []string {
	imp := row.Imputation
	if imp == nil {
		out := make([]string, 16)
		out[0], out[1], out[2] = row.ID, row.Draw, strconv.Itoa(row.Household.SimulatedYear)
		out[15] = row.Error
		return out
	}
	return []string{
		row.ID,
		row.Draw,
		strconv.Itoa(row.Household.SimulatedYear),
		strconv.Itoa(imp.SystemYear),
		imp.GrossIncomePerWeek.StringFixed(2),
		imp.DisposableIncomePerWeek.StringFixed(2),
		imp.BenefitsPerWeek.StringFixed(2),
		imp.DisposableIncomePerMonth().StringFixed(2),
		imp.BenefitsPerMonth().StringFixed(2),
		imp.DonorID,
		imp.MatchQuality.String(),
		strconv.Itoa(imp.Regime),
		strconv.Itoa(imp.PoolSize),
		strconv.Itoa(imp.PreferredCount),
		strconv.FormatBool(imp.LowIncome),
		"",
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			Padding(0, 1)
)

// ConsoleFormatter renders a human-readable table
type ConsoleFormatter struct{}

func (cf *ConsoleFormatter) Name() string { return "console" }

// Format generates the console report
func (cf *ConsoleFormatter) Format(report *Report) (string, error) {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("DONOR IMPUTATION RESULTS"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 96) + "\n")
	sb.WriteString(labelStyle.Render("Donors: ") + report.DonorsFile + "\n")
	if report.ParametersFile != "" {
		sb.WriteString(labelStyle.Render("Parameters: ") + report.ParametersFile + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("%-24s %6s %12s %12s %12s %-10s %8s\n",
		"Household", "Year", "Gross/wk", "Disp/wk", "Benefits/wk", "Donor", "Quality"))
	sb.WriteString(strings.Repeat("-", 96) + "\n")

	for _, row := range report.Rows {
		if row.Imputation == nil {
			sb.WriteString(fmt.Sprintf("%-24s %6d %s\n", truncate(row.ID, 24), row.Household.SimulatedYear,
				errorStyle.Render("error: "+row.Error)))
			continue
		}
		imp := row.Imputation
		donorID := imp.DonorID
		if imp.Averaged {
			donorID = "(average)"
		}
		quality := imp.MatchQuality.String()
		if imp.Regime > 1 {
			quality = warnStyle.Render(quality)
		}
		sb.WriteString(fmt.Sprintf("%-24s %6d %12s %12s %12s %-10s %8s\n",
			truncate(row.ID, 24),
			row.Household.SimulatedYear,
			FormatCurrency(imp.GrossIncomePerWeek),
			FormatCurrency(imp.DisposableIncomePerWeek),
			FormatCurrency(imp.BenefitsPerWeek),
			truncate(donorID, 10),
			quality))
	}
	sb.WriteString(strings.Repeat("=", 96) + "\n\n")

	s := report.Summary
	regimes := make([]string, len(s.ByRegime))
	for i, n := range s.ByRegime {
		regimes[i] = fmt.Sprintf("r%d=%d", i, n)
	}
	summary := strings.Join([]string{
		labelStyle.Render("Households:        ") + valueStyle.Render(strconv.Itoa(s.Households)),
		labelStyle.Render("Failed:            ") + valueStyle.Render(strconv.Itoa(s.Failed)),
		labelStyle.Render("Low income:        ") + valueStyle.Render(strconv.Itoa(s.LowIncome)),
		labelStyle.Render("Imperfect matches: ") + valueStyle.Render(strconv.Itoa(s.ImperfectMatches)),
		labelStyle.Render("Regimes:           ") + strings.Join(regimes, " "),
		labelStyle.Render("Mean disposable:   ") + valueStyle.Render(FormatCurrency(s.MeanDisposable)) + " /wk",
		labelStyle.Render("Mean benefits:     ") + valueStyle.Render(FormatCurrency(s.MeanBenefits)) + " /wk",
	}, "\n")
	sb.WriteString(boxStyle.Render(summary))
	sb.WriteString("\n")

	if len(report.IndexStats) > 0 {
		sb.WriteString("\n" + titleStyle.Render("DONOR INDEX") + "\n")
		sb.WriteString(fmt.Sprintf("%-8s %-7s %8s %9s %9s %9s\n", "System", "Regime", "Lists", "Smallest", "Largest", "Below 10"))
		for _, st := range report.IndexStats {
			sb.WriteString(fmt.Sprintf("%-8d %-7d %8d %9d %9d %9d\n",
				st.SystemYear, st.Regime, st.Lists, st.Smallest, st.Largest, st.Below10))
		}
	}

	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
