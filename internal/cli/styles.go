package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/haskel/aerotwin/internal/quality"
)

var (
	colorPrimary = lipgloss.Color("86")  // Cyan
	colorSuccess = lipgloss.Color("82")  // Green
	colorWarning = lipgloss.Color("214") // Orange
	colorDanger  = lipgloss.Color("196") // Red
	colorMuted   = lipgloss.Color("245") // Light gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(22)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	riskBadge = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)
)

func riskStyle(level quality.RiskLevel) lipgloss.Style {
	switch level {
	case quality.RiskHigh:
		return riskBadge.Foreground(lipgloss.Color("231")).Background(colorDanger)
	case quality.RiskMedium:
		return riskBadge.Foreground(lipgloss.Color("16")).Background(colorWarning)
	default:
		return riskBadge.Foreground(lipgloss.Color("16")).Background(colorSuccess)
	}
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func formatPrediction(p *quality.Prediction) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Quality prediction"))
	b.WriteString("\n")
	b.WriteString(row("Quality score", fmt.Sprintf("%.2f / 100", p.QualityScore)))
	b.WriteString("\n")
	b.WriteString(row("Defect probability", fmt.Sprintf("%.1f%%", p.DefectProbability*100)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Risk level") + riskStyle(p.RiskLevel).Render(string(p.RiskLevel)))
	return b.String()
}

func formatReport(r *quality.TrainReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Training report"))
	b.WriteString("\n")
	b.WriteString(row("Model", r.ModelID))
	b.WriteString("\n")
	b.WriteString(row("Samples", fmt.Sprintf("%d (defect rate %.1f%%)", r.Samples, r.DefectRate*100)))
	b.WriteString("\n")
	b.WriteString(row("Regression R²", fmt.Sprintf("%.3f", r.RegressionR2)))
	b.WriteString("\n")
	b.WriteString(row("Within ±5 points", fmt.Sprintf("%.1f%%", r.WithinFiveAccuracy*100)))
	b.WriteString("\n")
	b.WriteString(row("Classifier accuracy", fmt.Sprintf("%.1f%%", r.ClassifierAccuracy*100)))
	b.WriteString("\n")
	b.WriteString(row("Duration", r.Duration.Round(time.Millisecond).String()))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Top features"))

	for _, w := range topWeights(r.FeatureImportance, 5) {
		b.WriteString("\n")
		b.WriteString(row(w.name, fmt.Sprintf("%.3f", w.value)))
	}
	return b.String()
}

func formatInfo(info quality.Info) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Quality model"))
	b.WriteString("\n")
	b.WriteString(row("State", info.State))
	if info.ModelID != "" {
		b.WriteString("\n")
		b.WriteString(row("Model", info.ModelID))
		b.WriteString("\n")
		b.WriteString(row("Source", info.Source))
		b.WriteString("\n")
		b.WriteString(row("Ready since", info.ReadyAt.Format("2006-01-02 15:04:05")))
	}
	b.WriteString("\n")
	b.WriteString(row("Schema", fmt.Sprintf("v%d, %d features", info.SchemaVersion, len(info.Features))))
	b.WriteString("\n")
	b.WriteString(row("Risk thresholds", fmt.Sprintf("HIGH > %.2f, MEDIUM > %.2f", info.Risk.High, info.Risk.Medium)))
	b.WriteString("\n")
	b.WriteString(row("Training runs", fmt.Sprintf("%d", info.TrainingRuns)))
	return b.String()
}

type weight struct {
	name  string
	value float64
}

// topWeights returns the n largest weights, ties broken by name.
func topWeights(m map[string]float64, n int) []weight {
	out := make([]weight, 0, len(m))
	for name, v := range m {
		out = append(out, weight{name, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].value != out[j].value {
			return out[i].value > out[j].value
		}
		return out[i].name < out[j].name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
