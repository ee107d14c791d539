package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/balance/internal/model"
	"github.com/Veraticus/balance/internal/service"
)

// FormatLabel colors a need/want label.
func FormatLabel(label model.Label) string {
	switch label {
	case model.LabelNeed:
		return needStyle.Render("NEED")
	case model.LabelWant:
		return wantStyle.Render("WANT")
	default:
		return SubtleStyle.Render("UNKNOWN")
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// renderTable lays rows out in padded columns under a ruled header.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	var b strings.Builder
	b.WriteString(line(headers, TableHeaderStyle))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(line(row, lipgloss.NewStyle()))
	}
	return b.String()
}

// RenderClassification shows the decision and every source that spoke.
func RenderClassification(txn model.Transaction, result model.EnsembleResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s at %s (%s)\n",
		FormatLabel(result.Label), money(txn.Amount), BoldStyle.Render(txn.Merchant), txn.Category)
	fmt.Fprintf(&b, "Confidence %s via %s\n\n", percent(result.Confidence), result.Strategy)

	rows := make([][]string, 0, len(result.Sources))
	for _, src := range result.Sources {
		rows = append(rows, []string{
			src.Source,
			string(src.Label),
			percent(src.Confidence),
			fmt.Sprintf("%.2f", src.Weight),
			src.Reasoning,
		})
	}
	if len(rows) > 0 {
		b.WriteString(renderTable([]string{"Source", "Label", "Confidence", "Weight", "Reasoning"}, rows))
	}

	if result.NeedsReview {
		b.WriteString("\n\n" + FormatWarning("Low confidence. Confirm with: balance correct \""+txn.Merchant+"\" need|want"))
	}
	return RenderBox("Classification", b.String())
}

// RenderOverspending lists anomalous categories.
func RenderOverspending(alerts []model.OverspendingAlert) string {
	if len(alerts) == 0 {
		return FormatSuccess("No unusual spending this week")
	}

	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, []string{
			a.Category,
			money(a.CurrentSpend),
			money(a.MeanSpend),
			fmt.Sprintf("%.2f", a.ZScore),
		})
	}
	return FormatTitle(ChartIcon+" Overspending") + "\n" +
		renderTable([]string{"Category", "This week", "Weekly mean", "Z-score"}, rows)
}

// RenderCancellations lists recurring, mostly discretionary merchants.
func RenderCancellations(candidates []model.CancellationCandidate) string {
	if len(candidates) == 0 {
		return FormatSuccess("No recurring discretionary merchants found")
	}

	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{
			c.Merchant,
			c.Category,
			percent(c.WantRatio),
			money(c.TotalSpend),
			fmt.Sprintf("%d", c.Weeks),
		})
	}
	return FormatTitle(ScissorIcon+" Cancellation candidates") + "\n" +
		renderTable([]string{"Merchant", "Category", "Want", "Total", "Weeks"}, rows)
}

// RenderSimilar lists search hits.
func RenderSimilar(query string, items []model.SimilarItem) string {
	if len(items) == 0 {
		return FormatInfo(fmt.Sprintf("Nothing similar to %q yet", query))
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%.3f", item.Similarity),
			item.Merchant,
			item.ItemText,
			item.Timestamp.Format(time.DateOnly),
		})
	}
	return FormatTitle(SearchIcon+" Similar to \""+query+"\"") + "\n" +
		renderTable([]string{"Score", "Merchant", "Item", "Date"}, rows)
}

// RenderPrediction shows the next-purchase guess.
func RenderPrediction(p model.PurchasePrediction) string {
	content := fmt.Sprintf("%s  about %s  (%s confidence)\n%s",
		BoldStyle.Render(p.Category), money(p.Amount), percent(p.Confidence), SubtleStyle.Render(p.Reasoning))
	return RenderBox("Next purchase", content)
}

// RenderImportStats summarizes a bulk import.
func RenderImportStats(stats service.ImportStats) string {
	lines := []string{
		fmt.Sprintf("Received:   %d", stats.Received),
		fmt.Sprintf("Inserted:   %d", stats.Inserted),
		fmt.Sprintf("Classified: %d", stats.Classified),
		fmt.Sprintf("Duplicates: %d", stats.Duplicates),
		fmt.Sprintf("Failed:     %d", stats.Failed),
		fmt.Sprintf("Took:       %s", stats.Duration.Round(time.Millisecond)),
	}
	return RenderBox("Import complete", strings.Join(lines, "\n"))
}
