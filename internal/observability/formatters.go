// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/autoapply/internal/history"
	"github.com/jonathan/autoapply/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// maxMappingsToShow bounds the analyze listing
	maxMappingsToShow = 25
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintResult outputs a single application outcome.
func (p *Printer) PrintResult(result types.ApplicationResult) {
	var sb strings.Builder

	outcome := "FAILED"
	if result.Success {
		outcome = "SUBMITTED"
	}
	sb.WriteString(fmt.Sprintf("Outcome:   %s (%s)\n", outcome, result.Status))
	sb.WriteString(fmt.Sprintf("Platform:  %s\n", result.Platform))
	sb.WriteString(fmt.Sprintf("URL:       %s\n", result.JobURL))
	if result.JobID != "" {
		sb.WriteString(fmt.Sprintf("Job ID:    %s\n", result.JobID))
	}
	if result.ConfirmationID != "" {
		sb.WriteString(fmt.Sprintf("Confirm:   %s\n", result.ConfirmationID))
	}
	if result.TotalFields > 0 {
		sb.WriteString(fmt.Sprintf("Fields:    %d/%d filled\n", result.FieldsFilled, result.TotalFields))
	}
	if result.Steps > 0 {
		sb.WriteString(fmt.Sprintf("Steps:     %d\n", result.Steps))
	}
	if result.RedirectURL != "" {
		sb.WriteString(fmt.Sprintf("Redirect:  %s\n", result.RedirectURL))
	}
	if result.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:     %s\n", result.Error))
	}
	sb.WriteString(fmt.Sprintf("Duration:  %s", result.Duration.Round(time.Millisecond)))

	p.printBox("APPLICATION RESULT", sb.String())
}

// PrintMappings outputs the fields found on a form. Mappings at or below
// minConfidence are marked as skipped.
func (p *Printer) PrintMappings(url string, mappings []types.FieldMapping, minConfidence float64) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("URL: %s\n", url))

	if len(mappings) == 0 {
		sb.WriteString("\nNo fillable fields found")
		p.printBox("FIELD MAPPINGS", sb.String())
		return
	}

	confident := 0
	for _, m := range mappings {
		if m.Confidence > minConfidence {
			confident++
		}
	}
	sb.WriteString(fmt.Sprintf("Fields: %d (%d above %.2f)\n\n", len(mappings), confident, minConfidence))

	count := min(len(mappings), maxMappingsToShow)
	for i := 0; i < count; i++ {
		m := mappings[i]
		marker := "•"
		if m.Confidence <= minConfidence {
			marker = "-"
		}
		req := ""
		if m.Required {
			req = " *"
		}
		sb.WriteString(fmt.Sprintf("%s %s%s [%.2f, %s]\n", marker, m.FieldType, req, m.Confidence, m.Strategy))
		sb.WriteString(fmt.Sprintf("    %s\n", m.Selector))
		if v := displayValue(m); v != "" {
			sb.WriteString(fmt.Sprintf("    = %s\n", v))
		}
	}
	if len(mappings) > maxMappingsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more fields\n", len(mappings)-maxMappingsToShow))
	}

	p.printBox("FIELD MAPPINGS", strings.TrimSuffix(sb.String(), "\n"))
}

func displayValue(m types.FieldMapping) string {
	switch {
	case m.Strategy == types.StrategyUpload && m.Value != "":
		return filepath.Base(m.Value)
	case m.Strategy == types.StrategyAIGenerate && m.Value == "":
		return "(generated at fill time)"
	}
	return strings.Join(strings.Fields(m.Value), " ")
}

// PrintBatchReport outputs aggregate counts and the failed URLs of a batch.
func (p *Printer) PrintBatchReport(report types.BatchReport, results []types.ApplicationResult) {
	var sb strings.Builder

	rate := 0.0
	if report.Total > 0 {
		rate = float64(report.Succeeded) / float64(report.Total) * 100
	}
	sb.WriteString(fmt.Sprintf("Total:      %d\n", report.Total))
	sb.WriteString(fmt.Sprintf("Submitted:  %d (%.0f%%)\n", report.Succeeded, rate))

	if len(report.ByStatus) > 0 {
		sb.WriteString("\nBy status:\n")
		for _, k := range sortedKeys(report.ByStatus) {
			sb.WriteString(fmt.Sprintf("  %-20s %d\n", k, report.ByStatus[k]))
		}
	}
	if len(report.ByPlatform) > 0 {
		sb.WriteString("\nBy platform:\n")
		for _, k := range sortedKeys(report.ByPlatform) {
			sb.WriteString(fmt.Sprintf("  %-20s %d\n", k, report.ByPlatform[k]))
		}
	}

	var failed []types.ApplicationResult
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\nNeeds attention:\n")
		count := min(len(failed), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • [%s] %s\n", failed[i].Status, failed[i].JobURL))
		}
		if len(failed) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(failed)-maxItemsToShow))
		}
	}

	p.printBox("BATCH REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintHistory outputs recorded application attempts, newest first.
func (p *Printer) PrintHistory(entries []history.Entry) {
	if len(entries) == 0 {
		p.printBox("APPLICATION HISTORY", "No applications recorded")
		return
	}

	var sb strings.Builder
	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("%s  %-12s %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Platform, e.Status))
		sb.WriteString(fmt.Sprintf("  %s\n", e.JobURL))
		if e.ConfirmationID != "" {
			sb.WriteString(fmt.Sprintf("  confirmation %s\n", e.ConfirmationID))
		} else if e.Error != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", e.Error))
		}
		if i < len(entries)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("APPLICATION HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}

func sortedKeys[K ~string](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
