package drift

import (
	"fmt"
	"strings"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"

// FormatDriftReport formats drift results for user display
func FormatDriftReport(results []DriftResult) string {
	var sb strings.Builder
	sb.Grow(1024 + len(results)*128)

	sb.WriteString("\n" + rule)
	sb.WriteString("DRIFT REPORT\n")
	sb.WriteString(rule + "\n")

	counts := make(map[DriftType]int)
	for _, r := range results {
		counts[r.DriftType]++
	}

	for _, r := range results {
		if r.DriftType == DriftOK {
			continue
		}
		sb.WriteString(formatDriftEntry(r))
		sb.WriteString("\n")
	}

	if okCount := counts[DriftOK]; okCount > 0 {
		fmt.Fprintf(&sb, "[OK] ✓\n  %d slots healthy\n\n", okCount)
	}

	sb.WriteString(rule)
	total := len(results) - counts[DriftOK]
	if total == 0 {
		sb.WriteString("SUMMARY: No drifts detected ✓\n")
	} else {
		fmt.Fprintf(&sb, "SUMMARY: %d drifts detected\n", total)

		var parts []string
		for _, d := range []struct {
			t     DriftType
			label string
		}{
			{DriftMissing, "missing"},
			{DriftBrokenEntry, "broken"},
			{DriftOrphan, "orphaned"},
			{DriftShadowed, "shadowed"},
		} {
			if n := counts[d.t]; n > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, d.label))
			}
		}
		sb.WriteString("  " + strings.Join(parts, ", ") + "\n")
	}
	sb.WriteString(rule)

	return sb.String()
}

// formatDriftEntry formats a single drift entry
func formatDriftEntry(r DriftResult) string {
	var sb strings.Builder

	switch r.DriftType {
	case DriftMissing:
		sb.WriteString("[MISSING]\n")
		fmt.Fprintf(&sb, "  %s\n", r.Slot)
		sb.WriteString("    → Selected but not installed; run 'esvm' to install it\n")

	case DriftBrokenEntry:
		sb.WriteString("[BROKEN ENTRY]\n")
		fmt.Fprintf(&sb, "  %s %s\n", r.Slot, r.Version)
		fmt.Fprintf(&sb, "    Entry:     %s\n", r.Entry)
		sb.WriteString("    → Recorded but missing from the bin directory; run 'esvm doctor --fix'\n")

	case DriftOrphan:
		sb.WriteString("[ORPHAN]\n")
		fmt.Fprintf(&sb, "  %s\n", r.Entry)
		sb.WriteString("    → In the bin directory but owned by no install; run 'esvm doctor --fix'\n")

	case DriftShadowed:
		sb.WriteString("[SHADOWED] ⚠️\n")
		fmt.Fprintf(&sb, "  %s %s\n", r.Slot, r.Version)
		fmt.Fprintf(&sb, "    Entry:     %s\n", r.Entry)
		fmt.Fprintf(&sb, "    Active:    %s\n", r.ActivePath)
		sb.WriteString("    → Another executable takes precedence on PATH\n")
	}

	return sb.String()
}
