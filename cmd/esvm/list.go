package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/blang/semver"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/esvm/internal/installer"
	"github.com/ZebulonRouseFrantzich/esvm/internal/state"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	nameStyle      = lipgloss.NewStyle().Width(18)
	idStyle        = lipgloss.NewStyle().Width(12)
	installedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List engines and installed versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			st, err := state.Load(e.paths.StateFile)
			if err != nil {
				st = state.New(nil)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderList(e.catalog, e.platform, st))
			return nil
		},
	}
}

// renderList prints one row per catalog engine: its installed versions,
// latest slot first, or why it cannot be installed here.
func renderList(catalog *installer.Catalog, token string, st *state.State) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Engines for "+token) + "\n")

	slots := st.Slots()
	for _, engine := range catalog.All() {
		d := engine.Descriptor()
		marker := " "
		if st.IsSelected(d.ID) {
			marker = "*"
		}
		row := marker + " " + nameStyle.Render(d.Name) + idStyle.Render(d.ID)

		switch versions := installedVersions(st, slots, d.ID); {
		case len(versions) > 0:
			row += installedStyle.Render(strings.Join(versions, ", "))
		case !d.Supports(token):
			row += dimStyle.Render("not available on " + token)
		default:
			row += dimStyle.Render("-")
		}
		b.WriteString(row + "\n")
	}
	return b.String()
}

// installedVersions returns the versions installed for id: the latest slot
// first, marked, then pinned slots in version order.
func installedVersions(st *state.State, slots []string, id string) []string {
	var latest string
	var pinned []string
	for _, slot := range slots {
		rec, _ := st.Record(slot)
		switch {
		case slot == id:
			latest = rec.Version + " (latest)"
		case strings.HasPrefix(slot, id+"@"):
			pinned = append(pinned, strings.TrimPrefix(slot, id+"@"))
		}
	}
	sortVersions(pinned)
	if latest != "" {
		return append([]string{latest}, pinned...)
	}
	return pinned
}

// sortVersions orders semantic versions numerically ahead of anything
// else (dates, build ids), which sorts lexically.
func sortVersions(versions []string) {
	slices.SortStableFunc(versions, func(a, b string) int {
		va, errA := semver.ParseTolerant(a)
		vb, errB := semver.ParseTolerant(b)
		switch {
		case errA == nil && errB == nil:
			return va.Compare(vb)
		case errA == nil:
			return -1
		case errB == nil:
			return 1
		}
		return strings.Compare(a, b)
	})
}
