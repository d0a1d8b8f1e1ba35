package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/steveyegge/boards/internal/types"
)

// BoardOptions controls RenderBoard.
type BoardOptions struct {
	// Width is the total width available; columns share it evenly.
	Width int
	// MaxCards limits the cards shown per column. Zero shows all.
	MaxCards int
}

var columnStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorMuted).
	Padding(0, 1)

// RenderBoard lays out the board columns side by side with one card per
// issue. issues must already be in sort order (as ListIssues returns them).
// Issues whose status matches no column are counted under the board.
func RenderBoard(board *types.Board, issues []*types.Issue, opts BoardOptions) string {
	columns := append([]types.Column(nil), board.Columns...)
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].SortOrder < columns[j].SortOrder })
	if len(columns) == 0 {
		return RenderMuted("(board has no columns)")
	}

	width := opts.Width
	if width <= 0 {
		width = 120
	}
	// Border and padding take four cells per column.
	inner := width/len(columns) - 4
	if inner < 12 {
		inner = 12
	}

	byStatus := make(map[string][]*types.Issue)
	for _, issue := range issues {
		byStatus[issue.Status] = append(byStatus[issue.Status], issue)
	}

	rendered := make([]string, len(columns))
	for i, col := range columns {
		cards := byStatus[col.ID]
		delete(byStatus, col.ID)

		var b strings.Builder
		b.WriteString(RenderStatus(fmt.Sprintf("%s (%d)", col.Name, len(cards)), col.StatusCategory))
		for n, issue := range cards {
			if opts.MaxCards > 0 && n == opts.MaxCards {
				b.WriteString("\n" + RenderMuted(fmt.Sprintf("+%d more", len(cards)-n)))
				break
			}
			b.WriteString("\n" + renderCard(issue, inner))
		}
		rendered[i] = columnStyle.Width(inner).Render(b.String())
	}
	out := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)

	if len(byStatus) > 0 {
		statuses := make([]string, 0, len(byStatus))
		for status := range byStatus {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			out += "\n" + RenderWarn(fmt.Sprintf("%s %d issue(s) in unknown status %q", IconWarn, len(byStatus[status]), status))
		}
	}
	return out
}

func renderCard(issue *types.Issue, width int) string {
	title := TruncateSimple(issue.Title, width-len(issue.Key)-1)
	line := RenderKey(issue.Key) + " " + title
	if issue.StoryPoints != nil {
		line += " " + RenderMuted(fmt.Sprintf("[%g]", *issue.StoryPoints))
	}
	return line
}
