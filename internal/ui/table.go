package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"funidl/internal/media"
	"funidl/internal/subtitle"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	bestStyle   = cellStyle.Foreground(lipgloss.Color("42"))
)

func newTable(headers []string, rows [][]string, highlight int) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == highlight:
				return bestStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

// FormatsTable renders formats worst to best, highlighting the last.
func FormatsTable(formats []media.Format) string {
	rows := make([][]string, 0, len(formats))
	for _, f := range formats {
		res := "audio/unknown"
		if f.Height > 0 {
			res = fmt.Sprintf("%dx%d", f.Width, f.Height)
		}
		tbr := ""
		if f.TBR > 0 {
			tbr = strconv.FormatFloat(f.TBR, 'f', 0, 64) + "k"
		}
		rows = append(rows, []string{
			f.FormatID,
			f.Ext,
			res,
			tbr,
			f.Language,
			f.FormatNote,
			f.Protocol,
		})
	}
	return newTable(
		[]string{"ID", "EXT", "RESOLUTION", "TBR", "LANGUAGE", "VERSION", "PROTOCOL"},
		rows,
		len(rows)-1,
	)
}

// SubtitlesTable renders subtitle tracks, highlighting the track at
// index best (-1 for none).
func SubtitlesTable(tracks []subtitle.Track, best int) string {
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []string{t.Key, t.Name, t.URL})
	}
	return newTable([]string{"KEY", "NAME", "URL"}, rows, best)
}
