package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/webitel/message-wall/internal/domain/model"
)

// RenderLogs prints journal entries newest first.
func RenderLogs(w io.Writer, entries []model.LogEntry) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Type", "Message", "Data"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, e := range entries {
		table.Append([]string{
			e.Timestamp.Local().Format("15:04:05"),
			string(e.Type),
			e.Message,
			formatData(e.Data),
		})
	}
	table.Render()
	return nil
}

// formatData renders entry data as sorted key=value pairs.
func formatData(data map[string]any) string {
	keys := slices.Sorted(maps.Keys(data))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, data[k])
	}
	return strings.Join(parts, " ")
}
