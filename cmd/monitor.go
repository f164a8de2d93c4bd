package cmd

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/samber/lo"
	"github.com/webitel/message-wall/internal/domain/model"
)

type dashboard struct {
	summary  *widgets.Paragraph
	sections *widgets.BarChart
	logs     *widgets.Table
}

func newWidgets() (*widgets.Paragraph, *widgets.BarChart, *widgets.Table) {
	summary := widgets.NewParagraph()
	summary.Title = " Wall "
	sections := widgets.NewBarChart()
	sections.Title = " Messages by section "
	sections.BarWidth = 10
	logs := widgets.NewTable()
	logs.Title = " Activity "
	logs.RowSeparator = false
	return summary, sections, logs
}

func newDashboard() *dashboard {
	d := &dashboard{}
	d.summary, d.sections, d.logs = newWidgets()
	d.resize(ui.TerminalDimensions())
	return d
}

func (d *dashboard) resize(w, h int) {
	d.summary.SetRect(0, 0, w/3, 9)
	d.sections.SetRect(w/3, 0, w, 9)
	d.logs.SetRect(0, 9, w, h)
}

func (d *dashboard) update(status model.WallStatus, pending model.PendingList, logs []model.LogEntry, err error) {
	if err != nil {
		d.summary.Text = fmt.Sprintf("[unreachable](fg:red)\n%v", err)
		return
	}

	last := "-"
	if status.LastActivity != nil {
		last = status.LastActivity.Local().Format("15:04:05")
	}
	roles := lo.MapToSlice(status.ConnectionsByRole, func(r model.ClientRole, n int) string {
		return fmt.Sprintf("%s=%d", r, n)
	})
	slices.Sort(roles)
	d.summary.Text = fmt.Sprintf(
		"Connections: %d\nMessages:    %d\nPending:     %d\nLast:        %s\nRoles:       %v",
		status.ActiveConnections, status.TotalMessages, pending.Count, last, roles,
	)

	keys := slices.Sorted(maps.Keys(status.MessagesBySection))
	d.sections.Labels = lo.Map(keys, func(k model.SectionKey, _ int) string { return string(k) })
	d.sections.Data = lo.Map(keys, func(k model.SectionKey, _ int) float64 {
		return float64(status.MessagesBySection[k])
	})

	rows := [][]string{{"Time", "Type", "Message"}}
	for _, e := range logs {
		rows = append(rows, []string{e.Timestamp.Local().Format("15:04:05"), string(e.Type), e.Message})
	}
	d.logs.Rows = rows
}

func (d *dashboard) render() {
	ui.Render(d.summary, d.sections, d.logs)
}

// RunMonitor polls the admin API and redraws until q or Ctrl-C.
func RunMonitor(ctx context.Context, client *AdminClient, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("terminal ui: %w", err)
	}
	defer ui.Close()

	d := newDashboard()
	refresh := func() {
		status, err := client.Status(ctx)
		var pending model.PendingList
		var logs []model.LogEntry
		if err == nil {
			pending, err = client.Pending(ctx)
		}
		if err == nil {
			logs, err = client.Logs(ctx, 20)
		}
		d.update(status, pending, logs, err)
		d.render()
	}
	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	events := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.resize(payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			refresh()
		}
	}
}
