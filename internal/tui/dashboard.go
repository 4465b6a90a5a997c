package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/taskhub/internal/api"
	"github.com/sadopc/taskhub/internal/export"
	"github.com/sadopc/taskhub/internal/logging"
)

const activityLimit = 8

var exportFormats = []string{"CSV", "JSON"}

type dashboardModel struct {
	sc     scope
	width  int
	height int

	stats    api.Dashboard
	activity []api.Activity
	loading  bool
	loaded   bool
	chart    barchart.Model

	// Export picker state
	picking      bool
	pickerCursor int
}

func newDashboardModel(sc scope) dashboardModel {
	return dashboardModel{
		sc:    sc,
		chart: barchart.New(40, 10),
	}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
	if d.loaded {
		d.buildChart()
	}
}

type dashboardLoadedMsg struct {
	project  uuid.UUID
	stats    api.Dashboard
	activity []api.Activity
}

func (d dashboardModel) load() tea.Cmd {
	sc := d.sc
	return func() tea.Msg {
		var msg dashboardLoadedMsg
		msg.project = sc.project.ID

		g, gctx := errgroup.WithContext(sc.ctx)
		g.Go(func() error {
			var err error
			msg.stats, err = sc.deps.client.Dashboard(gctx, sc.project.ID)
			return err
		})
		g.Go(func() error {
			var err error
			msg.activity, err = sc.deps.client.ListActivity(gctx, sc.project.ID)
			return err
		})
		if err := g.Wait(); err != nil {
			return failMsg{action: "load dashboard", err: err}
		}
		return msg
	}
}

func (d dashboardModel) capturing() bool {
	return d.picking
}

func (d dashboardModel) bindings() []key.Binding {
	if d.picking {
		return []key.Binding{labeled(keys.Enter, "export"), labeled(keys.Back, "cancel")}
	}
	bs := []key.Binding{keys.Refresh}
	if d.sc.perms.Manage {
		bs = append(bs, labeled(keys.Export, "export tasks"))
	}
	return bs
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardLoadedMsg:
		if msg.project != d.sc.project.ID {
			return d, nil
		}
		d.loading = false
		d.loaded = true
		d.stats = msg.stats
		d.activity = msg.activity
		if len(d.activity) > activityLimit {
			d.activity = d.activity[:activityLimit]
		}
		d.buildChart()
		return d, nil

	case exportDoneMsg:
		return d, statusCmd(fmt.Sprintf("Exported %s to %s", countLabel(msg.count, "task"), msg.path), false)

	case failMsg:
		d.loading = false
		return d, nil

	case tea.KeyMsg:
		if d.picking {
			return d.updatePicker(msg)
		}
		switch {
		case key.Matches(msg, keys.Refresh):
			d.loading = true
			return d, d.load()
		case key.Matches(msg, keys.Export):
			if d.sc.perms.Manage {
				d.picking = true
				d.pickerCursor = 0
			}
		}
	}
	return d, nil
}

func (d dashboardModel) updatePicker(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if d.pickerCursor > 0 {
			d.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if d.pickerCursor < len(exportFormats)-1 {
			d.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		d.picking = false
		return d, d.doExport(d.pickerCursor)
	case key.Matches(msg, keys.Back):
		d.picking = false
	}
	return d, nil
}

// exportDir is the export_dir setting, falling back to the home directory.
func exportDir(d deps) string {
	if dir, err := d.store.GetSetting("export_dir"); err == nil && strings.TrimSpace(dir) != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func (d dashboardModel) doExport(format int) tea.Cmd {
	sc := d.sc
	return func() tea.Msg {
		tasks, err := sc.deps.client.ListTasks(sc.ctx, sc.project.ID, api.TaskFilter{})
		if err != nil {
			return failMsg{action: "export tasks", err: err}
		}

		dir := exportDir(sc.deps)
		var path string
		if format == 0 {
			path = export.FileName(dir, sc.project.Name, "csv", time.Now())
			if err := export.ToCSV(tasks, sc.project, path); err != nil {
				return failMsg{action: "export tasks", err: err}
			}
		} else {
			path = export.FileName(dir, sc.project.Name, "json", time.Now())
			if err := export.ToJSON(tasks, sc.project, path); err != nil {
				return failMsg{action: "export tasks", err: err}
			}
		}
		logging.Logger.WithField("path", path).Info("TASKS_EXPORTED")
		return exportDoneMsg{path: path, count: len(tasks)}
	}
}

func (d *dashboardModel) buildChart() {
	chartWidth := max(20, min(d.width-8, 48))
	chartHeight := 10
	if d.height > 36 {
		chartHeight = 14
	}
	d.chart = barchart.New(chartWidth, chartHeight)

	done := lipgloss.NewStyle().Foreground(colorSuccess)
	open := lipgloss.NewStyle().Foreground(colorSubtle)
	bar := func(label string, completed, total int) barchart.BarData {
		return barchart.BarData{
			Label: label,
			Values: []barchart.BarValue{
				{Name: "Done", Value: float64(completed), Style: done},
				{Name: "Open", Value: float64(max(0, total-completed)), Style: open},
			},
		}
	}

	d.chart.PushAll([]barchart.BarData{
		bar("Tasks", d.stats.CompletedTasks, d.stats.TotalTasks),
		bar("Subtasks", d.stats.CompletedSubtasks, d.stats.TotalSubtasks),
	})
	d.chart.Draw()
}

func (d dashboardModel) view() string {
	w := d.width - 4
	if d.picking {
		return d.renderExportPicker(w)
	}
	if !d.loaded {
		msg := "Loading dashboard…"
		if !d.loading {
			msg = "Dashboard unavailable. Press ctrl+r to retry."
		}
		return panelStyle.Width(w).Render(titleStyle.Render("Dashboard") + "\n\n" + mutedStyle.Render(msg))
	}

	s := d.stats
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		renderCard("Tasks", fmt.Sprintf("%d/%d", s.CompletedTasks, s.TotalTasks), fmt.Sprintf("%d%% done", s.Progress())),
		renderCard("Subtasks", fmt.Sprintf("%d/%d", s.CompletedSubtasks, s.TotalSubtasks), fmt.Sprintf("%d%% done", s.SubtaskProgress())),
		renderCard("Overdue", fmt.Sprint(s.OverdueTasks), countLabel(s.OverdueTasks, "task")),
		renderCard("Team", fmt.Sprint(s.Members), countLabel(s.Labels, "label")),
		renderCard("Discussion", fmt.Sprint(s.Comments), countLabel(s.Attachments, "file")),
	)

	legend := "  " + successStyle.Render("●") + " done  " +
		lipgloss.NewStyle().Foreground(colorSubtle).Render("●") + " open"

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Dashboard"), "",
		cards, "",
		d.chart.View(), legend, "",
		d.renderActivity(w),
		"", hintLine(d.bindings()),
	)
	return panelStyle.Width(w).Render(body)
}

func renderCard(title, value, note string) string {
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		mutedStyle.Render(title),
		highlightStyle.Render(value),
		mutedStyle.Render(note),
	))
}

func (d dashboardModel) renderActivity(w int) string {
	rows := []string{subtitleStyle.Render("Recent activity")}
	if len(d.activity) == 0 {
		return strings.Join(append(rows, mutedStyle.Render("  Nothing yet")), "\n")
	}
	for _, a := range d.activity {
		text := a.Description
		if text == "" {
			text = strings.ToLower(a.Action) + " " + a.ObjectType
		}
		actor := a.Actor()
		text = truncate(text, max(10, w-len(actor)-20))
		rows = append(rows, "  "+accentStyle.Render(actor)+" "+text+mutedStyle.Render("  "+relTime(a.Timestamp)))
	}
	return strings.Join(rows, "\n")
}

func (d dashboardModel) renderExportPicker(w int) string {
	title := titleStyle.Render("Export " + d.sc.project.Name)
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		style := normalItemStyle
		if i == d.pickerCursor {
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursorMark(i == d.pickerCursor)+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  to "+exportDir(d.sc.deps)))
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
