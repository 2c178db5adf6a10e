package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/76creates/stickers/flexbox"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luiscuellar31/openscp-sub001/internal"
	"github.com/luiscuellar31/openscp-sub001/pkg/charmer/console"
	"github.com/luiscuellar31/openscp-sub001/remotemodel"
	"github.com/luiscuellar31/openscp-sub001/transfermanager"
)

// demoModel is a live task-queue viewer: a flexbox layout of a title
// bar, a task table, a remote listing panel, and a help bar.
type demoModel struct {
	mgr     *transfermanager.Manager
	browser *remotemodel.Model

	changed chan struct{} // coalesced change signal from mgr.OnTasksChanged

	tasks []transfermanager.Task
	items []remotemodel.Item

	fb        *flexbox.FlexBox
	titleCell *flexbox.Cell
	tasksCell *flexbox.Cell
	filesCell *flexbox.Cell
	helpCell  *flexbox.Cell

	bar *console.AggregateBar

	width, height int
	showHelp      bool
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(internal.Theme.PrimaryColor)).
			Bold(true).
			Padding(0, 1)
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(internal.Theme.TertiaryColor)).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(internal.Theme.SecondaryColor)).
			Italic(true).
			Padding(0, 1)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(internal.Theme.ErrorColor))
	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(internal.Theme.SuccessColor))
)

type tasksChangedMsg struct{}

func newDemoModel(mgr *transfermanager.Manager, browser *remotemodel.Model) *demoModel {
	titleCell := flexbox.NewCell(1, 1).SetStyle(titleStyle)
	tasksCell := flexbox.NewCell(1, 8).SetStyle(cardStyle)
	filesCell := flexbox.NewCell(1, 8).SetStyle(cardStyle)
	helpCell := flexbox.NewCell(1, 1).SetStyle(helpStyle)

	fb := flexbox.New(0, 0)
	fb.AddRows([]*flexbox.Row{
		fb.NewRow().AddCells(titleCell),
		fb.NewRow().AddCells(tasksCell, filesCell),
		fb.NewRow().AddCells(helpCell),
	})

	m := &demoModel{
		mgr:       mgr,
		browser:   browser,
		changed:   make(chan struct{}, 1),
		fb:        fb,
		titleCell: titleCell,
		tasksCell: tasksCell,
		filesCell: filesCell,
		helpCell:  helpCell,
		bar:       console.NewAggregateBar(),
	}

	// mgr's change callback runs on whatever goroutine mutated the
	// queue; it must never block, so it only tries to post a coalescing
	// wakeup and drops the signal if one is already pending.
	mgr.OnTasksChanged(func() {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	})

	return m
}

func waitForChange(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return tasksChangedMsg{}
	}
}

func (m *demoModel) Init() tea.Cmd {
	m.refresh()
	return waitForChange(m.changed)
}

func (m *demoModel) refresh() {
	m.tasks = m.mgr.TasksSnapshot()
	m.items = m.browser.Items()
}

func (m *demoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.fb.SetWidth(msg.Width)
		m.fb.SetHeight(msg.Height)
		m.fb.ForceRecalculate()
		m.bar.Update(msg)
		return m, nil

	case tasksChangedMsg:
		m.refresh()
		return m, tea.Batch(waitForChange(m.changed), m.bar.SetPercent(aggregateProgress(m.tasks)))

	case progress.FrameMsg:
		return m, m.bar.Update(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p":
			m.mgr.PauseAll()
		case "r":
			m.mgr.ResumeAll()
		case "c":
			m.mgr.CancelAll()
		case "f":
			m.mgr.RetryFailed()
		case "x":
			m.mgr.ClearCompleted()
		case "?":
			m.showHelp = !m.showHelp
		}
		m.refresh()
		return m, nil

	default:
		return m, nil
	}
}

func (m *demoModel) View() string {
	if m.width == 0 {
		return "(resize terminal or press a key to start rendering...)"
	}

	m.titleCell.SetContent(titleStyle.Render(fmt.Sprintf(
		"openscp-demo — %d task(s), %d running", len(m.tasks), m.mgr.Running())) + "\n" + m.bar.View())

	m.tasksCell.SetContent(renderTaskTable(m.tasks, m.tasksCell.GetWidth()))
	m.filesCell.SetContent(renderRemoteListing(m.browser.CurrentPath(), m.items))

	if m.showHelp {
		m.helpCell.SetContent(renderHelp())
	} else {
		m.helpCell.SetContent(helpStyle.Render(
			"p:pause-all  r:resume-all  c:cancel-all  f:retry-failed  x:clear-done  ?:help  q:quit"))
	}

	return m.fb.Render()
}

// aggregateProgress sums bytes done/total across every Running task, for
// the title bar's combined progress indicator. Tasks whose total isn't
// known yet (BytesTotal == 0) are excluded from both sums rather than
// treated as 0%, so a single just-started transfer doesn't drag the
// aggregate bar back to zero.
func aggregateProgress(tasks []transfermanager.Task) float64 {
	var done, total int64
	for _, t := range tasks {
		if t.Status != transfermanager.Running || t.BytesTotal == 0 {
			continue
		}
		done += t.BytesDone
		total += t.BytesTotal
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

// renderTaskTable formats one line per task, directories-first ordering
// not applicable here (it's remotemodel's job); tasks are shown queue-order.
func renderTaskTable(tasks []transfermanager.Task, width int) string {
	if len(tasks) == 0 {
		return "No transfers queued yet."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-4s %-8s %-8s %5s%%  %s\n", "ID", "TYPE", "STATUS", "", "SRC → DST"))
	for _, t := range tasks {
		line := fmt.Sprintf("%-4d %-8s %-8s %5d%%  %s → %s",
			t.ID, t.Type.String(), t.Status.String(), t.Progress, t.Src, t.Dst)
		if width > 4 && len(line) > width {
			line = line[:width-1] + "…"
		}
		switch t.Status {
		case transfermanager.Error:
			line = errStyle.Render(line + "  (" + t.Err + ")")
		case transfermanager.Done:
			line = doneStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// renderRemoteListing shows the browser's current directory snapshot,
// directories first, matching remotemodel's own sort contract.
func renderRemoteListing(path string, items []remotemodel.Item) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(path))
	b.WriteString("\n")

	sorted := make([]remotemodel.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].IsDir && !sorted[j].IsDir })

	for _, it := range sorted {
		name := it.Name
		if it.IsDir {
			name += "/"
		}
		b.WriteString(name)
		b.WriteString("\n")
	}
	return b.String()
}
