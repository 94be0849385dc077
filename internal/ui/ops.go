package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/config"
	"github.com/gravitrone/concierge/internal/listsync"
	"github.com/gravitrone/concierge/internal/ui/components"
)

// --- Messages ---

type tasksLoadedMsg struct {
	items []api.Task
	err   error
}
type statsLoadedMsg struct {
	stats *api.Stats
	err   error
}
type opsRefreshTickMsg struct{ gen uint64 }
type taskDeletedMsg struct {
	id  string
	err error
}
type taskKilledMsg struct {
	id  string
	err error
}
type tasksCreatedMsg struct {
	text  string
	count int
	err   error
}
type opsBulkDoneMsg struct{ result listsync.BulkResult }

const taskLogSlot = "ops.log"

var (
	opsFilterTabs   = []string{listsync.AllTab, "running", "queued", "done", "failed"}
	opsFilterLabels = []string{"All", "Running", "Queued", "Done", "Failed"}
)

type opsRowKind int

const (
	opsRowGroup opsRowKind = iota
	opsRowTask
)

type opsRow struct {
	kind  opsRowKind
	group int
	id    string
}

// taskSchema keys tasks by id and orders them newest first, reversing
// batches that share one submission time.
func taskSchema() listsync.Schema[api.Task] {
	return listsync.Schema[api.Task]{
		ID:   func(t api.Task) string { return t.ID },
		Time: func(t api.Task) time.Time { return t.Created },
		Search: func(t api.Task) []string {
			return []string{t.ID, t.Title, t.Prompt, t.Source, t.Model, string(t.Status)}
		},
		Tab: func(t api.Task, tab string) bool {
			if tab == "failed" {
				return t.Status == api.TaskFailed || t.Status == api.TaskCancelled
			}
			return string(t.Status) == tab
		},
		Live: func(t api.Task) bool { return t.Status.Live() },
		Outcome: func(t api.Task) listsync.Outcome {
			switch t.Status {
			case api.TaskRunning:
				return listsync.OutcomeRunning
			case api.TaskDone:
				return listsync.OutcomeDone
			case api.TaskFailed, api.TaskCancelled:
				return listsync.OutcomeFailed
			}
			return listsync.OutcomeNone
		},
		ReverseBatches: true,
	}
}

// --- Ops Model ---

// OpsModel is the task queue page: a day-grouped task list with a live log
// tail for the active task.
type OpsModel struct {
	client       *api.Client
	logger       *slog.Logger
	now          func() time.Time
	refreshEvery time.Duration

	store     *listsync.Store[api.Task]
	selection *listsync.Selection
	logs      *listsync.Poller[string]
	expansion *listsync.Expansion
	guard     *listsync.DuplicateGuard
	list      *components.List

	gen     uint64
	loading bool
	stats   *api.Stats
	filter  int
	matched int
	page    []api.Task
	groups  []listsync.DayGroup[api.Task]
	rows    []opsRow
	more    bool

	search     textinput.Model
	searching  bool
	composer   textarea.Model
	composing  bool
	submitting bool
	confirm    *pendingConfirm
	autoScroll bool
	logView    viewport.Model
	spinner    spinner.Model

	width  int
	height int
}

func NewOpsModel(client *api.Client, cfg *config.Config, logger *slog.Logger) OpsModel {
	search := textinput.New()
	search.Placeholder = "search tasks"
	search.Prompt = "/ "
	search.CharLimit = 120

	composer := textarea.New()
	composer.Placeholder = "Describe the task. Separate several prompts with a line containing only ---"
	composer.ShowLineNumbers = false
	composer.CharLimit = 0
	composer.SetHeight(8)

	m := OpsModel{
		client:       client,
		logger:       logger,
		now:          time.Now,
		refreshEvery: cfg.TaskRefresh,
		store:        listsync.NewStore(taskSchema(), cfg.PageSize),
		selection:    listsync.NewSelection(),
		expansion:    listsync.NewExpansion(),
		guard:        listsync.NewDuplicateGuard(listsync.DefaultDuplicateWindow, time.Now),
		list:         components.NewList(15),
		search:       search,
		composer:     composer,
		logView:      viewport.New(60, 10),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(AccentStyle)),
	}
	m.logs = listsync.NewPoller[string](taskLogSlot, cfg.LogPoll, func(id string) (string, error) {
		log, err := client.GetTaskLog(id)
		if err != nil {
			return "", err
		}
		return log.Content, nil
	}, isNotFound)
	return m
}

func isNotFound(err error) bool {
	return errors.Is(err, api.ErrNotFound)
}

// Enter starts a page visit: load tasks and stats, and begin the periodic
// refresh chain for this visit.
func (m OpsModel) Enter() (OpsModel, tea.Cmd) {
	m.gen++
	m.loading = true
	return m, tea.Batch(m.loadTasks, m.loadStats, m.refreshTick(), m.spinner.Tick)
}

// Leave ends the visit. Pending refresh ticks and log polls become stale.
func (m OpsModel) Leave() OpsModel {
	m.gen++
	m.logs.Stop()
	m.selection.Close()
	m.searching = false
	m.search.Blur()
	m.composer.Blur()
	m.composing = false
	m.confirm = nil
	return m
}

func (m OpsModel) SetSize(width, height int) OpsModel {
	m.width = width
	m.height = height
	m.list.SetPageSize(max(height-8, 5))
	_, detail, _ := splitPanes(m.contentWidth())
	m.logView.Width = max(components.FixedContentWidth(detail), 20)
	m.logView.Height = max(height-20, 5)
	m.composer.SetWidth(max(components.BoxContentWidth(width)-2, 20))
	return m
}

func (m OpsModel) contentWidth() int {
	return max(m.width-2, 40)
}

func (m OpsModel) capturing() bool {
	return m.searching || m.composing || m.confirm != nil
}

func (m OpsModel) hasUnsaved() bool {
	return strings.TrimSpace(m.composer.Value()) != "" && !m.submitting
}

// --- Commands ---

func (m OpsModel) loadTasks() tea.Msg {
	items, err := m.client.ListTasks()
	return tasksLoadedMsg{items: items, err: err}
}

func (m OpsModel) loadStats() tea.Msg {
	stats, err := m.client.GetStats()
	return statsLoadedMsg{stats: stats, err: err}
}

func (m OpsModel) refreshTick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.refreshEvery, func(time.Time) tea.Msg {
		return opsRefreshTickMsg{gen: gen}
	})
}

func (m OpsModel) deleteTask(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return taskDeletedMsg{id: id, err: client.DeleteTask(id)}
	}
}

func (m OpsModel) killTask(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return taskKilledMsg{id: id, err: client.KillTask(id)}
	}
}

func (m OpsModel) bulk(verb string, ids []string, op func(string) error) tea.Cmd {
	return func() tea.Msg {
		return opsBulkDoneMsg{result: listsync.RunBulk(verb, "task", ids, op)}
	}
}

func (m OpsModel) createTasks(text string, prompts []string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if len(prompts) == 1 {
			_, err := client.CreateTask(api.CreateTaskInput{Prompt: prompts[0]})
			return tasksCreatedMsg{text: text, count: 1, err: err}
		}
		_, err := client.CreateTaskBatch(api.CreateTaskBatchInput{Prompts: prompts})
		return tasksCreatedMsg{text: text, count: len(prompts), err: err}
	}
}

// --- Update ---

func (m OpsModel) Update(msg tea.Msg) (OpsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksLoadedMsg:
		m.loading = false
		if !m.store.ApplyLoad(msg.items, msg.err) {
			m.logger.Warn("load tasks failed", "err", msg.err)
			return m, notifyErr("Load tasks", msg.err)
		}
		cmd := m.reconcile()
		m.rebuild()
		return m, cmd

	case statsLoadedMsg:
		if msg.err != nil {
			m.logger.Debug("load stats failed", "err", msg.err)
			return m, nil
		}
		m.stats = msg.stats
		return m, nil

	case opsRefreshTickMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m, tea.Batch(m.loadTasks, m.loadStats, m.refreshTick())

	case taskDeletedMsg:
		if msg.err != nil {
			m.logger.Warn("delete task failed", "id", msg.id, "err", msg.err)
			return m, notifyErr("Delete task", msg.err)
		}
		m.store.Remove(msg.id)
		if m.selection.Forget(msg.id) {
			m.logs.Stop()
		}
		m.rebuild()
		return m, notify(toastSuccess, "Task deleted")

	case taskKilledMsg:
		if msg.err != nil {
			m.logger.Warn("kill task failed", "id", msg.id, "err", msg.err)
			return m, notifyErr("Kill task", msg.err)
		}
		ended := m.now()
		m.store.Patch(msg.id, func(t *api.Task) {
			t.Status = api.TaskCancelled
			t.Ended = &ended
		})
		var cmd tea.Cmd
		if m.selection.Active() == msg.id {
			m.autoScroll = false
			cmd = m.logs.SetLive(false)
		}
		m.rebuild()
		return m, tea.Batch(cmd, notify(toastSuccess, "Task killed"))

	case opsBulkDoneMsg:
		m.selection.Clear()
		level := toastSuccess
		if msg.result.Failed() {
			level = toastWarning
			m.logger.Warn("bulk task action partly failed",
				"verb", msg.result.Verb, "failed", len(msg.result.Failures), "err", msg.result.FirstError())
		}
		m.rebuild()
		return m, tea.Batch(notify(level, msg.result.Summary()), m.loadTasks, m.loadStats)

	case tasksCreatedMsg:
		m.submitting = false
		if msg.err != nil {
			m.logger.Warn("create task failed", "err", msg.err)
			m.guard.Release(msg.text)
			m.composing = true
			return m, tea.Batch(notifyErr("Create task", msg.err), m.composer.Focus())
		}
		m.composer.Reset()
		text := "Task queued"
		if msg.count > 1 {
			text = fmt.Sprintf("%d tasks queued", msg.count)
		}
		return m, tea.Batch(notify(toastSuccess, text), m.loadTasks, m.loadStats)

	case listsync.PollTickMsg, listsync.PollResultMsg[string]:
		handled, cmd := m.logs.Update(msg)
		if handled {
			if res, ok := msg.(listsync.PollResultMsg[string]); ok && res.Err != nil && !isNotFound(res.Err) {
				m.logger.Debug("task log poll failed", "id", res.ID, "err", res.Err)
			}
			m.syncLogView()
		}
		return m, cmd

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m OpsModel) busy() bool {
	return m.loading || m.submitting || m.logs.State() == listsync.PollLoading
}

// reconcile drops selection state for tasks that disappeared and tells the
// log poller whether the active task is still running.
func (m *OpsModel) reconcile() tea.Cmd {
	if m.selection.Reconcile(m.store.IDs()) {
		m.logs.Stop()
		return nil
	}
	id := m.selection.Active()
	if id == "" {
		return nil
	}
	task, ok := m.store.Get(id)
	if !ok {
		return nil
	}
	if task.Status.Finished() {
		m.autoScroll = false
	}
	return m.logs.SetLive(task.Status.Live())
}

// rebuild recomputes the filtered page, day groups and list rows.
func (m *OpsModel) rebuild() {
	view := m.store.View(opsFilterTabs[m.filter], m.search.Value())
	m.matched = len(view)
	m.page, m.more = m.store.Page(view)
	m.groups = listsync.GroupByDay(m.page, m.store.Schema(), m.now())
	rows := make([]opsRow, 0, len(m.page)+len(m.groups))
	for gi, g := range m.groups {
		rows = append(rows, opsRow{kind: opsRowGroup, group: gi})
		if !m.expansion.Expanded(g.Key, g.HasLive) {
			continue
		}
		for _, t := range g.Items {
			rows = append(rows, opsRow{kind: opsRowTask, group: gi, id: t.ID})
		}
	}
	m.rows = rows
	m.list.SetLen(len(rows))
}

func (m OpsModel) visibleIDs() []string {
	ids := make([]string, 0, len(m.page))
	for _, t := range m.page {
		ids = append(ids, t.ID)
	}
	return ids
}

func (m OpsModel) cursorRow() (opsRow, bool) {
	idx := m.list.Selected()
	if idx < 0 || idx >= len(m.rows) {
		return opsRow{}, false
	}
	return m.rows[idx], true
}

func (m OpsModel) cursorTaskID() string {
	if row, ok := m.cursorRow(); ok && row.kind == opsRowTask {
		return row.id
	}
	return ""
}

func (m *OpsModel) syncLogView() {
	switch m.logs.State() {
	case listsync.PollLoaded:
		m.logView.SetContent(components.SanitizeText(m.logs.Payload()))
		if m.autoScroll {
			m.logView.GotoBottom()
		}
	default:
		m.logView.SetContent("")
	}
}

// --- Keys ---

func (m OpsModel) handleKeys(msg tea.KeyMsg) (OpsModel, tea.Cmd) {
	if m.confirm != nil {
		closed, cmd := handleConfirmKey(m.confirm, msg)
		if closed {
			m.confirm = nil
		}
		return m, cmd
	}
	if m.composing {
		return m.handleComposerKeys(msg)
	}
	if m.searching {
		return m.handleSearchKeys(msg)
	}
	if m.selection.Active() != "" {
		if next, cmd, ok := m.handleDetailKeys(msg); ok {
			return next, cmd
		}
	}
	return m.handleListKeys(msg)
}

func (m OpsModel) handleComposerKeys(msg tea.KeyMsg) (OpsModel, tea.Cmd) {
	switch {
	case isBack(msg):
		m.composing = false
		m.composer.Blur()
		return m, nil
	case isKey(msg, "ctrl+s"):
		return m.submitComposer()
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

// submitComposer queues the drafted prompts, one task or a batch. A draft
// identical to one sent in the last few seconds is refused without a call.
func (m OpsModel) submitComposer() (OpsModel, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	text := m.composer.Value()
	prompts := api.SplitPrompts(text)
	if len(prompts) == 0 {
		return m, notify(toastWarning, "Nothing to submit")
	}
	if err := m.guard.Check(text); err != nil {
		return m, notify(toastWarning, "Duplicate submission ignored")
	}
	m.submitting = true
	m.composing = false
	m.composer.Blur()
	return m, tea.Batch(m.createTasks(text, prompts), m.spinner.Tick)
}

func (m OpsModel) handleSearchKeys(msg tea.KeyMsg) (OpsModel, tea.Cmd) {
	switch {
	case isEnter(msg):
		m.searching = false
		m.search.Blur()
		return m, nil
	case isBack(msg):
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.list.Reset()
		m.rebuild()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.list.Reset()
	m.rebuild()
	return m, cmd
}

// handleDetailKeys covers keys that act on the open task. ok is false when
// the key should fall through to the list.
func (m OpsModel) handleDetailKeys(msg tea.KeyMsg) (OpsModel, tea.Cmd, bool) {
	_, _, side := splitPanes(m.contentWidth())
	switch {
	case isBack(msg):
		m.selection.Close()
		m.logs.Stop()
		m.syncLogView()
		return m, nil, true
	case isKey(msg, "s"):
		m.autoScroll = !m.autoScroll
		if m.autoScroll {
			m.logView.GotoBottom()
		}
		return m, nil, true
	case isKey(msg, "pgup", "pgdown", "home", "end"):
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		if isKey(msg, "pgup", "home") {
			m.autoScroll = false
		}
		return m, cmd, true
	case !side && (isUp(msg) || isDown(msg)):
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd, true
	case isKey(msg, "x") && !m.selection.EditMode():
		next, cmd := m.askKill(m.selection.Active())
		return next, cmd, true
	case isKey(msg, "d") && !m.selection.EditMode():
		next, cmd := m.askDelete(m.selection.Active())
		return next, cmd, true
	}
	return m, nil, false
}

func (m OpsModel) handleListKeys(msg tea.KeyMsg) (OpsModel, tea.Cmd) {
	switch {
	case isUp(msg):
		m.list.Up()
	case isDown(msg):
		m.list.Down()
	case isKey(msg, "left"):
		m.setFilter((m.filter - 1 + len(opsFilterTabs)) % len(opsFilterTabs))
	case isKey(msg, "right"):
		m.setFilter((m.filter + 1) % len(opsFilterTabs))
	case isKey(msg, "/"):
		m.searching = true
		return m, m.search.Focus()
	case isKey(msg, "n"):
		m.composing = true
		return m, m.composer.Focus()
	case isKey(msg, "r"):
		m.loading = true
		return m, tea.Batch(m.loadTasks, m.loadStats, m.logs.Refresh(), m.spinner.Tick)
	case isKey(msg, "m"):
		if m.more {
			m.store.LoadMore()
			m.rebuild()
		}
	case isKey(msg, "c"):
		if row, ok := m.cursorRow(); ok {
			m.expansion.Toggle(m.groups[row.group].Key)
			m.rebuild()
		}
	case isKey(msg, "v"):
		m.selection.ToggleEditMode()
	case isSpace(msg):
		if id := m.cursorTaskID(); id != "" {
			m.selection.Toggle(id)
		}
	case isKey(msg, "a"):
		m.selection.ToggleAll(m.visibleIDs())
	case isEnter(msg):
		row, ok := m.cursorRow()
		if !ok {
			return m, nil
		}
		if row.kind == opsRowGroup {
			m.expansion.Toggle(m.groups[row.group].Key)
			m.rebuild()
			return m, nil
		}
		return m.openTask(row.id)
	case isKey(msg, "d"):
		if m.selection.EditMode() && m.selection.Count() > 0 {
			return m.askBulk("Deleted", "Delete", m.client.DeleteTask)
		}
		return m.askDelete(m.cursorTaskID())
	case isKey(msg, "x"):
		if m.selection.EditMode() && m.selection.Count() > 0 {
			return m.askBulk("Killed", "Kill", m.client.KillTask)
		}
		return m.askKill(m.cursorTaskID())
	case isBack(msg):
		if m.selection.EditMode() {
			m.selection.ToggleEditMode()
		} else if m.search.Value() != "" {
			m.search.SetValue("")
			m.list.Reset()
			m.rebuild()
		}
	}
	return m, nil
}

func (m *OpsModel) setFilter(idx int) {
	m.filter = idx
	m.store.ResetPage()
	m.list.Reset()
	m.rebuild()
}

func (m OpsModel) openTask(id string) (OpsModel, tea.Cmd) {
	task, ok := m.store.Get(id)
	if !ok {
		return m, nil
	}
	m.selection.Select(id)
	m.autoScroll = !task.Status.Finished()
	cmd := m.logs.Start(id, task.Status.Live())
	m.syncLogView()
	m.logView.GotoTop()
	return m, tea.Batch(cmd, m.spinner.Tick)
}

func (m OpsModel) askDelete(id string) (OpsModel, tea.Cmd) {
	task, ok := m.store.Get(id)
	if !ok {
		return m, nil
	}
	m.confirm = &pendingConfirm{
		title:   "Delete Task",
		message: fmt.Sprintf("Delete %q? This cannot be undone.", components.ClampTextWidthEllipsis(task.DisplayTitle(), 60)),
		run:     m.deleteTask(id),
	}
	return m, nil
}

func (m OpsModel) askKill(id string) (OpsModel, tea.Cmd) {
	task, ok := m.store.Get(id)
	if !ok {
		return m, nil
	}
	if task.Status.Finished() {
		return m, notify(toastWarning, "Task already "+string(task.Status))
	}
	m.confirm = &pendingConfirm{
		title:   "Kill Task",
		message: fmt.Sprintf("Kill %q?", components.ClampTextWidthEllipsis(task.DisplayTitle(), 60)),
		run:     m.killTask(id),
	}
	return m, nil
}

func (m OpsModel) askBulk(verb, action string, op func(string) error) (OpsModel, tea.Cmd) {
	ids := m.selection.Selected()
	m.confirm = &pendingConfirm{
		title:   action + " Tasks",
		message: fmt.Sprintf("%s %s? This cannot be undone.", action, plural(len(ids), "selected task")),
		run:     m.bulk(verb, ids, op),
	}
	return m, nil
}

// --- View ---

func (m OpsModel) View() string {
	if m.confirm != nil {
		return m.confirm.view()
	}
	if m.composing {
		return components.Indent(m.renderComposer(), 1)
	}

	width := m.contentWidth()
	header := m.renderFilterLine() + "\n" + m.renderStats()

	masterW, detailW, side := splitPanes(width)
	var body string
	switch {
	case m.selection.Active() == "":
		body = m.renderList(width, true)
	case side:
		body = joinPanes(m.renderList(masterW, false), m.renderDetail(detailW))
	default:
		body = m.renderDetail(width)
	}
	return components.Indent(header+"\n\n"+body, 1)
}

func (m OpsModel) renderFilterLine() string {
	segments := make([]string, 0, len(opsFilterTabs))
	for i, label := range opsFilterLabels {
		if i == m.filter {
			segments = append(segments, TabActiveStyle.Render(label))
		} else {
			segments = append(segments, TabInactiveStyle.Render(label))
		}
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, segments...)
	switch {
	case m.searching:
		line += "   " + m.search.View()
	case m.search.Value() != "":
		line += MutedStyle.Render("   search: ") + AccentStyle.Render(m.search.Value())
	}
	if m.selection.EditMode() {
		line += WarningStyle.Render(fmt.Sprintf("   select mode · %d selected", m.selection.Count()))
	}
	return line
}

func (m OpsModel) renderStats() string {
	if m.stats == nil {
		return MutedStyle.Render("stats unavailable")
	}
	s := m.stats
	parts := []string{
		BlueStyle.Render(fmt.Sprintf("● %d running", s.Running)),
		MutedStyle.Render(fmt.Sprintf("◌ %d queued", s.Queued)),
		SuccessStyle.Render(fmt.Sprintf("✓ %d done today", s.DoneToday)),
		ErrorStyle.Render(fmt.Sprintf("✗ %d failed today", s.FailedToday)),
		MutedStyle.Render(fmt.Sprintf("cpu %.0f%%  mem %.0f%%  up %s", s.CPUPercent, s.MemoryPercent, shortDuration(s.Uptime()))),
	}
	return strings.Join(parts, "  ")
}

func (m OpsModel) renderList(width int, active bool) string {
	inner := components.FixedContentWidth(width)
	var b strings.Builder
	switch {
	case !m.store.Loaded() && m.store.Err() != nil:
		b.WriteString(ErrorStyle.Render("Could not load tasks: ") + MutedStyle.Render(m.store.Err().Error()))
	case !m.store.Loaded():
		b.WriteString(m.spinner.View() + MutedStyle.Render(" Loading tasks…"))
	case len(m.rows) == 0:
		b.WriteString(MutedStyle.Render("No tasks match.") + "\n\n" + MutedStyle.Render("n: new task"))
	default:
		start, end := m.list.Window()
		for i := start; i < end; i++ {
			b.WriteString(m.renderRow(m.rows[i], i == m.list.Selected(), inner))
			if i < end-1 {
				b.WriteString("\n")
			}
		}
		if m.more {
			b.WriteString("\n\n" + MutedStyle.Render(fmt.Sprintf("m: show more (%d hidden)", m.matched-len(m.page))))
		}
	}
	title := fmt.Sprintf("Tasks (%d)", m.matched)
	return components.FixedBox(title, b.String(), width, active)
}

func (m OpsModel) renderRow(row opsRow, cursor bool, width int) string {
	prefix := "  "
	if cursor {
		prefix = SelectedStyle.Render("› ")
	}
	if row.kind == opsRowGroup {
		g := m.groups[row.group]
		arrow := "▾"
		if !m.expansion.Expanded(g.Key, g.HasLive) {
			arrow = "▸"
		}
		counts := fmt.Sprintf("%d done · %d failed · %d running", g.Counts.Done, g.Counts.Failed, g.Counts.Running)
		return prefix + GroupHeaderStyle.Render(arrow+" "+g.Label) + "  " + MutedStyle.Render(counts)
	}

	task, _ := m.store.Get(row.id)
	mark := ""
	if m.selection.EditMode() {
		mark = components.Checkbox(m.selection.IsSelected(task.ID)) + " "
	}
	status := taskStatusStyle(task.Status).Render(fmt.Sprintf("%-9s", task.Status))
	when := relativeTime(task.Created, m.now())
	if task.Status.Live() {
		when = shortDuration(task.Duration(m.now()))
	}
	titleWidth := max(width-lipgloss.Width(prefix+mark)-9-lipgloss.Width(when)-4, 8)
	title := components.ClampTextWidthEllipsis(task.DisplayTitle(), titleWidth)
	if task.ID == m.selection.Active() {
		title = SelectedStyle.Render(title)
	} else {
		title = NormalStyle.Render(title)
	}
	return prefix + "  " + mark + status + " " + title + "  " + MutedStyle.Render(when)
}

func (m OpsModel) renderDetail(width int) string {
	task, ok := m.store.Get(m.selection.Active())
	if !ok {
		return components.FixedBox("Task", MutedStyle.Render("Task no longer exists."), width, true)
	}
	inner := components.FixedContentWidth(width)
	now := m.now()
	duration := "-"
	if d := task.Duration(now); d > 0 {
		duration = shortDuration(d)
	}
	rows := []components.TableRow{
		{Label: "Status", Value: string(task.Status), ValueColor: taskStatusColor(task.Status)},
		{Label: "Created", Value: task.Created.Local().Format("Jan 2 15:04:05")},
		{Label: "Started", Value: clockTime(task.Started)},
		{Label: "Ended", Value: clockTime(task.Ended)},
		{Label: "Duration", Value: duration},
		{Label: "Source", Value: orDash(task.Source)},
		{Label: "Model", Value: orDash(task.Model)},
	}
	if task.CostUSD > 0 {
		rows = append(rows, components.TableRow{Label: "Cost", Value: fmt.Sprintf("$%.4f", task.CostUSD)})
	}
	if task.Attempts > 1 {
		rows = append(rows, components.TableRow{Label: "Attempts", Value: fmt.Sprintf("%d", task.Attempts)})
	}

	var b strings.Builder
	for _, r := range rows {
		b.WriteString(components.InfoRow(r.Label, r.Value) + "\n")
	}
	b.WriteString("\n" + AccentStyle.Render("Prompt") + "\n")
	b.WriteString(wrapText(task.Prompt, inner, 6))
	if task.Error != "" {
		b.WriteString("\n\n" + ErrorStyle.Render("Error") + "\n" + wrapText(task.Error, inner, 4))
	} else if task.Result != "" {
		b.WriteString("\n\n" + SuccessStyle.Render("Result") + "\n" + wrapText(task.Result, inner, 6))
	}

	scroll := "auto-scroll off"
	if m.autoScroll {
		scroll = "auto-scroll on"
	}
	b.WriteString("\n\n" + AccentStyle.Render("Log") + MutedStyle.Render("  "+scroll))
	if m.logs.Ticking() {
		b.WriteString(BlueStyle.Render("  ● live"))
	}
	b.WriteString("\n")
	b.WriteString(m.renderLogBody())

	return components.FixedBox(components.ClampTextWidthEllipsis(task.DisplayTitle(), max(inner-8, 8)), b.String(), width, true)
}

func (m OpsModel) renderLogBody() string {
	switch m.logs.State() {
	case listsync.PollLoading:
		return m.spinner.View() + MutedStyle.Render(" Loading log…")
	case listsync.PollNotFound:
		return MutedStyle.Render("No log file found")
	case listsync.PollFailed:
		return ErrorStyle.Render("Could not load log: ") + MutedStyle.Render(m.logs.Err().Error())
	case listsync.PollLoaded:
		if strings.TrimSpace(m.logs.Payload()) == "" {
			return MutedStyle.Render("Log is empty")
		}
		return m.logView.View()
	}
	return ""
}

func (m OpsModel) renderComposer() string {
	title := "New Task"
	if n := len(api.SplitPrompts(m.composer.Value())); n > 1 {
		title = fmt.Sprintf("New Batch (%d tasks)", n)
	}
	hint := MutedStyle.Render("ctrl+s: submit | esc: close (draft kept)")
	return components.TitledBox(title, m.composer.View()+"\n\n"+hint, m.width)
}

func (m OpsModel) hints() []string {
	if m.confirm != nil {
		return confirmHints()
	}
	if m.composing {
		return []string{
			components.Hint("ctrl+s", "Submit"),
			components.Hint("esc", "Close"),
		}
	}
	if m.searching {
		return []string{
			components.Hint("enter", "Apply"),
			components.Hint("esc", "Clear"),
		}
	}
	hints := []string{
		components.Hint("↑/↓", "Scroll"),
		components.Hint("←/→", "Filter"),
		components.Hint("enter", "Open"),
		components.Hint("n", "New"),
		components.Hint("/", "Search"),
		components.Hint("v", "Select"),
	}
	if m.selection.EditMode() {
		hints = append(hints,
			components.Hint("space", "Toggle"),
			components.Hint("a", "All"),
		)
	}
	hints = append(hints,
		components.Hint("x", "Kill"),
		components.Hint("d", "Delete"),
		components.Hint("c", "Collapse"),
		components.Hint("m", "More"),
		components.Hint("r", "Refresh"),
	)
	if m.selection.Active() != "" {
		hints = append(hints,
			components.Hint("s", "Auto-scroll"),
			components.Hint("pgup/pgdn", "Log"),
			components.Hint("esc", "Close"),
		)
	}
	return hints
}

func taskStatusColor(status api.TaskStatus) string {
	switch status {
	case api.TaskRunning:
		return string(ColorBlue)
	case api.TaskDone:
		return string(ColorSuccess)
	case api.TaskFailed:
		return string(ColorError)
	case api.TaskCancelled:
		return string(ColorWarning)
	}
	return string(ColorMuted)
}

// wrapText wraps s to width and keeps at most maxLines lines.
func wrapText(s string, width, maxLines int) string {
	s = components.SanitizeText(strings.TrimSpace(s))
	if s == "" {
		return MutedStyle.Render("-")
	}
	wrapped := lipgloss.NewStyle().Width(max(width, 10)).Render(s)
	lines := strings.Split(wrapped, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = append(lines[:maxLines], MutedStyle.Render("…"))
	}
	return NormalStyle.Render(strings.Join(lines, "\n"))
}
