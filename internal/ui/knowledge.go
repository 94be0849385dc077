package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/config"
	"github.com/gravitrone/concierge/internal/listsync"
	"github.com/gravitrone/concierge/internal/ui/components"
)

// --- Messages ---

type inboxLoadedMsg struct {
	items []api.InboxItem
	err   error
}
type inboxActionDoneMsg struct {
	id     string
	action api.InboxAction
	err    error
}
type inboxRecheckedMsg struct {
	id  string
	err error
}
type inboxDeletedMsg struct {
	id  string
	err error
}
type inboxBulkDoneMsg struct{ result listsync.BulkResult }

const (
	questionsSlot = "knowledge.questions"
	// inboxFetchLimit caps one inbox fetch; the page paginates locally.
	inboxFetchLimit = 500
)

var (
	knowledgeTabs      = []string{"actionable", "saved", "executed", "dismissed", listsync.AllTab}
	knowledgeTabLabels = []string{"Actionable", "Saved", "Executed", "Dismissed", "All"}
)

func inboxSchema() listsync.Schema[api.InboxItem] {
	return listsync.Schema[api.InboxItem]{
		ID:   func(it api.InboxItem) string { return it.ID },
		Time: func(it api.InboxItem) time.Time { return it.Date },
		Search: func(it api.InboxItem) []string {
			return append([]string{it.Subject, it.From, it.Summary, it.Category}, it.Tags...)
		},
		Tab: func(it api.InboxItem, tab string) bool {
			if tab == "actionable" {
				return it.Status == api.InboxUnset
			}
			return string(it.Status) == tab
		},
		Live: func(it api.InboxItem) bool { return it.Processing },
	}
}

// summaryCache keeps glamour output per item for the current wrap width.
type summaryCache struct {
	width    int
	renderer *glamour.TermRenderer
	rendered map[string]string
}

func (c *summaryCache) render(id, markdown string, width int) string {
	if width != c.width || c.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(max(width, 20)),
		)
		if err != nil {
			return wrapText(markdown, width, 0)
		}
		c.width = width
		c.renderer = r
		c.rendered = map[string]string{}
	}
	key := id + "\x00" + markdown
	if out, ok := c.rendered[key]; ok {
		return out
	}
	out, err := c.renderer.Render(markdown)
	if err != nil {
		return wrapText(markdown, width, 0)
	}
	out = strings.Trim(out, "\n")
	c.rendered[key] = out
	return out
}

// --- Knowledge Model ---

// KnowledgeModel is the inbox triage page.
type KnowledgeModel struct {
	client *api.Client
	logger *slog.Logger
	now    func() time.Time

	store     *listsync.Store[api.InboxItem]
	selection *listsync.Selection
	questions *listsync.Poller[[]api.InboxQuestion]
	summaries *summaryCache
	list      *components.List

	loading bool
	tab     int
	matched int
	page    []api.InboxItem
	more    bool

	search    textinput.Model
	searching bool
	confirm   *pendingConfirm
	spinner   spinner.Model

	width  int
	height int
}

func NewKnowledgeModel(client *api.Client, cfg *config.Config, logger *slog.Logger) KnowledgeModel {
	search := textinput.New()
	search.Placeholder = "search inbox"
	search.Prompt = "/ "
	search.CharLimit = 120

	return KnowledgeModel{
		client:    client,
		logger:    logger,
		now:       time.Now,
		store:     listsync.NewStore(inboxSchema(), cfg.PageSize),
		selection: listsync.NewSelection(),
		questions: listsync.NewPoller[[]api.InboxQuestion](questionsSlot, cfg.QuestionPoll, client.GetInboxQuestions, isNotFound),
		summaries: &summaryCache{},
		list:      components.NewList(15),
		search:    search,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(AccentStyle)),
	}
}

// Enter loads the inbox once for this visit.
func (m KnowledgeModel) Enter() (KnowledgeModel, tea.Cmd) {
	m.loading = true
	return m, tea.Batch(m.loadInbox, m.spinner.Tick)
}

// Leave closes the detail and stops the question poller.
func (m KnowledgeModel) Leave() KnowledgeModel {
	m.questions.Stop()
	m.selection.Close()
	m.searching = false
	m.search.Blur()
	m.confirm = nil
	return m
}

func (m KnowledgeModel) SetSize(width, height int) KnowledgeModel {
	m.width = width
	m.height = height
	m.list.SetPageSize(max(height-8, 5))
	return m
}

func (m KnowledgeModel) contentWidth() int {
	return max(m.width-2, 40)
}

func (m KnowledgeModel) capturing() bool {
	return m.searching || m.confirm != nil
}

// --- Commands ---

func (m KnowledgeModel) loadInbox() tea.Msg {
	items, err := m.client.ListInbox(inboxFetchLimit)
	return inboxLoadedMsg{items: items, err: err}
}

func (m KnowledgeModel) applyAction(id string, action api.InboxAction) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return inboxActionDoneMsg{id: id, action: action, err: client.ApplyInboxAction(id, action)}
	}
}

func (m KnowledgeModel) recheck(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return inboxRecheckedMsg{id: id, err: client.RecheckInboxItem(id)}
	}
}

func (m KnowledgeModel) deleteItem(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return inboxDeletedMsg{id: id, err: client.DeleteInboxItem(id)}
	}
}

func (m KnowledgeModel) bulk(verb string, ids []string, op func(string) error) tea.Cmd {
	return func() tea.Msg {
		return inboxBulkDoneMsg{result: listsync.RunBulk(verb, "item", ids, op)}
	}
}

// --- Update ---

func (m KnowledgeModel) Update(msg tea.Msg) (KnowledgeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case inboxLoadedMsg:
		m.loading = false
		if !m.store.ApplyLoad(msg.items, msg.err) {
			m.logger.Warn("load inbox failed", "err", msg.err)
			return m, notifyErr("Load inbox", msg.err)
		}
		cmd := m.reconcile()
		m.rebuild()
		return m, cmd

	case inboxActionDoneMsg:
		if msg.err != nil {
			m.logger.Warn("inbox action failed", "id", msg.id, "action", msg.action, "err", msg.err)
			return m, notifyErr(actionTitle(msg.action), msg.err)
		}
		m.store.Patch(msg.id, func(it *api.InboxItem) {
			it.Status = msg.action.ResultStatus()
		})
		m.rebuild()
		return m, notify(toastSuccess, "Item "+string(msg.action.ResultStatus()))

	case inboxRecheckedMsg:
		if msg.err != nil {
			m.logger.Warn("inbox recheck failed", "id", msg.id, "err", msg.err)
			return m, notifyErr("Recheck", msg.err)
		}
		m.store.Patch(msg.id, func(it *api.InboxItem) { it.Processing = true })
		var cmd tea.Cmd
		if m.selection.Active() == msg.id {
			cmd = m.questions.SetLive(true)
		}
		m.rebuild()
		return m, tea.Batch(cmd, notify(toastInfo, "Recheck started"))

	case inboxDeletedMsg:
		if msg.err != nil {
			m.logger.Warn("delete inbox item failed", "id", msg.id, "err", msg.err)
			return m, notifyErr("Delete item", msg.err)
		}
		m.store.Remove(msg.id)
		if m.selection.Forget(msg.id) {
			m.questions.Stop()
		}
		m.rebuild()
		return m, notify(toastSuccess, "Item deleted")

	case inboxBulkDoneMsg:
		m.selection.Clear()
		level := toastSuccess
		if msg.result.Failed() {
			level = toastWarning
			m.logger.Warn("bulk inbox action partly failed",
				"verb", msg.result.Verb, "failed", len(msg.result.Failures), "err", msg.result.FirstError())
		}
		m.rebuild()
		m.loading = true
		return m, tea.Batch(notify(level, msg.result.Summary()), m.loadInbox)

	case listsync.PollTickMsg, listsync.PollResultMsg[[]api.InboxQuestion]:
		handled, cmd := m.questions.Update(msg)
		if handled {
			if res, ok := msg.(listsync.PollResultMsg[[]api.InboxQuestion]); ok && res.Err != nil && !isNotFound(res.Err) {
				m.logger.Debug("question poll failed", "id", res.ID, "err", res.Err)
			}
		}
		return m, cmd

	case spinner.TickMsg:
		if !m.loading && m.questions.State() != listsync.PollLoading {
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

func (m *KnowledgeModel) reconcile() tea.Cmd {
	if m.selection.Reconcile(m.store.IDs()) {
		m.questions.Stop()
		return nil
	}
	item, ok := m.store.Get(m.selection.Active())
	if !ok {
		return nil
	}
	return m.questions.SetLive(item.Processing)
}

func (m *KnowledgeModel) rebuild() {
	view := m.store.View(knowledgeTabs[m.tab], m.search.Value())
	m.matched = len(view)
	m.page, m.more = m.store.Page(view)
	m.list.SetLen(len(m.page))
}

func (m KnowledgeModel) visibleIDs() []string {
	ids := make([]string, 0, len(m.page))
	for _, it := range m.page {
		ids = append(ids, it.ID)
	}
	return ids
}

func (m KnowledgeModel) cursorID() string {
	idx := m.list.Selected()
	if idx < 0 || idx >= len(m.page) {
		return ""
	}
	return m.page[idx].ID
}

// targetID is the open item, or the one under the cursor.
func (m KnowledgeModel) targetID() string {
	if id := m.selection.Active(); id != "" {
		return id
	}
	return m.cursorID()
}

// --- Keys ---

func (m KnowledgeModel) handleKeys(msg tea.KeyMsg) (KnowledgeModel, tea.Cmd) {
	if m.confirm != nil {
		closed, cmd := handleConfirmKey(m.confirm, msg)
		if closed {
			m.confirm = nil
		}
		return m, cmd
	}
	if m.searching {
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

	bulk := m.selection.EditMode() && m.selection.Count() > 0
	switch {
	case isUp(msg):
		m.list.Up()
	case isDown(msg):
		m.list.Down()
	case isKey(msg, "left"):
		m.setTab((m.tab - 1 + len(knowledgeTabs)) % len(knowledgeTabs))
	case isKey(msg, "right"):
		m.setTab((m.tab + 1) % len(knowledgeTabs))
	case isKey(msg, "/"):
		m.searching = true
		return m, m.search.Focus()
	case isKey(msg, "r"):
		m.loading = true
		return m, tea.Batch(m.loadInbox, m.questions.Refresh(), m.spinner.Tick)
	case isKey(msg, "m"):
		if m.more {
			m.store.LoadMore()
			m.rebuild()
		}
	case isKey(msg, "v"):
		m.selection.ToggleEditMode()
	case isSpace(msg):
		if id := m.cursorID(); id != "" {
			m.selection.Toggle(id)
		}
	case isKey(msg, "a"):
		m.selection.ToggleAll(m.visibleIDs())
	case isEnter(msg):
		return m.openItem(m.cursorID())
	case isKey(msg, "x"):
		if bulk {
			ids := m.selection.Selected()
			return m, m.bulk("Dismissed", ids, func(id string) error {
				return m.client.ApplyInboxAction(id, api.ActionDismiss)
			})
		}
		if id := m.targetID(); id != "" {
			return m, m.applyAction(id, api.ActionDismiss)
		}
	case isKey(msg, "s"):
		if id := m.targetID(); id != "" && !bulk {
			return m, m.applyAction(id, api.ActionSave)
		}
	case isKey(msg, "e"):
		if id := m.targetID(); id != "" && !bulk {
			return m.askExecute(id)
		}
	case isKey(msg, "R"):
		if id := m.targetID(); id != "" && !bulk {
			return m, m.recheck(id)
		}
	case isKey(msg, "d"):
		if bulk {
			return m.askBulkDelete()
		}
		return m.askDelete(m.targetID())
	case isBack(msg):
		switch {
		case m.selection.Active() != "":
			m.selection.Close()
			m.questions.Stop()
		case m.selection.EditMode():
			m.selection.ToggleEditMode()
		case m.search.Value() != "":
			m.search.SetValue("")
			m.list.Reset()
			m.rebuild()
		}
	}
	return m, nil
}

func (m *KnowledgeModel) setTab(idx int) {
	m.tab = idx
	m.store.ResetPage()
	m.list.Reset()
	m.rebuild()
}

func (m KnowledgeModel) openItem(id string) (KnowledgeModel, tea.Cmd) {
	item, ok := m.store.Get(id)
	if !ok {
		return m, nil
	}
	m.selection.Select(id)
	return m, tea.Batch(m.questions.Start(id, item.Processing), m.spinner.Tick)
}

func (m KnowledgeModel) askExecute(id string) (KnowledgeModel, tea.Cmd) {
	item, ok := m.store.Get(id)
	if !ok {
		return m, nil
	}
	m.confirm = &pendingConfirm{
		title:   "Execute",
		message: fmt.Sprintf("Let the assistant act on %q?", components.ClampTextWidthEllipsis(item.Subject, 60)),
		run:     m.applyAction(id, api.ActionExecute),
	}
	return m, nil
}

func (m KnowledgeModel) askDelete(id string) (KnowledgeModel, tea.Cmd) {
	item, ok := m.store.Get(id)
	if !ok {
		return m, nil
	}
	m.confirm = &pendingConfirm{
		title:   "Delete Item",
		message: fmt.Sprintf("Delete %q? This cannot be undone.", components.ClampTextWidthEllipsis(item.Subject, 60)),
		run:     m.deleteItem(id),
	}
	return m, nil
}

func (m KnowledgeModel) askBulkDelete() (KnowledgeModel, tea.Cmd) {
	ids := m.selection.Selected()
	m.confirm = &pendingConfirm{
		title:   "Delete Items",
		message: fmt.Sprintf("Delete %s? This cannot be undone.", plural(len(ids), "selected item")),
		run:     m.bulk("Deleted", ids, m.client.DeleteInboxItem),
	}
	return m, nil
}

func actionTitle(action api.InboxAction) string {
	switch action {
	case api.ActionDismiss:
		return "Dismiss"
	case api.ActionSave:
		return "Save"
	case api.ActionExecute:
		return "Execute"
	}
	return string(action)
}

// --- View ---

func (m KnowledgeModel) View() string {
	if m.confirm != nil {
		return m.confirm.view()
	}
	width := m.contentWidth()
	header := m.renderTabLine()

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

func (m KnowledgeModel) renderTabLine() string {
	segments := make([]string, 0, len(knowledgeTabs))
	for i, label := range knowledgeTabLabels {
		if i == m.tab {
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

func (m KnowledgeModel) renderList(width int, active bool) string {
	inner := components.FixedContentWidth(width)
	var b strings.Builder
	switch {
	case !m.store.Loaded() && m.store.Err() != nil:
		b.WriteString(ErrorStyle.Render("Could not load inbox: ") + MutedStyle.Render(m.store.Err().Error()))
	case !m.store.Loaded():
		b.WriteString(m.spinner.View() + MutedStyle.Render(" Loading inbox…"))
	case len(m.page) == 0:
		b.WriteString(MutedStyle.Render("Inbox zero."))
	default:
		start, end := m.list.Window()
		for i := start; i < end; i++ {
			b.WriteString(m.renderRow(m.page[i], i == m.list.Selected(), inner))
			if i < end-1 {
				b.WriteString("\n")
			}
		}
		if m.more {
			b.WriteString("\n\n" + MutedStyle.Render(fmt.Sprintf("m: show more (%d hidden)", m.matched-len(m.page))))
		}
	}
	title := fmt.Sprintf("Inbox (%d)", m.matched)
	return components.FixedBox(title, b.String(), width, active)
}

func (m KnowledgeModel) renderRow(it api.InboxItem, cursor bool, width int) string {
	prefix := "  "
	if cursor {
		prefix = SelectedStyle.Render("› ")
	}
	mark := ""
	if m.selection.EditMode() {
		mark = components.Checkbox(m.selection.IsSelected(it.ID)) + " "
	}
	status := inboxStatusStyle(it.Status).Render(fmt.Sprintf("%-9s", it.Status.Label()))
	if it.Processing {
		status = BlueStyle.Render(fmt.Sprintf("%-9s", "checking"))
	}
	when := relativeTime(it.Date, m.now())
	from := components.ClampTextWidthEllipsis(it.From, 18)
	subjectWidth := max(width-lipgloss.Width(prefix+mark)-10-lipgloss.Width(from)-lipgloss.Width(when)-4, 8)
	subject := components.ClampTextWidthEllipsis(it.Subject, subjectWidth)
	if it.ID == m.selection.Active() {
		subject = SelectedStyle.Render(subject)
	} else {
		subject = NormalStyle.Render(subject)
	}
	return prefix + mark + status + " " + subject + "  " + MutedStyle.Render(from+" · "+when)
}

func (m KnowledgeModel) renderDetail(width int) string {
	item, ok := m.store.Get(m.selection.Active())
	if !ok {
		return components.FixedBox("Item", MutedStyle.Render("Item no longer exists."), width, true)
	}
	inner := components.FixedContentWidth(width)

	var b strings.Builder
	b.WriteString(components.InfoRow("From", item.From) + "\n")
	b.WriteString(components.InfoRow("Date", item.Date.Local().Format("Mon Jan 2 15:04")) + "\n")
	b.WriteString(components.InfoRow("Status", item.Status.Label()) + "\n")
	if item.Category != "" {
		b.WriteString(components.InfoRow("Category", item.Category) + "\n")
	}
	if len(item.Tags) > 0 {
		b.WriteString(components.InfoRow("Tags", strings.Join(item.Tags, ", ")) + "\n")
	}
	b.WriteString("\n")
	if strings.TrimSpace(item.Summary) == "" {
		b.WriteString(MutedStyle.Render("No summary yet."))
	} else {
		b.WriteString(m.summaries.render(item.ID, item.Summary, inner))
	}

	b.WriteString("\n\n" + AccentStyle.Render("Questions"))
	if item.Processing {
		b.WriteString(BlueStyle.Render("  rechecking"))
	}
	b.WriteString("\n" + m.renderQuestions(inner))

	title := components.ClampTextWidthEllipsis(item.Subject, max(inner-8, 8))
	return components.FixedBox(title, b.String(), width, true)
}

func (m KnowledgeModel) renderQuestions(width int) string {
	switch m.questions.State() {
	case listsync.PollLoading:
		return m.spinner.View() + MutedStyle.Render(" Loading questions…")
	case listsync.PollNotFound:
		return MutedStyle.Render("No questions recorded")
	case listsync.PollFailed:
		return ErrorStyle.Render("Could not load questions: ") + MutedStyle.Render(m.questions.Err().Error())
	}
	questions := m.questions.Payload()
	if len(questions) == 0 {
		return MutedStyle.Render("No questions yet")
	}
	lines := make([]string, 0, len(questions)*2)
	for i, q := range questions {
		lines = append(lines, NormalStyle.Render(fmt.Sprintf("%d. %s", i+1, components.ClampTextWidthEllipsis(q.Question, width-4))))
		if q.Answer != "" {
			lines = append(lines, SuccessStyle.Render("   → "+components.ClampTextWidthEllipsis(q.Answer, width-6)))
		}
	}
	return strings.Join(lines, "\n")
}

func (m KnowledgeModel) hints() []string {
	if m.confirm != nil {
		return confirmHints()
	}
	if m.searching {
		return []string{
			components.Hint("enter", "Apply"),
			components.Hint("esc", "Clear"),
		}
	}
	hints := []string{
		components.Hint("↑/↓", "Scroll"),
		components.Hint("←/→", "Tab"),
		components.Hint("enter", "Open"),
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
		components.Hint("x", "Dismiss"),
		components.Hint("s", "Save"),
		components.Hint("e", "Execute"),
		components.Hint("R", "Recheck"),
		components.Hint("d", "Delete"),
		components.Hint("r", "Refresh"),
	)
	if m.selection.Active() != "" {
		hints = append(hints, components.Hint("esc", "Close"))
	}
	return hints
}
