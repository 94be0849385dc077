package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/config"
	"github.com/gravitrone/concierge/internal/logging"
	"github.com/gravitrone/concierge/internal/ui/components"
)

// --- Tab Constants ---

const (
	tabOps       = 0
	tabKnowledge = 1
	tabContacts  = 2
	tabUpload    = 3
	tabCount     = 4
)

var tabNames = []string{"Ops", "Knowledge", "Contacts", "Upload"}

const toastDuration = 2500 * time.Millisecond

// --- Messages ---

type clearToastMsg struct{ id string }

type startupCheckedMsg struct {
	status string
	err    error
}

type appToast struct {
	id    string
	level string
	text  string
}

// --- App Model ---

// App is the root TUI model that routes between pages.
type App struct {
	client *api.Client
	config *config.Config
	logger *slog.Logger

	tab         int
	width       int
	height      int
	helpOpen    bool
	quitConfirm bool

	startupChecking bool
	apiStatus       string
	toast           *appToast
	initCmd         tea.Cmd

	ops      OpsModel
	know     KnowledgeModel
	contacts ContactsModel
	upload   UploadModel
}

// NewApp creates the root application model. A nil logger discards.
func NewApp(client *api.Client, cfg *config.Config, logger *slog.Logger) App {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	a := App{
		client:          client,
		config:          cfg,
		logger:          logger,
		tab:             tabOps,
		startupChecking: client != nil,
		apiStatus:       "checking",
		ops:             NewOpsModel(client, cfg, logger),
		know:            NewKnowledgeModel(client, cfg, logger),
		contacts:        NewContactsModel(client, cfg, logger),
		upload:          NewUploadModel(client, cfg, logger),
	}
	// Init cannot keep model changes, so the first page is entered here.
	a.ops, a.initCmd = a.ops.Enter()
	return a
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.initCmd}
	if a.startupChecking {
		cmds = append(cmds, a.runStartupCheckCmd())
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		bodyHeight := a.bodyHeight()
		a.ops = a.ops.SetSize(msg.Width, bodyHeight)
		a.know = a.know.SetSize(msg.Width, bodyHeight)
		a.contacts = a.contacts.SetSize(msg.Width, bodyHeight)
		a.upload = a.upload.SetSize(msg.Width, bodyHeight)
		return a, nil

	case notifyMsg:
		return a, a.setToast(msg.level, msg.text)
	case clearToastMsg:
		if a.toast != nil && a.toast.id == msg.id {
			a.toast = nil
		}
		return a, nil
	case startupCheckedMsg:
		a.startupChecking = false
		if msg.err != nil {
			a.apiStatus = classifyStartupAPI(msg.err)
			a.logger.Warn("startup health check failed", "err", msg.err)
			return a, a.setToast(toastError, fmt.Sprintf("Backend is %s at %s", a.apiStatus, a.client.BaseURL()))
		}
		a.apiStatus = "ok"
		return a, a.setToast(toastSuccess, "Connected to "+a.client.BaseURL())

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	// Results, ticks and poll messages go to every page. Each page drops
	// what is not addressed to its current session.
	return a.broadcast(msg)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.quitConfirm {
		switch {
		case isConfirm(msg):
			return a, tea.Quit
		case isCancel(msg):
			a.quitConfirm = false
		}
		return a, nil
	}
	if a.helpOpen {
		if isBack(msg) || isKey(msg, "?") {
			a.helpOpen = false
		}
		return a, nil
	}

	if isKey(msg, "ctrl+c") {
		return a.requestQuit()
	}
	if !a.pageCapturing() {
		if isKey(msg, "?") {
			a.helpOpen = true
			return a, nil
		}
		if isQuit(msg) {
			return a.requestQuit()
		}
		if idx, ok := tabIndexForKey(msg.String()); ok {
			return a.switchTab(idx)
		}
		if isKey(msg, "tab") {
			return a.switchTab((a.tab + 1) % tabCount)
		}
		if isKey(msg, "shift+tab") {
			return a.switchTab((a.tab - 1 + tabCount) % tabCount)
		}
	}

	var cmd tea.Cmd
	switch a.tab {
	case tabOps:
		a.ops, cmd = a.ops.Update(msg)
	case tabKnowledge:
		a.know, cmd = a.know.Update(msg)
	case tabContacts:
		a.contacts, cmd = a.contacts.Update(msg)
	case tabUpload:
		a.upload, cmd = a.upload.Update(msg)
	}
	return a, cmd
}

func (a App) broadcast(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, 0, tabCount)
	var cmd tea.Cmd
	a.ops, cmd = a.ops.Update(msg)
	cmds = append(cmds, cmd)
	a.know, cmd = a.know.Update(msg)
	cmds = append(cmds, cmd)
	a.contacts, cmd = a.contacts.Update(msg)
	cmds = append(cmds, cmd)
	a.upload, cmd = a.upload.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a App) requestQuit() (tea.Model, tea.Cmd) {
	if a.hasUnsaved() {
		a.quitConfirm = true
		return a, nil
	}
	return a, tea.Quit
}

func (a App) View() string {
	banner := centerBlockUniform(RenderBanner(a.height), a.width)
	tabs := centerBlockUniform(a.renderTabs(), a.width)

	var content string
	switch {
	case a.quitConfirm:
		content = a.renderQuitConfirm()
	case a.helpOpen:
		content = a.renderHelp()
	default:
		content = a.pageView()
	}
	content = centerBlockUniform(content, a.width)

	hints := components.StatusBar(a.statusHints(), a.width)

	feedback := ""
	if a.toast != nil {
		feedback = "\n\n" + centerBlockUniform(a.renderToast(), a.width)
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s%s", banner, tabs, content, hints, feedback)
}

func (a App) pageView() string {
	switch a.tab {
	case tabKnowledge:
		return a.know.View()
	case tabContacts:
		return a.contacts.View()
	case tabUpload:
		return a.upload.View()
	default:
		return a.ops.View()
	}
}

// switchTab leaves the current page, which stops its pollers and refresh
// ticks, then enters the new one.
func (a App) switchTab(newTab int) (tea.Model, tea.Cmd) {
	if newTab == a.tab {
		return a, nil
	}
	switch a.tab {
	case tabOps:
		a.ops = a.ops.Leave()
	case tabKnowledge:
		a.know = a.know.Leave()
	case tabContacts:
		a.contacts = a.contacts.Leave()
	case tabUpload:
		a.upload = a.upload.Leave()
	}
	a.tab = newTab
	var cmd tea.Cmd
	switch newTab {
	case tabOps:
		a.ops, cmd = a.ops.Enter()
	case tabKnowledge:
		a.know, cmd = a.know.Enter()
	case tabContacts:
		a.contacts, cmd = a.contacts.Enter()
	case tabUpload:
		a.upload, cmd = a.upload.Enter()
	}
	return a, cmd
}

// pageCapturing reports whether the active page owns every key, like a
// focused text field.
func (a App) pageCapturing() bool {
	switch a.tab {
	case tabOps:
		return a.ops.capturing()
	case tabKnowledge:
		return a.know.capturing()
	case tabContacts:
		return a.contacts.capturing()
	case tabUpload:
		return a.upload.capturing()
	}
	return false
}

func (a App) hasUnsaved() bool {
	return a.ops.hasUnsaved() || a.contacts.hasUnsaved() || a.upload.uploading
}

func (a App) bodyHeight() int {
	chrome := 12
	if a.height >= compactHeight {
		chrome += 3
	}
	return max(a.height-chrome, 6)
}

func (a App) renderTabs() string {
	segments := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if i == a.tab {
			segments = append(segments, TabActiveStyle.Render(label))
		} else {
			segments = append(segments, TabInactiveStyle.Render(label))
		}
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, segments...)
	if a.startupChecking {
		line += MutedStyle.Render("  checking backend…")
	} else if a.apiStatus != "ok" {
		line += ErrorStyle.Render("  backend " + a.apiStatus)
	}
	return line
}

func (a App) statusHints() []string {
	if a.quitConfirm {
		return []string{
			components.Hint("y", "Confirm"),
			components.Hint("n", "Cancel"),
		}
	}
	if a.helpOpen {
		return []string{components.Hint("esc", "Back")}
	}
	return append(a.pageHints(), a.globalHints()...)
}

func (a App) globalHints() []string {
	if a.pageCapturing() {
		return nil
	}
	return []string{
		components.Hint("1-4/tab", "Pages"),
		components.Hint("?", "Help"),
		components.Hint("q", "Quit"),
	}
}

func (a App) pageHints() []string {
	switch a.tab {
	case tabKnowledge:
		return a.know.hints()
	case tabContacts:
		return a.contacts.hints()
	case tabUpload:
		return a.upload.hints()
	default:
		return a.ops.hints()
	}
}

func (a App) renderHelp() string {
	hints := append(a.pageHints(), a.globalHints()...)
	lines := make([]string, 0, len(hints)+2)
	lines = append(lines, MutedStyle.Render("esc to close"), "")
	for _, hint := range hints {
		lines = append(lines, "  "+hint)
	}
	return components.Indent(components.TitledBox("Help: "+tabNames[a.tab], strings.Join(lines, "\n"), a.width), 1)
}

func (a App) renderQuitConfirm() string {
	body := "You have unsaved input or an upload in progress. Quit anyway?"
	return components.Indent(components.ConfirmDialog("Quit", body), 1)
}

// --- Startup ---

func (a App) runStartupCheckCmd() tea.Cmd {
	client := a.client
	return func() tea.Msg {
		status, err := client.WithTimeout(700 * time.Millisecond).WithMaxTries(1).Health()
		return startupCheckedMsg{status: status, err: err}
	}
}

func classifyStartupAPI(err error) string {
	if err == nil {
		return "ok"
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") {
		return "timing out"
	}
	return "unreachable"
}

// --- Toasts ---

// setToast replaces the current toast. The clear tick carries the toast
// id so an older tick never hides a newer toast.
func (a *App) setToast(level, text string) tea.Cmd {
	id := uuid.NewString()
	a.toast = &appToast{
		id:    id,
		level: level,
		text:  components.SanitizeOneLine(text),
	}
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return clearToastMsg{id: id}
	})
}

func (a App) renderToast() string {
	if a.toast == nil {
		return ""
	}
	title := "Info"
	switch a.toast.level {
	case toastSuccess:
		title = "Success"
	case toastWarning:
		title = "Warning"
	case toastError:
		return components.ErrorBox("Error", a.toast.text, a.width)
	}
	rows := []components.TableRow{{Label: title, Value: a.toast.text, ValueColor: toastColor(a.toast.level)}}
	return components.Table("", rows, a.width)
}

func centerBlockUniform(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	maxWidth := 0
	for _, line := range lines {
		maxWidth = max(maxWidth, lipgloss.Width(line))
	}
	if maxWidth <= 0 || maxWidth >= width {
		return s
	}
	pad := (width - maxWidth) / 2
	if pad <= 0 {
		return s
	}
	prefix := strings.Repeat(" ", pad)
	for i := range lines {
		if lines[i] != "" {
			lines[i] = prefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
