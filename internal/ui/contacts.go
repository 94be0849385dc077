package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/config"
	"github.com/gravitrone/concierge/internal/listsync"
	"github.com/gravitrone/concierge/internal/ui/components"
)

// --- Messages ---

type contactsLoadedMsg struct {
	items []api.Contact
	err   error
}
type contactSavedMsg struct {
	id      string
	created bool
	contact *api.Contact
	input   contactFields
	err     error
}
type contactDeletedMsg struct {
	id  string
	err error
}
type contactsBulkDoneMsg struct{ result listsync.BulkResult }

const preferencesSlot = "contacts.preferences"

// --- Form ---

const (
	contactFieldName = iota
	contactFieldEmail
	contactFieldPhone
	contactFieldRelation
	contactFieldBirthday
	contactFieldNotes
	contactFieldCount
)

var contactFieldLabels = []string{"Name", "Email", "Phone", "Relation", "Birthday", "Notes"}

// contactFields is the editable part of a contact, in form order.
type contactFields [contactFieldCount]string

func fieldsOf(c api.Contact) contactFields {
	return contactFields{c.Name, c.Email, c.Phone, c.Relation, c.Birthday, c.Notes}
}

func (f contactFields) apply(c *api.Contact) {
	c.Name = f[contactFieldName]
	c.Email = f[contactFieldEmail]
	c.Phone = f[contactFieldPhone]
	c.Relation = f[contactFieldRelation]
	c.Birthday = f[contactFieldBirthday]
	c.Notes = f[contactFieldNotes]
}

func (f contactFields) createInput() api.CreateContactInput {
	return api.CreateContactInput{
		Name:     f[contactFieldName],
		Email:    f[contactFieldEmail],
		Phone:    f[contactFieldPhone],
		Relation: f[contactFieldRelation],
		Birthday: f[contactFieldBirthday],
		Notes:    f[contactFieldNotes],
	}
}

// updateInput sends only the fields that differ from before.
func (f contactFields) updateInput(before contactFields) api.UpdateContactInput {
	var in api.UpdateContactInput
	targets := [contactFieldCount]**string{&in.Name, &in.Email, &in.Phone, &in.Relation, &in.Birthday, &in.Notes}
	for i := range f {
		if f[i] != before[i] {
			v := f[i]
			*targets[i] = &v
		}
	}
	return in
}

func (f contactFields) diff(before contactFields) []components.DiffRow {
	var rows []components.DiffRow
	for i := range f {
		if f[i] != before[i] {
			rows = append(rows, components.DiffRow{Label: contactFieldLabels[i], From: before[i], To: f[i]})
		}
	}
	return rows
}

type contactForm struct {
	editID string
	before contactFields
	inputs []textinput.Model
	focus  int
	saving bool
	err    string
}

func newContactForm(editID string, before contactFields, width int) *contactForm {
	f := &contactForm{editID: editID, before: before}
	for i, label := range contactFieldLabels {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = strings.ToLower(label)
		in.CharLimit = 256
		in.Width = max(width, 20)
		if i == contactFieldBirthday {
			in.Placeholder = "YYYY-MM-DD"
		}
		in.SetValue(before[i])
		f.inputs = append(f.inputs, in)
	}
	return f
}

func (f *contactForm) values() contactFields {
	var out contactFields
	for i := range f.inputs {
		out[i] = strings.TrimSpace(f.inputs[i].Value())
	}
	return out
}

func (f *contactForm) dirty() bool {
	return f.values() != f.before
}

func (f *contactForm) focusField(i int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

// --- Contacts Model ---

// ContactsModel lists contacts alphabetically with the assistant's learned
// preferences in the detail pane.
type ContactsModel struct {
	client *api.Client
	logger *slog.Logger

	store       *listsync.Store[api.Contact]
	selection   *listsync.Selection
	preferences *listsync.Poller[[]api.Preference]
	list        *components.List

	loading bool
	matched int
	page    []api.Contact
	more    bool

	search    textinput.Model
	searching bool
	form      *contactForm
	confirm   *pendingConfirm
	spinner   spinner.Model

	width  int
	height int
}

func contactSchema() listsync.Schema[api.Contact] {
	return listsync.Schema[api.Contact]{
		ID:   func(c api.Contact) string { return c.ID },
		Time: func(c api.Contact) time.Time { return c.Created },
		Search: func(c api.Contact) []string {
			return []string{c.Name, c.Email, c.Phone, c.Relation, c.Notes}
		},
		Less: func(a, b api.Contact) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		},
	}
}

// contactInitial returns the letter a contact is grouped under.
func contactInitial(name string) string {
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) {
			return string(unicode.ToUpper(r))
		}
		return "#"
	}
	return "#"
}

func NewContactsModel(client *api.Client, cfg *config.Config, logger *slog.Logger) ContactsModel {
	search := textinput.New()
	search.Placeholder = "search contacts"
	search.Prompt = "/ "
	search.CharLimit = 120

	return ContactsModel{
		client:    client,
		logger:    logger,
		store:     listsync.NewStore(contactSchema(), cfg.PageSize),
		selection: listsync.NewSelection(),
		// Contacts are never live, so this fetches once per opened contact.
		preferences: listsync.NewPoller[[]api.Preference](preferencesSlot, time.Minute, client.GetContactPreferences, isNotFound),
		list:        components.NewList(15),
		search:      search,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(AccentStyle)),
	}
}

// Enter loads contacts once for this visit.
func (m ContactsModel) Enter() (ContactsModel, tea.Cmd) {
	m.loading = true
	return m, tea.Batch(m.loadContacts, m.spinner.Tick)
}

// Leave closes the detail. An open form is kept as a draft.
func (m ContactsModel) Leave() ContactsModel {
	m.preferences.Stop()
	m.selection.Close()
	m.searching = false
	m.search.Blur()
	m.confirm = nil
	return m
}

func (m ContactsModel) SetSize(width, height int) ContactsModel {
	m.width = width
	m.height = height
	m.list.SetPageSize(max(height-8, 5))
	return m
}

func (m ContactsModel) contentWidth() int {
	return max(m.width-2, 40)
}

func (m ContactsModel) capturing() bool {
	return m.searching || m.form != nil || m.confirm != nil
}

func (m ContactsModel) hasUnsaved() bool {
	return m.form != nil && m.form.dirty()
}

// --- Commands ---

func (m ContactsModel) loadContacts() tea.Msg {
	items, err := m.client.ListContacts()
	return contactsLoadedMsg{items: items, err: err}
}

func (m ContactsModel) saveContact(editID string, before, values contactFields) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if editID == "" {
			c, err := client.CreateContact(values.createInput())
			return contactSavedMsg{created: true, contact: c, input: values, err: err}
		}
		c, err := client.UpdateContact(editID, values.updateInput(before))
		return contactSavedMsg{id: editID, contact: c, input: values, err: err}
	}
}

func (m ContactsModel) deleteContact(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return contactDeletedMsg{id: id, err: client.DeleteContact(id)}
	}
}

func (m ContactsModel) bulkDelete(ids []string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return contactsBulkDoneMsg{result: listsync.RunBulk("Deleted", "contact", ids, client.DeleteContact)}
	}
}

// --- Update ---

func (m ContactsModel) Update(msg tea.Msg) (ContactsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case contactsLoadedMsg:
		m.loading = false
		if !m.store.ApplyLoad(msg.items, msg.err) {
			m.logger.Warn("load contacts failed", "err", msg.err)
			return m, notifyErr("Load contacts", msg.err)
		}
		if m.selection.Reconcile(m.store.IDs()) {
			m.preferences.Stop()
		}
		m.rebuild()
		return m, nil

	case contactSavedMsg:
		if m.form != nil {
			m.form.saving = false
		}
		if msg.err != nil {
			m.logger.Warn("save contact failed", "id", msg.id, "err", msg.err)
			if m.form != nil {
				m.form.err = msg.err.Error()
			}
			return m, notifyErr("Save contact", msg.err)
		}
		m.form = nil
		switch {
		case msg.contact != nil && msg.contact.ID != "":
			m.store.Upsert(*msg.contact)
		case msg.created:
			// The backend did not echo the record; pick it up on reload.
			m.rebuild()
			return m, tea.Batch(notify(toastSuccess, "Contact created"), m.loadContacts)
		default:
			m.store.Patch(msg.id, func(c *api.Contact) { msg.input.apply(c) })
		}
		m.rebuild()
		if msg.created {
			return m, notify(toastSuccess, "Contact created")
		}
		return m, notify(toastSuccess, "Contact updated")

	case contactDeletedMsg:
		if msg.err != nil {
			m.logger.Warn("delete contact failed", "id", msg.id, "err", msg.err)
			return m, notifyErr("Delete contact", msg.err)
		}
		m.store.Remove(msg.id)
		if m.selection.Forget(msg.id) {
			m.preferences.Stop()
		}
		m.rebuild()
		return m, notify(toastSuccess, "Contact deleted")

	case contactsBulkDoneMsg:
		m.selection.Clear()
		level := toastSuccess
		if msg.result.Failed() {
			level = toastWarning
			m.logger.Warn("bulk contact delete partly failed",
				"failed", len(msg.result.Failures), "err", msg.result.FirstError())
		}
		m.rebuild()
		m.loading = true
		return m, tea.Batch(notify(level, msg.result.Summary()), m.loadContacts)

	case listsync.PollTickMsg, listsync.PollResultMsg[[]api.Preference]:
		handled, cmd := m.preferences.Update(msg)
		if handled {
			if res, ok := msg.(listsync.PollResultMsg[[]api.Preference]); ok && res.Err != nil && !isNotFound(res.Err) {
				m.logger.Debug("load preferences failed", "id", res.ID, "err", res.Err)
			}
		}
		return m, cmd

	case spinner.TickMsg:
		if !m.loading && m.preferences.State() != listsync.PollLoading {
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

func (m *ContactsModel) rebuild() {
	view := m.store.View(listsync.AllTab, m.search.Value())
	m.matched = len(view)
	m.page, m.more = m.store.Page(view)
	m.list.SetLen(len(m.page))
}

func (m ContactsModel) visibleIDs() []string {
	ids := make([]string, 0, len(m.page))
	for _, c := range m.page {
		ids = append(ids, c.ID)
	}
	return ids
}

func (m ContactsModel) cursorID() string {
	idx := m.list.Selected()
	if idx < 0 || idx >= len(m.page) {
		return ""
	}
	return m.page[idx].ID
}

func (m ContactsModel) targetID() string {
	if id := m.selection.Active(); id != "" {
		return id
	}
	return m.cursorID()
}

// --- Keys ---

func (m ContactsModel) handleKeys(msg tea.KeyMsg) (ContactsModel, tea.Cmd) {
	if m.confirm != nil {
		closed, cmd := handleConfirmKey(m.confirm, msg)
		if closed {
			m.confirm = nil
			if cmd != nil && m.form != nil {
				m.form.saving = true
			}
		}
		return m, cmd
	}
	if m.form != nil {
		return m.handleFormKeys(msg)
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

	switch {
	case isUp(msg):
		m.list.Up()
	case isDown(msg):
		m.list.Down()
	case isKey(msg, "/"):
		m.searching = true
		return m, m.search.Focus()
	case isKey(msg, "r"):
		m.loading = true
		return m, tea.Batch(m.loadContacts, m.preferences.Refresh(), m.spinner.Tick)
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
		return m.openContact(m.cursorID())
	case isKey(msg, "n"):
		m.form = newContactForm("", contactFields{}, m.formWidth())
		return m, m.form.focusField(0)
	case isKey(msg, "e"):
		c, ok := m.store.Get(m.targetID())
		if !ok {
			return m, nil
		}
		m.form = newContactForm(c.ID, fieldsOf(c), m.formWidth())
		return m, m.form.focusField(0)
	case isKey(msg, "d"):
		if m.selection.EditMode() && m.selection.Count() > 0 {
			ids := m.selection.Selected()
			m.confirm = &pendingConfirm{
				title:   "Delete Contacts",
				message: fmt.Sprintf("Delete %s? This cannot be undone.", plural(len(ids), "selected contact")),
				run:     m.bulkDelete(ids),
			}
			return m, nil
		}
		c, ok := m.store.Get(m.targetID())
		if !ok {
			return m, nil
		}
		m.confirm = &pendingConfirm{
			title:   "Delete Contact",
			message: fmt.Sprintf("Delete %q? This cannot be undone.", c.Name),
			run:     m.deleteContact(c.ID),
		}
	case isBack(msg):
		switch {
		case m.selection.Active() != "":
			m.selection.Close()
			m.preferences.Stop()
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

func (m ContactsModel) handleFormKeys(msg tea.KeyMsg) (ContactsModel, tea.Cmd) {
	f := m.form
	if f.saving {
		return m, nil
	}
	switch {
	case isBack(msg):
		m.form = nil
		return m, nil
	case isKey(msg, "tab", "down"):
		return m, f.focusField(f.focus + 1)
	case isKey(msg, "shift+tab", "up"):
		return m, f.focusField(f.focus - 1)
	case isKey(msg, "ctrl+s"):
		return m.submitForm()
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return m, cmd
}

// submitForm creates right away, but an edit is previewed as a diff and
// sent only after confirmation.
func (m ContactsModel) submitForm() (ContactsModel, tea.Cmd) {
	f := m.form
	values := f.values()
	if values[contactFieldName] == "" {
		f.err = "name is required"
		return m, nil
	}
	if b := values[contactFieldBirthday]; b != "" {
		if _, err := time.Parse("2006-01-02", b); err != nil {
			f.err = "birthday must look like 2006-01-02"
			return m, nil
		}
	}
	f.err = ""
	if f.editID == "" {
		f.saving = true
		return m, m.saveContact("", f.before, values)
	}
	diffs := values.diff(f.before)
	if len(diffs) == 0 {
		m.form = nil
		return m, notify(toastInfo, "No changes")
	}
	editID, before := f.editID, f.before
	m.confirm = &pendingConfirm{
		title: "Update Contact",
		preview: components.ConfirmPreviewDialog(
			"Update Contact",
			[]components.TableRow{{Label: "Contact", Value: before[contactFieldName]}},
			diffs,
			m.width,
		),
		run: m.saveContact(editID, before, values),
	}
	return m, nil
}

func (m ContactsModel) formWidth() int {
	return max(components.BoxContentWidth(m.width)-12, 20)
}

func (m ContactsModel) openContact(id string) (ContactsModel, tea.Cmd) {
	if _, ok := m.store.Get(id); !ok {
		return m, nil
	}
	m.selection.Select(id)
	return m, tea.Batch(m.preferences.Start(id, false), m.spinner.Tick)
}

// --- View ---

func (m ContactsModel) View() string {
	if m.confirm != nil {
		return m.confirm.view()
	}
	if m.form != nil {
		return components.Indent(m.renderForm(), 1)
	}
	width := m.contentWidth()
	header := m.renderHeader()

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

func (m ContactsModel) renderHeader() string {
	line := MutedStyle.Render(plural(m.store.Len(), "contact"))
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

func (m ContactsModel) renderList(width int, active bool) string {
	inner := components.FixedContentWidth(width)
	var b strings.Builder
	switch {
	case !m.store.Loaded() && m.store.Err() != nil:
		b.WriteString(ErrorStyle.Render("Could not load contacts: ") + MutedStyle.Render(m.store.Err().Error()))
	case !m.store.Loaded():
		b.WriteString(m.spinner.View() + MutedStyle.Render(" Loading contacts…"))
	case len(m.page) == 0:
		b.WriteString(MutedStyle.Render("No contacts.") + "\n\n" + MutedStyle.Render("n: add one"))
	default:
		start, end := m.list.Window()
		lastInitial := ""
		if start > 0 {
			lastInitial = contactInitial(m.page[start-1].Name)
		}
		for i := start; i < end; i++ {
			c := m.page[i]
			if initial := contactInitial(c.Name); initial != lastInitial {
				if i > start {
					b.WriteString("\n")
				}
				b.WriteString(GroupHeaderStyle.Render(initial) + "\n")
				lastInitial = initial
			}
			b.WriteString(m.renderRow(c, i == m.list.Selected(), inner))
			if i < end-1 {
				b.WriteString("\n")
			}
		}
		if m.more {
			b.WriteString("\n\n" + MutedStyle.Render(fmt.Sprintf("m: show more (%d hidden)", m.matched-len(m.page))))
		}
	}
	return components.FixedBox(fmt.Sprintf("Contacts (%d)", m.matched), b.String(), width, active)
}

func (m ContactsModel) renderRow(c api.Contact, cursor bool, width int) string {
	prefix := "  "
	if cursor {
		prefix = SelectedStyle.Render("› ")
	}
	mark := ""
	if m.selection.EditMode() {
		mark = components.Checkbox(m.selection.IsSelected(c.ID)) + " "
	}
	meta := strings.Join(nonEmpty(c.Relation, c.Email), " · ")
	nameWidth := max(width-lipgloss.Width(prefix+mark)-lipgloss.Width(meta)-2, 8)
	name := components.ClampTextWidthEllipsis(c.Name, nameWidth)
	if c.ID == m.selection.Active() {
		name = SelectedStyle.Render(name)
	} else {
		name = NormalStyle.Render(name)
	}
	return prefix + mark + name + "  " + MutedStyle.Render(meta)
}

func (m ContactsModel) renderDetail(width int) string {
	c, ok := m.store.Get(m.selection.Active())
	if !ok {
		return components.FixedBox("Contact", MutedStyle.Render("Contact no longer exists."), width, true)
	}
	inner := components.FixedContentWidth(width)

	var b strings.Builder
	for i, v := range fieldsOf(c) {
		if i == contactFieldName || i == contactFieldNotes {
			continue
		}
		b.WriteString(components.InfoRow(contactFieldLabels[i], orDash(v)) + "\n")
	}
	if !c.Created.IsZero() {
		b.WriteString(components.InfoRow("Added", c.Created.Local().Format("Jan 2, 2006")) + "\n")
	}
	if strings.TrimSpace(c.Notes) != "" {
		b.WriteString("\n" + AccentStyle.Render("Notes") + "\n" + wrapText(c.Notes, inner, 6) + "\n")
	}
	b.WriteString("\n" + AccentStyle.Render("Preferences") + "\n")
	b.WriteString(m.renderPreferences(inner))

	return components.FixedBox(components.ClampTextWidthEllipsis(c.Name, max(inner-8, 8)), b.String(), width, true)
}

func (m ContactsModel) renderPreferences(width int) string {
	switch m.preferences.State() {
	case listsync.PollLoading:
		return m.spinner.View() + MutedStyle.Render(" Loading preferences…")
	case listsync.PollNotFound:
		return MutedStyle.Render("No preferences recorded")
	case listsync.PollFailed:
		return ErrorStyle.Render("Could not load preferences: ") + MutedStyle.Render(m.preferences.Err().Error())
	}
	prefs := m.preferences.Payload()
	if len(prefs) == 0 {
		return MutedStyle.Render("Nothing learned yet")
	}
	rows := make([][]string, 0, len(prefs))
	for _, p := range prefs {
		rows = append(rows, []string{p.Category, p.Value, orDash(p.Source)})
	}
	return components.TableGrid([]components.TableColumn{
		{Header: "Category", Width: 14},
		{Header: "Value", Width: max(width-34, 12)},
		{Header: "Source", Width: 12},
	}, rows, width)
}

func (m ContactsModel) renderForm() string {
	f := m.form
	title := "New Contact"
	if f.editID != "" {
		title = "Edit Contact"
	}
	var b strings.Builder
	for i, in := range f.inputs {
		label := fmt.Sprintf("%-9s", contactFieldLabels[i])
		if i == f.focus {
			b.WriteString(SelectedStyle.Render("› "+label) + " " + in.View())
		} else {
			b.WriteString(MutedStyle.Render("  "+label) + " " + in.View())
		}
		b.WriteString("\n")
	}
	if f.err != "" {
		b.WriteString("\n" + ErrorStyle.Render(f.err) + "\n")
	}
	if f.saving {
		b.WriteString("\n" + MutedStyle.Render("Saving…"))
	} else {
		b.WriteString("\n" + MutedStyle.Render("tab/↑/↓: fields | ctrl+s: save | esc: cancel"))
	}
	return components.TitledBox(title, b.String(), m.width)
}

func (m ContactsModel) hints() []string {
	if m.confirm != nil {
		return confirmHints()
	}
	if m.form != nil {
		return []string{
			components.Hint("tab", "Next"),
			components.Hint("ctrl+s", "Save"),
			components.Hint("esc", "Cancel"),
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
		components.Hint("enter", "Open"),
		components.Hint("/", "Search"),
		components.Hint("n", "New"),
		components.Hint("e", "Edit"),
		components.Hint("v", "Select"),
	}
	if m.selection.EditMode() {
		hints = append(hints,
			components.Hint("space", "Toggle"),
			components.Hint("a", "All"),
		)
	}
	hints = append(hints,
		components.Hint("d", "Delete"),
		components.Hint("r", "Refresh"),
	)
	if m.selection.Active() != "" {
		hints = append(hints, components.Hint("esc", "Close"))
	}
	return hints
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
