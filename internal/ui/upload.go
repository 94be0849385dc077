package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gravitrone/concierge/internal/api"
	"github.com/gravitrone/concierge/internal/config"
	"github.com/gravitrone/concierge/internal/ui/components"
)

// --- Messages ---

type uploadProgressMsg struct {
	seq   uint64
	sent  int64
	total int64
	ch    <-chan tea.Msg
}

type uploadDoneMsg struct {
	seq    uint64
	path   string
	result *api.UploadResult
	err    error
}

const recentUploadLimit = 8

// --- Upload Model ---

// UploadModel sends a local file to the assistant's file drop with a
// progress bar.
type UploadModel struct {
	client *api.Client
	logger *slog.Logger
	token  string

	input     textinput.Model
	bar       progress.Model
	uploading bool
	seq       uint64
	sent      int64
	total     int64
	cancel    context.CancelFunc
	recent    []api.UploadResult
	err       string

	width  int
	height int
}

func NewUploadModel(client *api.Client, cfg *config.Config, logger *slog.Logger) UploadModel {
	input := textinput.New()
	input.Placeholder = "~/Documents/report.pdf"
	input.Prompt = "path: "
	input.CharLimit = 1024

	return UploadModel{
		client: client,
		logger: logger,
		token:  cfg.UploadToken,
		input:  input,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Enter focuses the path field.
func (m UploadModel) Enter() (UploadModel, tea.Cmd) {
	m.err = ""
	if m.uploading {
		return m, nil
	}
	return m, m.input.Focus()
}

// Leave blurs the path field. A running upload keeps going.
func (m UploadModel) Leave() UploadModel {
	m.input.Blur()
	return m
}

func (m UploadModel) SetSize(width, height int) UploadModel {
	m.width = width
	m.height = height
	inner := components.BoxContentWidth(width)
	m.input.Width = max(inner-8, 20)
	m.bar.Width = max(inner-10, 20)
	return m
}

func (m UploadModel) capturing() bool {
	return m.input.Focused()
}

// --- Commands ---

// startUpload streams the file in a goroutine. Progress and the final
// result arrive on one channel that waitUpload drains a message at a time.
func (m UploadModel) startUpload(ctx context.Context, seq uint64, path string) tea.Cmd {
	client, token := m.client, m.token
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return uploadDoneMsg{seq: seq, path: path, err: err}
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return uploadDoneMsg{seq: seq, path: path, err: err}
		}
		if info.IsDir() {
			_ = f.Close()
			return uploadDoneMsg{seq: seq, path: path, err: fmt.Errorf("%s is a directory", path)}
		}

		ch := make(chan tea.Msg, 16)
		go func() {
			defer close(ch)
			defer func() { _ = f.Close() }()
			result, err := client.UploadFile(ctx, token, filepath.Base(path), f, info.Size(), func(sent, total int64) {
				select {
				case ch <- uploadProgressMsg{seq: seq, sent: sent, total: total}:
				default:
				}
			})
			ch <- uploadDoneMsg{seq: seq, path: path, result: result, err: err}
		}()
		return waitUpload(ch)()
	}
}

func waitUpload(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		if p, isProgress := msg.(uploadProgressMsg); isProgress {
			p.ch = ch
			return p
		}
		return msg
	}
}

// --- Update ---

func (m UploadModel) Update(msg tea.Msg) (UploadModel, tea.Cmd) {
	switch msg := msg.(type) {
	case uploadProgressMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.sent, m.total = msg.sent, msg.total
		return m, waitUpload(msg.ch)

	case uploadDoneMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.uploading = false
		m.cancel = nil
		if msg.err != nil {
			m.err = msg.err.Error()
			m.logger.Warn("upload failed", "path", msg.path, "err", msg.err)
			return m, notifyErr("Upload", msg.err)
		}
		m.err = ""
		m.input.SetValue("")
		m.recent = append([]api.UploadResult{*msg.result}, m.recent...)
		if len(m.recent) > recentUploadLimit {
			m.recent = m.recent[:recentUploadLimit]
		}
		return m, tea.Batch(notify(toastSuccess, "Uploaded "+msg.result.Name), m.input.Focus())

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m UploadModel) handleKeys(msg tea.KeyMsg) (UploadModel, tea.Cmd) {
	if m.uploading {
		if isBack(msg) && m.cancel != nil {
			m.cancel()
		}
		return m, nil
	}
	if !m.input.Focused() {
		if isEnter(msg) || isKey(msg, "i") {
			return m, m.input.Focus()
		}
		return m, nil
	}
	switch {
	case isBack(msg):
		m.input.Blur()
		return m, nil
	case isEnter(msg):
		return m.submit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m UploadModel) submit() (UploadModel, tea.Cmd) {
	path := expandHome(strings.TrimSpace(m.input.Value()))
	if path == "" {
		m.err = "enter a file path"
		return m, nil
	}
	if m.token == "" {
		m.err = "no upload token configured (run concierge setup)"
		return m, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.seq++
	m.uploading = true
	m.cancel = cancel
	m.sent, m.total = 0, 0
	m.err = ""
	m.input.Blur()
	return m, m.startUpload(ctx, m.seq, path)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// --- View ---

func (m UploadModel) View() string {
	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	switch {
	case m.uploading:
		pct := 0.0
		if m.total > 0 {
			pct = float64(m.sent) / float64(m.total)
		}
		b.WriteString(m.bar.ViewAs(pct))
		b.WriteString("\n" + MutedStyle.Render(fmt.Sprintf("%s of %s", humanBytes(m.sent), humanBytes(m.total))))
	case m.err != "":
		b.WriteString(ErrorStyle.Render(m.err))
	case m.token == "":
		b.WriteString(WarningStyle.Render("No upload token configured. Run concierge setup."))
	default:
		b.WriteString(MutedStyle.Render("enter: upload"))
	}

	out := components.TitledBox("Upload File", b.String(), m.width)
	if len(m.recent) == 0 {
		out += "\n\n" + components.EmptyStateBox("Uploaded This Session", "Nothing uploaded yet.", "Files land in the assistant's drop folder.", m.width)
	} else {
		rows := make([][]string, 0, len(m.recent))
		for _, r := range m.recent {
			rows = append(rows, []string{r.Name, humanBytes(r.Size), orDash(r.Path)})
		}
		inner := components.BoxContentWidth(m.width)
		grid := components.TableGrid([]components.TableColumn{
			{Header: "Name", Width: 24},
			{Header: "Size", Width: 10},
			{Header: "Stored at", Width: max(inner-42, 10)},
		}, rows, inner)
		out += "\n\n" + components.TitledBox("Uploaded This Session", grid, m.width)
	}
	return components.Indent(out, 1)
}

func (m UploadModel) hints() []string {
	if m.uploading {
		return []string{components.Hint("esc", "Cancel")}
	}
	if m.input.Focused() {
		return []string{
			components.Hint("enter", "Upload"),
			components.Hint("esc", "Unfocus"),
		}
	}
	return []string{components.Hint("i", "Path")}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
