package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jamalekbot/pkg/message"
)

type mode int

const (
	modeInteractive mode = iota
	modeOneShot
)

type role int

const (
	roleUser role = iota
	roleBot
	roleMedia
	roleError
)

const wheelStep = 3

type entry struct {
	role    role
	content string
}

type replyMsg struct {
	units []message.Outbound
	err   error
}

type bootTickMsg struct{}

type model struct {
	ctx          context.Context
	replyFn      ReplyFunc
	mode         mode
	oneShotInput string
	info         Info

	theme     theme
	spinner   spinner.Model
	input     textinput.Model
	viewport  viewport.Model
	entries   []entry
	width     int
	height    int
	isReady   bool
	isLoading bool
	lastErr   string
	booting   bool
	bootStep  int
	followLog bool
	queries   int
	units     int
}

func newModel(ctx context.Context, replyFn ReplyFunc, runMode mode, text string, info Info) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "salut, aide, chercher <mot>, info <nom>..."
	in.Focus()
	in.CharLimit = 0

	return &model{
		ctx:          ctx,
		replyFn:      replyFn,
		mode:         runMode,
		oneShotInput: strings.TrimSpace(text),
		info:         info,
		theme:        defaultTheme(),
		spinner:      spin,
		input:        in,
		viewport:     viewport.New(80, 12),
		width:        100,
		height:       28,
		booting:      runMode == modeInteractive,
		followLog:    true,
	}
}

func (m *model) Init() tea.Cmd {
	if m.mode == modeOneShot && m.oneShotInput != "" {
		return m.submit(m.oneShotInput)
	}

	return bootTickCmd()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil

	case bootTickMsg:
		if !m.booting {
			return m, nil
		}
		m.bootStep++
		if m.bootStep <= len(bootScriptLines()) {
			return m, bootTickCmd()
		}
		m.booting = false
		return m, textinput.Blink

	case tea.MouseMsg:
		if m.mode == modeInteractive && !m.booting {
			m.handleViewportMouse(typed)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(typed)

	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd

	case replyMsg:
		m.applyReply(typed)
		if m.mode == modeOneShot {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.mode == modeInteractive {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	}

	if m.booting || m.mode == modeOneShot {
		return m, nil
	}
	if m.handleViewportKey(key) {
		return m, nil
	}

	if key.String() == "enter" {
		if m.isLoading {
			return m, nil
		}

		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if isExitCommand(text) {
			return m, tea.Quit
		}

		m.input.SetValue("")
		return m, m.submit(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m *model) submit(text string) tea.Cmd {
	m.lastErr = ""
	m.entries = append(m.entries, entry{role: roleUser, content: text})
	m.isLoading = true
	m.followLog = true
	m.queries++
	m.refreshViewport(true)

	return tea.Batch(m.spinner.Tick, replyCmd(m.ctx, m.replyFn, text))
}

func (m *model) applyReply(msg replyMsg) {
	m.isLoading = false

	if msg.err != nil {
		m.lastErr = msg.err.Error()
		m.entries = append(m.entries, entry{role: roleError, content: msg.err.Error()})
		m.refreshViewport(false)
		return
	}

	for _, unit := range msg.units {
		m.entries = append(m.entries, unitEntry(unit))
	}
	m.units += len(msg.units)
	m.refreshViewport(false)
}

func unitEntry(unit message.Outbound) entry {
	if unit.Kind == message.OutboundMedia {
		content := "🖼️ " + unit.URL
		if caption := strings.TrimSpace(unit.Caption); caption != "" {
			content += "\n" + caption
		}
		return entry{role: roleMedia, content: content}
	}

	return entry{role: roleBot, content: unit.Body}
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}
	if m.mode == modeOneShot {
		return m.oneShotView()
	}
	if m.booting {
		return m.bootView()
	}

	header := m.theme.header.Width(m.width - 2).Render("📇 Jamalek Online · Console")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"annuaire:%s · réseau:%s · requêtes:%d · réponses:%d",
		displayOrNA(m.info.Directory),
		displayOrNA(m.info.Transport),
		m.queries,
		m.units,
	))
	line := m.divider()

	status := m.theme.status.Render("💡 Entrée envoyer  ·  PgUp/PgDn défiler  ·  Fin dernier message  ·  Ctrl+C/Échap quitter")
	if m.isLoading {
		status = m.theme.statusBusy.Render(fmt.Sprintf("%s 🔍 recherche en cours...", m.spinner.View()))
	}
	if m.lastErr != "" {
		status = m.theme.statusErr.Render("🚨 la dernière requête a échoué")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		meta,
		line,
		m.theme.viewport.Width(m.width-2).Render(m.viewport.View()),
		status,
		m.theme.inputLabel.Render("👤 Vous")+" "+m.theme.hint.Render("(exit, quit ou :q pour quitter)"),
		m.theme.input.Width(m.width-2).Render(m.input.View()),
	)
}

func (m *model) divider() string {
	return m.theme.divider.Width(m.width - 2).Render(strings.Repeat("─", max(8, m.width-2)))
}

func (m *model) resizeComponents() {
	w := max(50, m.width-6)
	h := m.height - 10
	if m.mode == modeOneShot {
		h = m.height - 6
	}
	h = max(8, h)

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset

	sections := make([]string, 0, len(m.entries))
	for _, item := range m.entries {
		sections = append(sections, m.renderEntry(item, m.viewport.Width))
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := max(0, m.viewport.TotalLineCount()-m.viewport.Height)
	m.viewport.SetYOffset(min(previousOffset, maxOffset))
}

func (m *model) renderEntry(item entry, width int) string {
	body := strings.TrimSpace(item.content)

	switch item.role {
	case roleUser:
		return renderCard(m.theme.userTitle.Render("👤 vous"), m.theme.userBox.Width(width).Render(body))
	case roleMedia:
		return renderCard(m.theme.mediaTitle.Render("🖼️ photo"), m.theme.mediaBox.Width(width).Render(body))
	case roleError:
		return renderCard(m.theme.errorTitle.Render("⚠️ erreur"), m.theme.errorBox.Width(width).Render(body))
	default:
		return renderCard(m.theme.botTitle.Render("🤖 bot"), m.theme.botBox.Width(width).Render(body))
	}
}

func renderCard(title string, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (m *model) oneShotView() string {
	width := max(40, m.width-6)
	parts := []string{m.renderEntry(entry{role: roleUser, content: m.oneShotInput}, width)}

	if m.isLoading {
		parts = append(parts, m.theme.statusBusy.Render(fmt.Sprintf("%s 🔍 recherche en cours...", m.spinner.View())))
		return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
	}

	for _, item := range m.entries {
		if item.role == roleUser {
			continue
		}
		parts = append(parts, m.renderEntry(item, width))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n\n"
}

func (m *model) bootView() string {
	header := m.theme.header.Width(m.width - 2).Render("📇 Jamalek Online · Console")
	meta := m.theme.headerMeta.Render("démarrage")

	script := bootScriptLines()
	count := min(m.bootStep, len(script))
	visible := make([]string, 0, count+1)
	for i := 0; i < count; i++ {
		visible = append(visible, m.theme.bootLine.Render(script[i]))
	}
	if m.bootStep > len(script) {
		visible = append(visible, m.theme.bootDone.Render("✅ console prête"))
	}

	body := m.theme.viewport.Width(m.width - 2).Render(strings.Join(visible, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, meta, m.divider(), body)
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b", "alt+up", "ctrl+up":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f", "alt+down", "ctrl+down":
		m.viewport.PageDown()
		m.followLog = m.viewport.AtBottom()
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

// handleViewportMouse scrolls on wheel events and reports whether it did.
func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.SetYOffset(max(0, m.viewport.YOffset-wheelStep))
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.SetYOffset(m.viewport.YOffset + wheelStep)
		m.followLog = m.viewport.AtBottom()
		return true
	default:
		return false
	}
}

func bootTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return bootTickMsg{}
	})
}

func bootScriptLines() []string {
	return []string{
		"[BOOT] chargement de l'annuaire",
		"[BOOT] routeur de commandes prêt",
		"[BOOT] séquenceur de réponses prêt",
	}
}

func replyCmd(ctx context.Context, replyFn ReplyFunc, text string) tea.Cmd {
	return func() tea.Msg {
		units, err := replyFn(ctx, text)
		return replyMsg{units: units, err: err}
	}
}

func displayOrNA(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "n/a"
	}

	return trimmed
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}
