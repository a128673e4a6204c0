package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/savioxavier/termlink"

	"github.com/integrail/poetry-assistant/pkg/config"
	"github.com/integrail/poetry-assistant/pkg/prompt"
	"github.com/integrail/poetry-assistant/pkg/render"
	"github.com/integrail/poetry-assistant/pkg/session"
)

type (
	connectivityMsg session.Connectivity
	interactionMsg  session.Interaction
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF88")).Background(lipgloss.Color("#444444"))
	tabStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTab     = tabStyle.Bold(true).Foreground(lipgloss.Color("205")).Underline(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	categoryColor = map[prompt.Category]lipgloss.Color{
		prompt.General:   lipgloss.Color("141"),
		prompt.Rhyme:     lipgloss.Color("220"),
		prompt.Style:     lipgloss.Color("75"),
		prompt.Structure: lipgloss.Color("43"),
		prompt.Improve:   lipgloss.Color("211"),
	}
)

const chromeHeight = 14

type RendererFactory func(width int) (*render.Renderer, error)

type CliClient struct {
	viewport          viewport.Model
	textarea          textarea.Model
	senderStyle       lipgloss.Style
	badgeStyle        lipgloss.Style
	errorStyle        lipgloss.Style
	err               error
	ctx               context.Context
	session           *session.Session
	proxyURL          string
	category          prompt.Category
	loader            spinner.Model
	renderer          *render.Renderer
	newRenderer       RendererFactory
	rendered          []string // rendered interactions, oldest first
	inputHistory      []string
	inputHistoryPoint int
}

// BubbleClient builds the interactive session UI talking to the proxy at cfg.ProxyURL.
func BubbleClient(ctx context.Context, cfg *config.Config, style string) (tea.Model, error) {
	fmt.Printf("Connecting to %s...\n", cfg.ProxyURL)
	proxy := NewClient(cfg.ProxyURL, cfg.ProxyTimeout())
	sess := session.New(proxy, session.WithUnreachableText(
		fmt.Sprintf("Failed to connect to the poetry proxy at %s. Please make sure it's running.", cfg.ProxyURL),
	))
	return NewModel(ctx, sess, cfg.ProxyURL, func(width int) (*render.Renderer, error) {
		return render.New(width, style)
	})
}

func NewModel(ctx context.Context, sess *session.Session, proxyURL string, newRenderer RendererFactory) (*CliClient, error) {
	ta := textarea.New()
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 4096

	ta.SetWidth(100)
	ta.SetHeight(4)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(100, 20)
	// letter keys belong to the textarea
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}

	renderer, err := newRenderer(vp.Width)
	if err != nil {
		return nil, err
	}

	loader := spinner.New(
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("205"))),
		spinner.WithSpinner(spinner.Dot),
	)
	c := &CliClient{
		ctx:         ctx,
		session:     sess,
		proxyURL:    proxyURL,
		textarea:    ta,
		viewport:    vp,
		senderStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		badgeStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		errorStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3333")),
		loader:      loader,
		renderer:    renderer,
		newRenderer: newRenderer,
	}
	c.setCategory(prompt.Rhyme)
	c.updateMessages()
	return c, nil
}

func (m *CliClient) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.probe(), m.loader.Tick)
}

func (m *CliClient) probe() tea.Cmd {
	return func() tea.Msg {
		return connectivityMsg(m.session.Probe(m.ctx))
	}
}

func (m *CliClient) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.ctx.Err() != nil {
		return m, tea.Quit
	}
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		return m, cmd
	case connectivityMsg:
		return m, nil
	case interactionMsg:
		m.updateMessages()
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			m.setCategory(m.category.Next())
			return m, nil
		case tea.KeyShiftTab:
			m.setCategory(m.category.Prev())
			return m, nil
		case tea.KeyUp:
			if m.inputHistoryPoint < len(m.inputHistory) {
				m.inputHistoryPoint++
				m.textarea.SetValue(m.inputHistory[len(m.inputHistory)-m.inputHistoryPoint])
			}
			return m, nil
		case tea.KeyDown:
			if m.inputHistoryPoint > 0 {
				m.inputHistoryPoint--
			}
			if m.inputHistoryPoint > 0 {
				m.textarea.SetValue(m.inputHistory[len(m.inputHistory)-m.inputHistoryPoint])
			} else {
				m.textarea.SetValue("")
			}
			return m, nil
		case tea.KeyEnter:
			return m, m.submit()
		}
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

// submit returns nil when the session does not accept the current input.
func (m *CliClient) submit() tea.Cmd {
	currentValue := m.textarea.Value()
	pending, err := m.session.Start(m.category, currentValue)
	if err != nil {
		return nil
	}
	m.inputHistory = append(m.inputHistory, strings.TrimSpace(currentValue))
	m.inputHistoryPoint = 0
	m.textarea.Reset()
	return tea.Batch(func() tea.Msg {
		return interactionMsg(pending.Resolve(m.ctx))
	}, m.loader.Tick)
}

func (m *CliClient) busy() bool {
	return m.session.State() == session.Submitting || m.session.Connectivity() == session.Checking
}

func (m *CliClient) setCategory(c prompt.Category) {
	m.category = c
	m.textarea.Placeholder = c.Meta().Placeholder
}

func (m *CliClient) resize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = lo.Max([]int{height - chromeHeight, 5})
	m.textarea.SetWidth(width)
	if renderer, err := m.newRenderer(width - 2); err == nil {
		m.renderer = renderer
		m.rendered = nil
	} else {
		m.err = err
	}
	m.updateMessages()
}

func (m *CliClient) updateMessages() {
	interactions := m.session.Interactions()
	if len(interactions) == 0 {
		m.viewport.SetContent(m.emptyState())
		return
	}
	// interactions are prepended, so only the head of the list is new
	for i := len(m.rendered); i < len(interactions); i++ {
		m.rendered = append(m.rendered, m.renderInteraction(interactions[len(interactions)-1-i]))
	}
	blocks := make([]string, 0, len(m.rendered))
	for i := len(m.rendered) - 1; i >= 0; i-- {
		blocks = append(blocks, m.rendered[i])
	}
	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
}

func (m *CliClient) renderInteraction(it session.Interaction) string {
	meta := it.Category.Meta()
	glyph := lipgloss.NewStyle().Foreground(categoryColor[it.Category]).Render(meta.Glyph)
	badge := m.badgeStyle.Render(fmt.Sprintf("%s • %s", meta.Title, it.CreatedAt.Format("15:04:05")))
	title := m.senderStyle.Render(fmt.Sprintf("Response for: %q", it.Input))
	body := lo.Ternary(it.Failed, m.errorStyle.Render(it.Text), m.renderer.Render(it.Text))
	return fmt.Sprintf("%s %s\n%s\n%s", glyph, badge, title, body)
}

func (m *CliClient) emptyState() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		"✦ ❦ ✎",
		"Ready to Create Poetry?",
		"Choose a tool above and start exploring the world of poetry.",
		"Get rhyming suggestions, learn about styles, discover structures,",
		"or improve your existing work.",
	)
}

func (m *CliClient) statusView() string {
	var dot, label string
	switch m.session.Connectivity() {
	case session.Connected:
		dot, label = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●"), "Ollama Connected"
	case session.Disconnected:
		dot, label = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("●"), "Ollama Disconnected"
	default:
		dot, label = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Render("●"), "Checking Connection..."
	}
	return dot + " " + label + " via " + termlink.ColorLink(m.proxyURL, m.proxyURL, "italic green")
}

func (m *CliClient) tabsView() string {
	tabs := lo.Map(prompt.Categories(), func(c prompt.Category, _ int) string {
		label := c.Meta().Glyph + " " + c.Meta().Label
		if c == m.category {
			return activeTab.Foreground(categoryColor[c]).Render(label)
		}
		return tabStyle.Render(label)
	})
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *CliClient) View() string {
	meta := m.category.Meta()
	dialogView := m.textarea.View()
	if m.session.State() == session.Submitting {
		dialogView = m.loader.View() + " Composing..."
	}
	view := headerStyle.Render(" Poetry Assistant ") + " " + m.statusView() + "\n\n" +
		m.tabsView() + "\n\n" +
		m.senderStyle.Render(meta.InputTitle) + " " + helpStyle.Render(meta.Description) + "\n" +
		dialogView + "\n\n" +
		m.viewport.View() + "\n"
	if m.err != nil {
		view += m.errorStyle.Render("ERROR: "+m.err.Error()) + "\n"
	}
	return view + helpStyle.Render("tab: switch tool • enter: send • ↑/↓: history • pgup/pgdn: scroll • esc: quit") + "\n"
}
