package review

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Digital-Shane/treeview"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/foxhunt/disdrop/internal/media"
	"github.com/foxhunt/disdrop/internal/tui/theme"
	"github.com/foxhunt/disdrop/internal/upload"
)

// ItemKind classifies a node in the plan tree.
type ItemKind int

const (
	KindGroup ItemKind = iota // segmented group container
	KindPair                  // mp4+gif pair uploaded as one message
	KindSingle
	KindSkipped // duplicate filtered out by dedupe
	KindSection // non-selectable heading node
)

// PlanItem is the node payload for the review tree.
type PlanItem struct {
	Kind      ItemKind
	RootKey   string
	Paths     []string
	SizeBytes int64 // total across Paths, 0 when stat failed
	Segmented bool
}

// ReviewModel represents the TUI for inspecting and confirming an upload plan.
type ReviewModel struct {
	*treeview.TuiTreeModel[PlanItem]
	plan       *upload.Plan
	confirming bool
	confirmed  bool
	width      int
	height     int
	splitRatio float64 // ratio for left/right split
	theme      theme.Theme

	// Item details scrolling
	detailsViewport *viewport.Model
	detailsFocused  bool // whether the details panel is focused for scrolling
}

// Option configures a ReviewModel during construction.
type Option func(*ReviewModel)

// WithTheme overrides the default theme for the review TUI.
func WithTheme(th theme.Theme) Option {
	return func(m *ReviewModel) {
		m.theme = th
	}
}

func (m *ReviewModel) headerStyle() lipgloss.Style {
	return m.theme.HeaderStyle()
}

func (m *ReviewModel) statusBarStyle() lipgloss.Style {
	return m.theme.StatusBarStyle()
}

func (m *ReviewModel) panelStyle() lipgloss.Style {
	return m.theme.PanelStyle()
}

func (m *ReviewModel) colors() theme.Colors {
	return m.theme.Colors()
}

func (m *ReviewModel) sizedPanel(width, height int, borderColor lipgloss.Color) lipgloss.Style {
	style := m.panelStyle()
	if borderColor != "" {
		style = style.BorderForeground(borderColor)
	}
	if width > 0 {
		contentWidth := width - style.GetHorizontalFrameSize()
		if contentWidth < 0 {
			contentWidth = 0
		}
		style = style.Width(contentWidth)
	}
	if height > 0 {
		contentHeight := height - style.GetVerticalFrameSize()
		if contentHeight < 0 {
			contentHeight = 0
		}
		style = style.Height(contentHeight)
	}
	return style.Padding(0, 1)
}

// NewReviewModel creates a review model over an upload plan.
func NewReviewModel(plan *upload.Plan, opts ...Option) *ReviewModel {
	m := &ReviewModel{
		plan:       plan,
		width:      80,
		height:     24,
		splitRatio: 0.5,
	}

	initOpts := append([]Option{WithTheme(theme.Default())}, opts...)
	for _, opt := range initOpts {
		opt(m)
	}

	tree := BuildPlanTree(plan, m.theme)

	keyMap := treeview.DefaultKeyMap()
	keyMap.SearchStart = []string{} // Disable search
	keyMap.Reset = []string{}       // Disable reset

	treeWidth := int(float64(m.width)*m.splitRatio) - 2
	m.TuiTreeModel = treeview.NewTuiTreeModel(tree,
		treeview.WithTuiWidth[PlanItem](treeWidth),
		treeview.WithTuiHeight[PlanItem](m.height-4),
		treeview.WithTuiAllowResize[PlanItem](true),
		treeview.WithTuiDisableNavBar[PlanItem](true),
		treeview.WithTuiKeyMap[PlanItem](keyMap),
	)

	rightWidth := m.width - treeWidth
	viewportHeight := m.height - 4 - 4
	m.detailsViewport = m.theme.NewViewport(rightWidth-6, viewportHeight)

	return m
}

// Confirmed reports whether the user approved the plan.
func (m *ReviewModel) Confirmed() bool { return m.confirmed }

func (m *ReviewModel) Init() tea.Cmd {
	return nil
}

func (m *ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		treeWidth := int(float64(m.width)*m.splitRatio) - 2
		resizeMsg := tea.WindowSizeMsg{
			Width:  treeWidth,
			Height: m.height - 4,
		}
		treeModel, cmd := m.TuiTreeModel.Update(resizeMsg)
		m.TuiTreeModel = treeModel.(*treeview.TuiTreeModel[PlanItem])

		rightWidth := m.width - treeWidth
		m.detailsViewport.Width = rightWidth - 6
		m.detailsViewport.Height = m.height - 4 - 4

		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			if m.confirming {
				m.confirming = false
				return m, nil
			}
			return m, tea.Quit

		case "tab":
			m.detailsFocused = !m.detailsFocused
			return m, nil

		case "up":
			if m.detailsFocused {
				m.detailsViewport.ScrollUp(1)
				return m, nil
			}

		case "down":
			if m.detailsFocused {
				m.detailsViewport.ScrollDown(1)
				return m, nil
			}

		case "pgup":
			if m.detailsFocused {
				m.detailsViewport.HalfPageUp()
				return m, nil
			}

		case "pgdown":
			if m.detailsFocused {
				m.detailsViewport.HalfPageDown()
				return m, nil
			}

		case "enter", "y", "Y":
			if m.confirming {
				m.confirmed = true
				return m, tea.Quit
			}
			if msg.String() == "enter" {
				m.confirming = true
			}
			return m, nil

		case "n", "N":
			if m.confirming {
				m.confirming = false
			}
			return m, nil
		}

	case tea.MouseMsg:
		switch {
		case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButton(4):
			if m.detailsFocused {
				m.detailsViewport.ScrollUp(1)
			}
			return m, nil
		case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButton(5):
			if m.detailsFocused {
				m.detailsViewport.ScrollDown(1)
			}
			return m, nil
		}
	}

	if !m.confirming && !m.detailsFocused {
		treeModel, cmd := m.TuiTreeModel.Update(msg)
		m.TuiTreeModel = treeModel.(*treeview.TuiTreeModel[PlanItem])
		return m, cmd
	}

	return m, nil
}

func (m *ReviewModel) View() string {
	var b strings.Builder

	title := "Upload Plan Review"
	if m.plan.ThreadName != "" {
		title = fmt.Sprintf("Upload Plan Review %s %s", m.theme.Icon("thread"), m.plan.ThreadName)
	}
	header := m.headerStyle().Width(m.width).Render(title)
	b.WriteString(header)
	b.WriteByte('\n')

	if m.confirming {
		b.WriteString(m.renderConfirmation())
		return b.String()
	}

	b.WriteString(m.renderMainView())
	return b.String()
}

// renderMainView renders the split view with the plan tree and item details.
func (m *ReviewModel) renderMainView() string {
	leftWidth := int(float64(m.width) * m.splitRatio)
	rightWidth := m.width - leftWidth

	leftPanel := m.renderPlanTree(leftWidth, m.height-3)
	rightPanel := m.renderItemDetails(rightWidth, m.height-3)

	content := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)

	focusInfo := "Tab: Details Focus | "
	if m.detailsFocused {
		focusInfo = "Tab: Tree Focus | "
	}

	instruction := focusInfo + "↑↓ Navigate | PgUp/PgDn: Page | Enter: Upload | Esc/Ctrl+C: Quit"
	instructionStyle := lipgloss.NewStyle().
		Italic(true).
		Width(m.width).
		Align(lipgloss.Center).
		Foreground(m.colors().Muted).
		Render(instruction)

	return content + "\n" + instructionStyle
}

func (m *ReviewModel) renderPlanTree(width, height int) string {
	colors := m.colors()
	borderStyle := m.sizedPanel(width, height, colors.Primary)
	titleWidth := width - 4
	if titleWidth < 0 {
		titleWidth = width
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.Primary).
		Width(titleWidth).
		Align(lipgloss.Center).
		Render("Plan")

	return borderStyle.Render(title + "\n" + m.TuiTreeModel.View())
}

func (m *ReviewModel) renderItemDetails(width, height int) string {
	focusedNode := m.TuiTreeModel.Tree.GetFocusedNode()
	if focusedNode != nil {
		item := *focusedNode.Data()
		m.detailsViewport.SetContent(m.formatItemDetails(item, m.detailsViewport.Width))
	} else {
		emptyContent := lipgloss.NewStyle().
			Italic(true).
			Foreground(m.colors().Muted).
			Render("Select an item to view details")
		m.detailsViewport.SetContent(emptyContent)
	}

	colors := m.colors()
	borderStyle := m.sizedPanel(width, height, colors.Secondary)

	titleWidth := width - 4
	if titleWidth < 0 {
		titleWidth = width
	}
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.Secondary).
		Width(titleWidth).
		Align(lipgloss.Center)

	scrollIndicator := ""
	if m.detailsViewport.TotalLineCount() > m.detailsViewport.Height {
		if m.detailsFocused {
			scrollIndicator = " [Use Tab+↑↓]"
		} else {
			scrollIndicator = " [Tab to scroll]"
		}
	}

	title := titleStyle.Render("Details" + scrollIndicator)

	fullContent := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		m.detailsViewport.View(),
	)

	return borderStyle.Render(fullContent)
}

// formatItemDetails formats the right-panel content for a plan item.
func (m *ReviewModel) formatItemDetails(item PlanItem, width int) string {
	var b strings.Builder
	colors := m.colors()

	labelStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.Accent)
	valueStyle := lipgloss.NewStyle().
		Foreground(colors.Primary)

	b.WriteString(labelStyle.Render("Kind: "))
	b.WriteString(valueStyle.Render(kindLabel(item.Kind)))
	b.WriteString("\n")

	if item.RootKey != "" {
		b.WriteString(labelStyle.Render("Group: "))
		b.WriteString(valueStyle.Render(item.RootKey))
		b.WriteString("\n")
	}
	if item.Segmented {
		b.WriteString(labelStyle.Render("Segmented: "))
		b.WriteString(valueStyle.Render("yes, uploaded in order between separators"))
		b.WriteString("\n")
	}
	if item.SizeBytes > 0 {
		b.WriteString(labelStyle.Render("Size: "))
		b.WriteString(valueStyle.Render(formatBytes(item.SizeBytes)))
		b.WriteString("\n")
	}

	if len(item.Paths) > 0 {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Files:"))
		b.WriteString("\n")
		fileStyle := lipgloss.NewStyle().MarginLeft(2)
		for _, p := range item.Paths {
			line := p
			if len(line) > width-4 && width > 7 {
				line = "..." + line[len(line)-(width-7):]
			}
			b.WriteString(fileStyle.Render(valueStyle.Render(line)))
			b.WriteString("\n")
		}
	}

	if item.Kind == KindSkipped {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Italic(true).
			Foreground(colors.Muted).
			Render("Already on the channel; will not be uploaded."))
		b.WriteString("\n")
	}

	return b.String()
}

// renderConfirmation shows the summary and asks before uploading.
func (m *ReviewModel) renderConfirmation() string {
	var b strings.Builder
	colors := m.colors()

	pairs := len(m.plan.Result.Pairs)
	singles := len(m.plan.Result.Singles)
	skipped := m.plan.Diagnostics.DroppedPairs*2 + m.plan.Diagnostics.DemotedHalves + m.plan.Diagnostics.DroppedSingles

	summary := fmt.Sprintf("Upload %d pairs and %d singles", pairs, singles)
	if m.plan.ThreadName != "" {
		summary += fmt.Sprintf(" to thread %q", m.plan.ThreadName)
	}
	if skipped > 0 {
		summary += fmt.Sprintf(" (%d duplicates skipped)", skipped)
	}
	summary += "?"

	box := lipgloss.NewStyle().
		Border(m.theme.Borders().Panel).
		BorderForeground(colors.Accent).
		Padding(1, 2).
		Render(summary + "\n\nEnter/Y: upload    N/Esc: back")

	centered := lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, box)
	b.WriteString(centered)
	return b.String()
}

func kindLabel(k ItemKind) string {
	switch k {
	case KindGroup:
		return "segmented group"
	case KindPair:
		return "video + gif pair"
	case KindSingle:
		return "single file"
	case KindSkipped:
		return "skipped duplicate"
	default:
		return "section"
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// BuildPlanTree converts an upload plan into the review tree. Segmented
// groups become parent nodes holding their parts in upload order; pairs
// and singles outside a group sit at the top level. Duplicates filtered
// by dedupe appear under a trailing section so the user can see what was
// excluded.
func BuildPlanTree(plan *upload.Plan, th theme.Theme) *treeview.Tree[PlanItem] {
	counts := make(map[string]int)
	for _, p := range plan.Result.Pairs {
		counts[p.RootKey]++
	}
	for _, s := range plan.Result.Singles {
		counts[s.RootKey]++
	}

	groups := make(map[string]*treeview.Node[PlanItem])
	var nodes []*treeview.Node[PlanItem]

	attach := func(rootKey string, node *treeview.Node[PlanItem], size int64) {
		if counts[rootKey] < 2 {
			nodes = append(nodes, node)
			return
		}
		parent, ok := groups[rootKey]
		if !ok {
			parent = treeview.NewNode("group:"+rootKey, rootKey, PlanItem{
				Kind:      KindGroup,
				RootKey:   rootKey,
				Segmented: true,
			})
			groups[rootKey] = parent
			nodes = append(nodes, parent)
		}
		parent.SetChildren(append(parent.Children(), node))
		data := parent.Data()
		data.SizeBytes += size
	}

	for _, p := range plan.Result.Pairs {
		size := fileSize(p.MP4Path) + fileSize(p.GIFPath)
		node := treeview.NewNode("pair:"+p.MP4Path, filepath.Base(p.MP4Path)+" + "+filepath.Base(p.GIFPath), PlanItem{
			Kind:      KindPair,
			RootKey:   p.RootKey,
			Paths:     []string{p.MP4Path, p.GIFPath},
			SizeBytes: size,
			Segmented: counts[p.RootKey] > 1,
		})
		attach(p.RootKey, node, size)
	}
	for _, s := range plan.Result.Singles {
		size := fileSize(s.Path)
		node := treeview.NewNode("single:"+s.Path, filepath.Base(s.Path), PlanItem{
			Kind:      KindSingle,
			RootKey:   s.RootKey,
			Paths:     []string{s.Path},
			SizeBytes: size,
			Segmented: counts[s.RootKey] > 1,
		})
		attach(s.RootKey, node, size)
	}

	var skipped []*treeview.Node[PlanItem]
	for _, r := range plan.Diagnostics.Reports {
		if !r.Matched {
			continue
		}
		skipped = append(skipped, treeview.NewNode("skip:"+r.Path, filepath.Base(r.Path), PlanItem{
			Kind:  KindSkipped,
			Paths: []string{r.Path},
		}))
	}
	if len(skipped) > 0 {
		section := treeview.NewNode("skipped", fmt.Sprintf("Skipped duplicates (%d)", len(skipped)), PlanItem{
			Kind: KindSection,
		})
		section.SetChildren(skipped)
		nodes = append(nodes, section)
	}

	return treeview.NewTree(nodes,
		treeview.WithExpandAll[PlanItem](),
		treeview.WithProvider(newPlanProvider(th)),
	)
}

func kindIs(k ItemKind) func(*treeview.Node[PlanItem]) bool {
	return func(n *treeview.Node[PlanItem]) bool {
		return n.Data() != nil && n.Data().Kind == k
	}
}

func isGif(n *treeview.Node[PlanItem]) bool {
	return media.IsGif(n.Name())
}

// newPlanProvider wires the icon and style rules for plan nodes. Rule
// order matters: most specific first.
func newPlanProvider(th theme.Theme) *treeview.DefaultNodeProvider[PlanItem] {
	colors := th.Colors()
	iconSet := th.IconSet()

	groupIconRule := treeview.WithIconRule(kindIs(KindGroup), iconSet["segment"])
	pairIconRule := treeview.WithIconRule(kindIs(KindPair), iconSet["pair"])
	skippedIconRule := treeview.WithIconRule(kindIs(KindSkipped), iconSet["duplicate"])
	sectionIconRule := treeview.WithIconRule(kindIs(KindSection), iconSet["folder"])
	gifIconRule := treeview.WithIconRule(isGif, iconSet["gif"])
	imageIconRule := treeview.WithIconRule(func(n *treeview.Node[PlanItem]) bool {
		return media.IsImage(n.Name())
	}, iconSet["image"])
	videoIconRule := treeview.WithIconRule(func(n *treeview.Node[PlanItem]) bool {
		return media.IsVideo(n.Name())
	}, iconSet["video"])
	defaultIconRule := treeview.WithDefaultIcon[PlanItem](iconSet["default"])

	groupStyleRule := treeview.WithStyleRule(
		kindIs(KindGroup),
		lipgloss.NewStyle().Foreground(colors.Primary).Bold(true),
		lipgloss.NewStyle().Foreground(colors.Background).Bold(true).Background(colors.Secondary).PaddingRight(1),
	)
	skippedStyleRule := treeview.WithStyleRule(
		kindIs(KindSkipped),
		lipgloss.NewStyle().Foreground(colors.Muted).Strikethrough(true),
		lipgloss.NewStyle().Foreground(colors.Background).Background(colors.Muted).Strikethrough(true),
	)
	sectionStyleRule := treeview.WithStyleRule(
		kindIs(KindSection),
		lipgloss.NewStyle().Foreground(colors.Accent).Bold(true),
		lipgloss.NewStyle().Foreground(colors.Background).Bold(true).Background(colors.Accent),
	)
	defaultStyleRule := treeview.WithStyleRule(
		func(*treeview.Node[PlanItem]) bool { return true },
		lipgloss.NewStyle().Foreground(colors.Primary),
		lipgloss.NewStyle().Foreground(colors.Background).Background(colors.Primary),
	)

	return treeview.NewDefaultNodeProvider(
		groupIconRule, pairIconRule, skippedIconRule, sectionIconRule,
		gifIconRule, imageIconRule, videoIconRule, defaultIconRule,
		groupStyleRule, skippedStyleRule, sectionStyleRule, defaultStyleRule,
	)
}
