// Package statusui renders the live peer table and counters as a terminal
// UI for the client's --status flag (spec.md §7: "a status command that
// prints the peer table"), modeled on tungo's presentation/bubble_tea
// Bubble Tea models.
package statusui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rustun/internal/domain/peer"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

var columns = []table.Column{
	{Title: "IDENTITY", Width: 20},
	{Title: "IPV6", Width: 8},
	{Title: "IPV6 ADDR", Width: 24},
	{Title: "STUN", Width: 8},
	{Title: "STUN ADDR", Width: 24},
	{Title: "RX", Width: 8},
	{Title: "TX", Width: 8},
}

// Snapshot is what the client multiplexer feeds the UI once per tick.
type Snapshot struct {
	Identity string
	Relay    bool
	Peers    []*peer.Entry
}

type tickMsg time.Time

// Model is the Bubble Tea model for `rustun client --status`, its peer
// table rendered by bubbles/table rather than hand-rolled column padding.
type Model struct {
	snapshot func() Snapshot
	current  Snapshot
	table    table.Model
}

func NewModel(snapshot func() Snapshot) Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(15),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderBottom(true).BorderStyle(lipgloss.NormalBorder())
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)
	return Model{snapshot: snapshot, table: t}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.current = m.snapshot()
		m.table.SetRows(rowsFor(m.current.Peers))
		return m, tick()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func rowsFor(peers []*peer.Entry) []table.Row {
	now := time.Now()
	rows := make([]table.Row, 0, len(peers))
	for _, p := range peers {
		ipv6Addr, _ := p.IPv6.Address()
		stunAddr, _ := p.Stun.Address()
		rows = append(rows, table.Row{
			p.Identity,
			p.IPv6.State(now).String(),
			addrOrDash(ipv6Addr.String(), p.IPv6.State(now)),
			p.Stun.State(now).String(),
			addrOrDash(stunAddr.String(), p.Stun.State(now)),
			fmt.Sprintf("%d", p.RxFrames.Load()),
			fmt.Sprintf("%d", p.TxFrames.Load()),
		})
	}
	return rows
}

func (m Model) View() string {
	header := fmt.Sprintf("%s  identity=%s  relay=%v\n\n", headerStyle.Render("rustun status"), m.current.Identity, m.current.Relay)
	return header + m.table.View() + "\npress q to quit\n"
}

func addrOrDash(s string, state peer.State) string {
	if state == peer.Unknown {
		return "-"
	}
	return s
}
