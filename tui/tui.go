package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shu8h0-null/powledger/core/blockchain"
	"github.com/shu8h0-null/powledger/core/rpc"
)

const (
	modeExplorer = iota
	modeSend
)

const recentBlocks = 20

// Source is the node view the explorer polls.
type Source interface {
	ChainInfo(ctx context.Context) (rpc.ChainInfo, error)
	RecentBlocks(ctx context.Context, n int) ([]*blockchain.Block, error)
	SubmitTransaction(ctx context.Context, req rpc.TxRequest) (rpc.TxReceipt, error)
}

// ClientSource adapts an RPC client to Source.
type ClientSource struct {
	Client *rpc.Client
}

func (s ClientSource) ChainInfo(ctx context.Context) (rpc.ChainInfo, error) {
	return s.Client.ChainInfo(ctx)
}

func (s ClientSource) RecentBlocks(ctx context.Context, n int) ([]*blockchain.Block, error) {
	return s.Client.RecentBlocks(ctx, n)
}

func (s ClientSource) SubmitTransaction(ctx context.Context, req rpc.TxRequest) (rpc.TxReceipt, error) {
	return s.Client.SubmitTransaction(ctx, req)
}

type tickMsg time.Time

type chainMsg struct {
	info   rpc.ChainInfo
	blocks []*blockchain.Block
	err    error
}

type submittedMsg struct {
	receipt rpc.TxReceipt
	err     error
}

type model struct {
	ctx      context.Context
	src      Source
	interval time.Duration

	mode   int
	table  table.Model
	send   sendForm
	info   rpc.ChainInfo
	blocks []*blockchain.Block
	status string
	err    error

	width  int
	height int
}

func newModel(ctx context.Context, src Source, interval time.Duration) model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Height", Width: 8},
			{Title: "Hash", Width: 24},
			{Title: "Txs", Width: 5},
			{Title: "Nonce", Width: 12},
			{Title: "Mined (UTC)", Width: 20},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())

	return model{
		ctx:      ctx,
		src:      src,
		interval: interval,
		mode:     modeExplorer,
		table:    t,
		send:     newSendForm(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) fetch() tea.Cmd {
	return func() tea.Msg {
		info, err := m.src.ChainInfo(m.ctx)
		if err != nil {
			return chainMsg{err: err}
		}
		blocks, err := m.src.RecentBlocks(m.ctx, recentBlocks)
		return chainMsg{info: info, blocks: blocks, err: err}
	}
}

func (m model) submit(req rpc.TxRequest) tea.Cmd {
	return func() tea.Msg {
		receipt, err := m.src.SubmitTransaction(m.ctx, req)
		return submittedMsg{receipt: receipt, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case chainMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.info = msg.info
		m.blocks = msg.blocks
		m.table.SetRows(blockRows(tipHeight(msg.info, msg.blocks), msg.blocks))
		return m, nil

	case submittedMsg:
		if msg.err != nil {
			m.send.err = msg.err
			return m, nil
		}
		m.mode = modeExplorer
		m.send = newSendForm()
		m.status = fmt.Sprintf("Transaction %s pooled (%d pending)", msg.receipt.TxID, msg.receipt.Pending)
		return m, m.fetch()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.mode == modeSend {
			return m.updateSend(msg)
		}
		return m.updateExplorer(msg)
	}

	return m, nil
}

func (m model) updateExplorer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "r":
		return m, m.fetch()
	case "s":
		m.mode = modeSend
		m.send = newSendForm()
		m.status = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) updateSend(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.mode = modeExplorer
		return m, nil
	}

	form, cmd, req := m.send.update(msg)
	m.send = form
	if req != nil {
		return m, m.submit(*req)
	}
	return m, cmd
}

func (m model) View() string {
	if m.mode == modeSend {
		return Centered(m.send.view(), m.width, m.height)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("~~ powledger explorer ~~"))
	b.WriteString("\n\n")
	b.WriteString(m.summary())
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	if block := m.selected(); block != nil {
		b.WriteString(detailStyle.Render(blockDetail(block)))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + okStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("↑/↓ select • s send • r refresh • q quit"))

	return Centered(b.String(), m.width, m.height)
}

func (m model) summary() string {
	valid := okStyle.Render("valid")
	if !m.info.Valid {
		valid = errorStyle.Render("INVALID")
	}
	line := fmt.Sprintf("%s %d   %s %d   %s %d   %s %d   %s",
		labelStyle.Render("height"), m.info.Height,
		labelStyle.Render("difficulty"), m.info.Difficulty,
		labelStyle.Render("reward"), m.info.MiningReward,
		labelStyle.Render("pending"), m.info.Pending,
		valid,
	)
	if m.info.VerifyError != "" {
		line += "\n" + errorStyle.Render(m.info.VerifyError)
	}
	return line
}

func (m model) selected() *blockchain.Block {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.blocks) {
		return nil
	}
	return m.blocks[i]
}

// blockRows expects blocks newest first, as RecentBlocks returns them, with
// blocks[0] at height top.
func blockRows(top int, blocks []*blockchain.Block) []table.Row {
	rows := make([]table.Row, 0, len(blocks))
	for i, block := range blocks {
		rows = append(rows, table.Row{
			strconv.Itoa(top - i),
			shortHash(block.Hash, 10),
			strconv.Itoa(len(block.Transactions)),
			strconv.FormatUint(block.Nonce, 10),
			block.Timestamp.UTC().Format(time.DateTime),
		})
	}
	return rows
}

// tipHeight is the height of blocks[0]. A block mined between the two
// fetches sits one above the height info reported.
func tipHeight(info rpc.ChainInfo, blocks []*blockchain.Block) int {
	if len(blocks) > 0 && blocks[0].Hash != info.LatestHash && blocks[0].PrevHash == info.LatestHash {
		return info.Height + 1
	}
	return info.Height
}

func blockDetail(block *blockchain.Block) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("hash     "), block.Hash)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("prev hash"), block.PrevHash)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("nonce    "), block.Nonce)
	if len(block.Transactions) == 0 {
		b.WriteString(helpStyle.Render("no transactions"))
		return b.String()
	}
	for _, tx := range block.Transactions {
		line := fmt.Sprintf("  %s -> %s  %d", tx.Sender, tx.Recipient, tx.Amount)
		if tx.IsReward() {
			line += helpStyle.Render("  (reward)")
		}
		if !tx.LockUntil.IsZero() {
			line += helpStyle.Render("  locked until " + tx.LockUntil.UTC().Format(time.DateTime))
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Run starts the explorer and blocks until the user quits or ctx is done.
func Run(ctx context.Context, src Source, interval time.Duration) error {
	p := tea.NewProgram(newModel(ctx, src, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
