package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"corefi/services/lendform"
)

type submitDoneMsg struct {
	outcome lendform.Outcome
	err     error
}

type toastMsg lendform.Toast

type connectRequestedMsg struct{}

type unlockDoneMsg struct {
	err error
}

// Model renders the lend form in a terminal.
type Model struct {
	ctx    context.Context
	form   *lendform.Form
	wallet *PromptWallet
	toasts <-chan lendform.Toast

	amount     textinput.Model
	passphrase textinput.Model
	spinner    spinner.Model
	connecting bool
	toast      *lendform.Toast
	width      int
}

// New builds the model. toasts should be a subscription on the notifier the
// orchestrator was built with.
func New(ctx context.Context, form *lendform.Form, wallet *PromptWallet, toasts <-chan lendform.Toast) Model {
	view := form.View()

	amount := textinput.New()
	amount.Prompt = ""
	amount.Placeholder = view.Placeholder
	amount.CharLimit = 40
	amount.Focus()

	passphrase := textinput.New()
	passphrase.Prompt = "Passphrase: "
	passphrase.EchoMode = textinput.EchoPassword
	passphrase.EchoCharacter = '•'

	return Model{
		ctx:        ctx,
		form:       form,
		wallet:     wallet,
		toasts:     toasts,
		amount:     amount,
		passphrase: passphrase,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:      72,
	}
}

// Init starts the cursor blink, the spinner and the event listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitToast(), m.waitConnect())
}

// Update handles key presses and background results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case submitDoneMsg:
		if msg.err == nil && msg.outcome.Status == lendform.OutcomeSucceeded {
			m.amount.SetValue("")
		}
		return m, nil
	case toastMsg:
		toast := lendform.Toast(msg)
		m.toast = &toast
		return m, m.waitToast()
	case connectRequestedMsg:
		m.connecting = true
		m.amount.Blur()
		m.passphrase.SetValue("")
		focus := m.passphrase.Focus()
		return m, tea.Batch(focus, m.waitConnect())
	case unlockDoneMsg:
		if msg.err != nil {
			m.toast = &lendform.Toast{
				Title:       "Error",
				Description: lendform.ParseErrors(msg.err.Error()),
				Variant:     lendform.VariantDestructive,
			}
			m.passphrase.SetValue("")
			return m, nil
		}
		m.connecting = false
		m.passphrase.Blur()
		focus := m.amount.Focus()
		return m, focus
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.connecting {
			m.connecting = false
			m.passphrase.Blur()
			focus := m.amount.Focus()
			return m, focus
		}
		return m, tea.Quit
	case "enter":
		if m.connecting {
			return m, m.unlock(m.passphrase.Value())
		}
		if m.form.Loading() {
			return m, nil
		}
		m.toast = nil
		return m, m.submit()
	}

	var cmd tea.Cmd
	if m.connecting {
		m.passphrase, cmd = m.passphrase.Update(msg)
		return m, cmd
	}
	if m.form.Loading() {
		return m, nil
	}
	m.amount, cmd = m.amount.Update(msg)
	m.form.SetAmount(m.amount.Value())
	return m, cmd
}

func (m Model) submit() tea.Cmd {
	form, ctx := m.form, m.ctx
	return func() tea.Msg {
		outcome, err := form.Submit(ctx)
		return submitDoneMsg{outcome: outcome, err: err}
	}
}

func (m Model) unlock(passphrase string) tea.Cmd {
	wallet := m.wallet
	return func() tea.Msg {
		if wallet == nil {
			return unlockDoneMsg{err: lendform.ErrNotConfigured}
		}
		return unlockDoneMsg{err: wallet.Unlock(passphrase)}
	}
}

func (m Model) waitToast() tea.Cmd {
	if m.toasts == nil {
		return nil
	}
	toasts := m.toasts
	return func() tea.Msg {
		toast, ok := <-toasts
		if !ok {
			return nil
		}
		return toastMsg(toast)
	}
}

func (m Model) waitConnect() tea.Cmd {
	if m.wallet == nil {
		return nil
	}
	requests := m.wallet.Requests()
	return func() tea.Msg {
		<-requests
		return connectRequestedMsg{}
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	buttonStyle  = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("63")).Foreground(lipgloss.Color("231"))
	disabledBtn  = buttonStyle.Background(lipgloss.Color("240"))
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	successToast = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("42")).Padding(0, 1)
	errorToast   = successToast.BorderForeground(lipgloss.Color("196"))
)

// View renders the card.
func (m Model) View() string {
	v := m.form.View()
	inner := m.width - 8
	if inner < 30 {
		inner = 30
	}
	wrap := lipgloss.NewStyle().Width(inner)

	var b strings.Builder
	b.WriteString(titleStyle.Render(v.Title))
	b.WriteString("\n")
	b.WriteString(wrap.Inherit(mutedStyle).Render(v.Description))
	b.WriteString("\n\n")
	b.WriteString(v.Label)
	b.WriteString("\n")
	b.WriteString(m.amount.View())
	b.WriteString("\n")
	if v.FieldError != "" {
		b.WriteString(errorStyle.Render(v.FieldError))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if v.Spinner {
		b.WriteString(disabledBtn.Render(m.spinner.View() + v.ButtonLabel))
		b.WriteString("\n\n")
		b.WriteString(wrap.Inherit(mutedStyle).Render(v.Notice))
	} else {
		b.WriteString(buttonStyle.Render(v.ButtonLabel))
	}
	if m.connecting {
		b.WriteString("\n\n")
		b.WriteString("Connect your wallet to continue.\n")
		b.WriteString(m.passphrase.View())
	}
	b.WriteString("\n")

	out := cardStyle.Render(b.String())
	if m.toast != nil {
		style := successToast
		if m.toast.Variant == lendform.VariantDestructive {
			style = errorToast
		}
		out += "\n" + style.Width(inner).Render(titleStyle.Render(m.toast.Title)+"\n"+m.toast.Description)
	}
	footer := "enter: submit  esc: quit"
	if v.WalletConnected {
		footer = v.WalletAddress + "  " + footer
	}
	return out + "\n" + mutedStyle.Render(footer) + "\n"
}
