package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shu8h0-null/powledger/core/rpc"
)

const (
	fromField = iota
	toField
	amountField
	sendButton
)

type sendForm struct {
	txtInputs  []textinput.Model
	focusIndex int
	err        error
}

func newSendForm() sendForm {
	inputs := make([]textinput.Model, 3)

	inputs[fromField] = textinput.New()
	inputs[fromField].Prompt = "-> "
	inputs[fromField].Placeholder = "Sender address"
	inputs[fromField].Width = 60
	inputs[fromField].Validate = addressValidator
	inputs[fromField].Focus()

	inputs[toField] = textinput.New()
	inputs[toField].Prompt = "-> "
	inputs[toField].Placeholder = "Recipient address"
	inputs[toField].Width = 60
	inputs[toField].Validate = addressValidator

	inputs[amountField] = textinput.New()
	inputs[amountField].Prompt = "-> "
	inputs[amountField].Placeholder = "Amount to send"
	inputs[amountField].Width = 30
	inputs[amountField].CharLimit = 19
	inputs[amountField].Validate = amountValidator

	return sendForm{txtInputs: inputs}
}

// request validates every field and builds the RPC payload.
func (f sendForm) request() (rpc.TxRequest, error) {
	from := f.txtInputs[fromField].Value()
	to := f.txtInputs[toField].Value()
	amt := f.txtInputs[amountField].Value()

	if err := addressValidator(from); err != nil {
		return rpc.TxRequest{}, fmt.Errorf("sender: %w", err)
	}
	if err := addressValidator(to); err != nil {
		return rpc.TxRequest{}, fmt.Errorf("recipient: %w", err)
	}
	if err := amountValidator(amt); err != nil {
		return rpc.TxRequest{}, err
	}
	amount, _ := strconv.ParseInt(amt, 10, 64)
	return rpc.TxRequest{From: from, To: to, Amount: amount}, nil
}

// update moves focus and feeds keys to the inputs. A non-nil request is
// returned when the send button is pressed on a valid form.
func (f sendForm) update(msg tea.KeyMsg) (sendForm, tea.Cmd, *rpc.TxRequest) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg.String() {
	case "down", "tab":
		if f.focusIndex < len(f.txtInputs) {
			f.focusIndex++
		}
	case "up", "shift+tab":
		if f.focusIndex > 0 {
			f.focusIndex--
		}
	case "enter":
		if f.focusIndex == sendButton {
			req, err := f.request()
			if err != nil {
				f.err = err
				return f, nil, nil
			}
			f.err = nil
			return f, nil, &req
		}
		if f.focusIndex < len(f.txtInputs) {
			f.focusIndex++
		}
	}

	for i := 0; i < len(f.txtInputs); i++ {
		if i == f.focusIndex {
			cmds = append(cmds, f.txtInputs[i].Focus())
		} else {
			f.txtInputs[i].Blur()
		}
		f.txtInputs[i], cmd = f.txtInputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}

	f.err = nil
	for i := 0; i < len(f.txtInputs); i++ {
		if i != f.focusIndex && f.txtInputs[i].Err != nil && f.txtInputs[i].Value() != "" {
			f.err = f.txtInputs[i].Err
		}
	}

	return f, tea.Batch(cmds...), nil
}

func (f sendForm) view() string {
	button := " Send "
	if f.focusIndex == sendButton {
		button = buttonFocusedStyle.Render(button)
	} else {
		button = buttonStyle.Render(button)
	}

	errMsg := ""
	if f.err != nil {
		errMsg = errorStyle.Render(f.err.Error())
	}

	return fmt.Sprintf(
		`%s
%s

%s
%s

%s
%s

%s
%s

%s

%s`,
		titleStyle.Render("~~ Send a transaction ~~"),
		errMsg,
		inputStyle.Render("From"),
		f.txtInputs[fromField].View(),
		inputStyle.Render("To"),
		f.txtInputs[toField].View(),
		inputStyle.Render("Amount"),
		f.txtInputs[amountField].View(),
		button,
		helpStyle.Render("tab/↓ next • enter submit • esc back"),
	)
}
