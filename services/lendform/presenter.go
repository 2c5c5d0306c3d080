package lendform

import "fmt"

const (
	cardTitle       = "Lend"
	cardDescription = "Lend out your %s and earn competitive returns. Simply input the amount you wish to lend and hit Submit button. Your %s will be loaned out securely, and you'll receive your returns automatically."
	fieldLabel      = "Amount"
	idleLabel       = "Submit"
	busyLabel       = "Please wait"
	busyNotice      = "Your transaction is being processed... Please stay on the page. The transaction may take 5-7 seconds to complete. We appreciate your patience!"
)

// View is everything a front end needs to render the form.
type View struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Label           string `json:"label"`
	Placeholder     string `json:"placeholder"`
	Amount          string `json:"amount"`
	FieldError      string `json:"field_error,omitempty"`
	Loading         bool   `json:"loading"`
	ButtonLabel     string `json:"button_label"`
	ButtonDisabled  bool   `json:"button_disabled"`
	Spinner         bool   `json:"spinner"`
	Notice          string `json:"notice,omitempty"`
	WalletConnected bool   `json:"wallet_connected"`
	WalletAddress   string `json:"wallet_address,omitempty"`
}

// View derives the rendering state from the form and its orchestrator.
func (f *Form) View() View {
	symbol := "USDT"
	var wallet Wallet
	if f.orchestrator != nil {
		symbol = f.orchestrator.Symbol()
		wallet = f.orchestrator.Wallet()
	}
	state := f.State()
	v := View{
		Title:       cardTitle,
		Description: fmt.Sprintf(cardDescription, symbol, symbol),
		Label:       fieldLabel,
		Placeholder: "1000 " + symbol,
		Amount:      state.Amount,
		FieldError:  f.FieldError(),
	}
	v.applyLoading(f.Loading())
	if wallet != nil {
		if addr, ok := wallet.Address(); ok {
			v.WalletConnected = true
			v.WalletAddress = addr.Hex()
		}
	}
	return v
}

func (v *View) applyLoading(loading bool) {
	v.Loading = loading
	v.ButtonDisabled = loading
	v.Spinner = loading
	if loading {
		v.ButtonLabel = busyLabel
		v.Notice = busyNotice
		return
	}
	v.ButtonLabel = idleLabel
	v.Notice = ""
}
