package lendform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormValidationBlocksSubmission(t *testing.T) {
	h := newHarness(t, true)
	for _, amount := range []string{"", "0", "-3", "ten", "1_000", "0x1p4", "0x10"} {
		h.form.SetAmount(amount)
		_, err := h.form.Submit(context.Background())
		require.Error(t, err)
		require.Equal(t, KindValidation, KindOf(err))
		require.ErrorIs(t, err, ErrAmountNotPositive, "amount %q", amount)
		require.Equal(t, "Amount must be greater than 0", h.form.FieldError())
		require.Equal(t, "Amount must be greater than 0", h.form.View().FieldError)
	}
	require.Empty(t, h.contract.recorded())
	require.Zero(t, h.wallet.opens)
	require.Empty(t, h.toasts.all())
}

func TestFormEditingClearsFieldError(t *testing.T) {
	h := newHarness(t, true)
	h.form.SetAmount("0")
	_, err := h.form.Submit(context.Background())
	require.Error(t, err)
	require.NotEmpty(t, h.form.FieldError())

	h.form.SetAmount("1")
	require.Empty(t, h.form.FieldError())
}

func TestFormViewIdle(t *testing.T) {
	h := newHarness(t, true)
	h.form.SetAmount("42")
	v := h.form.View()

	require.Equal(t, "Lend", v.Title)
	require.Contains(t, v.Description, "Lend out your USDT")
	require.Equal(t, "Amount", v.Label)
	require.Equal(t, "1000 USDT", v.Placeholder)
	require.Equal(t, "42", v.Amount)
	require.Equal(t, "Submit", v.ButtonLabel)
	require.False(t, v.ButtonDisabled)
	require.False(t, v.Spinner)
	require.Empty(t, v.Notice)
	require.True(t, v.WalletConnected)
	require.Equal(t, testWallet.Hex(), v.WalletAddress)
}

func TestViewLoadingState(t *testing.T) {
	var v View
	v.applyLoading(true)
	require.Equal(t, "Please wait", v.ButtonLabel)
	require.True(t, v.ButtonDisabled)
	require.True(t, v.Spinner)
	require.Contains(t, v.Notice, "5-7 seconds")

	v.applyLoading(false)
	require.Equal(t, "Submit", v.ButtonLabel)
	require.Empty(t, v.Notice)
}

func TestFormViewDisconnected(t *testing.T) {
	h := newHarness(t, false)
	v := h.form.View()
	require.False(t, v.WalletConnected)
	require.Empty(t, v.WalletAddress)
}
