/*
Package economy implements the currency commands backed by the ledger:

	!bal               show the sender's balance and score
	!give <user> <n>   transfer n currency to another user

Transfers are two ledger adjustments; the debit runs first so a failed
debit (insufficient funds) never mints currency, and a failed credit
refunds the debit.
*/
package economy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"howdybot/internal/app/ledger"
	"howdybot/internal/app/wire"
	"howdybot/internal/features"
	"howdybot/internal/pkg/logx"
)

const ledgerTimeout = 5 * time.Second

// Feature is the economy feature module.
type Feature struct {
	rt features.Runtime
}

// New creates the economy feature.
func New() *Feature {
	return &Feature{}
}

// Name implements features.Feature.
func (f *Feature) Name() string { return "economy" }

// Register implements features.Feature.
func (f *Feature) Register(rt features.Runtime) error {
	f.rt = rt

	rt.On("event:"+wire.HandlerChatroomMessage, "economy.commands", f.onMessage)
	rt.On("event:"+wire.HandlerMessage, "economy.commands", f.onMessage)
	return nil
}

func (f *Feature) onMessage(frame wire.Frame) {
	senderID := frame.UserID()
	if senderID == "" || senderID == f.rt.OwnID() {
		return
	}

	cmd, ok := features.ParseCommand(frame.String("text"))
	if !ok {
		return
	}

	sender := frame.String("username")
	dm := frame.Handler() == wire.HandlerMessage

	switch cmd.Name {
	case "bal", "balance":
		f.handleBalance(senderID, sender, dm)
	case "give":
		f.handleGive(senderID, sender, cmd.Arg1, cmd.Arg2, dm)
	}
}

func (f *Feature) handleBalance(senderID, sender string, dm bool) {
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()

	if err := f.rt.Ledger().Upsert(ctx, senderID, sender); err != nil {
		logx.Error(err, "Balance: upsert failed.", "user_id", senderID)
		return
	}

	rec, err := f.rt.Ledger().Get(ctx, senderID)
	if err != nil {
		logx.Error(err, "Balance: read failed.", "user_id", senderID)
		return
	}

	f.reply(sender, fmt.Sprintf("💰 @%s: %d coins | score %d", sender, rec.Currency, rec.PermanentScore), dm)
}

func (f *Feature) handleGive(senderID, sender, targetHandle, amountStr string, dm bool) {
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil || amount <= 0 {
		f.reply(sender, "Usage: !give <username> <amount>", dm)
		return
	}

	target, ok := f.rt.ResolveUserByHandle(targetHandle)
	if !ok {
		f.reply(sender, fmt.Sprintf("User @%s is not around.", targetHandle), dm)
		return
	}
	if target.ID == senderID {
		f.reply(sender, "You cannot give coins to yourself.", dm)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()

	// Both sides must exist before any adjustment.
	if err := f.rt.Ledger().Upsert(ctx, senderID, sender); err != nil {
		logx.Error(err, "Give: sender upsert failed.", "user_id", senderID)
		return
	}
	if err := f.rt.Ledger().Upsert(ctx, target.ID, target.Handle); err != nil {
		logx.Error(err, "Give: target upsert failed.", "user_id", target.ID)
		return
	}

	// Debit first: a rejected debit leaves both balances untouched.
	if _, err := f.rt.Ledger().AdjustCurrency(ctx, senderID, -amount); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			f.reply(sender, "Not enough coins for that.", dm)
			return
		}
		logx.Error(err, "Give: debit failed.", "user_id", senderID)
		return
	}

	if _, err := f.rt.Ledger().AdjustCurrency(ctx, target.ID, amount); err != nil {
		logx.Error(err, "Give: credit failed; refunding debit.", "user_id", target.ID)
		if _, refundErr := f.rt.Ledger().AdjustCurrency(ctx, senderID, amount); refundErr != nil {
			logx.Error(refundErr, "Give: refund failed; ledger inconsistent for sender.", "user_id", senderID)
		}
		return
	}

	if err := f.rt.Ledger().MergeFeatureData(ctx, senderID, f.Name(), map[string]any{
		"last_gift_to": target.ID,
	}); err != nil {
		logx.Error(err, "Give: merge feature data failed.", "user_id", senderID)
	}

	f.reply(sender, fmt.Sprintf("✅ Sent %d coins to @%s.", amount, target.Handle), dm)
}

func (f *Feature) reply(sender, text string, dm bool) {
	target := ""
	if dm {
		target = sender
	}
	if err := f.rt.SendText(target, text, dm); err != nil {
		logx.Error(err, "Economy: reply failed.", "sender", sender)
	}
}
