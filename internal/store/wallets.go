package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/DoyleJ11/scratch-race-backend/internal/betting"
)

const (
	walletKeyPrefix = "wallets/"
	walletAttempts  = 3
)

type walletDoc struct {
	Balance decimal.Decimal `json:"balance"`
}

// Wallets keeps bettors' money in the same KV as the games. A player seen for
// the first time starts with the opening bankroll.
type Wallets struct {
	kv       KV
	bankroll decimal.Decimal
}

var _ betting.Wallet = (*Wallets)(nil)

func NewWallets(kv KV, bankroll decimal.Decimal) *Wallets {
	return &Wallets{kv: kv, bankroll: bankroll}
}

func walletKey(playerID string) string { return walletKeyPrefix + playerID }

func (w *Wallets) load(ctx context.Context, playerID string) (walletDoc, int64, error) {
	e, err := w.kv.Get(ctx, walletKey(playerID))
	if errors.Is(err, ErrNotFound) {
		return walletDoc{Balance: w.bankroll}, 0, nil
	}
	if err != nil {
		return walletDoc{}, 0, err
	}
	var doc walletDoc
	if err := json.Unmarshal(e.Value, &doc); err != nil {
		return walletDoc{}, 0, fmt.Errorf("decode wallet %s: %w", playerID, err)
	}
	return doc, e.Version, nil
}

func (w *Wallets) Balance(ctx context.Context, playerID string) (decimal.Decimal, error) {
	doc, _, err := w.load(ctx, playerID)
	return doc.Balance, err
}

func (w *Wallets) Debit(ctx context.Context, playerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return w.update(ctx, playerID, func(bal decimal.Decimal) (decimal.Decimal, error) {
		if bal.LessThan(amount) {
			return bal, fmt.Errorf("%w: balance %s, need %s", betting.ErrInsufficientFunds, bal, amount)
		}
		return bal.Sub(amount), nil
	})
}

func (w *Wallets) Credit(ctx context.Context, playerID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return w.update(ctx, playerID, func(bal decimal.Decimal) (decimal.Decimal, error) {
		return bal.Add(amount), nil
	})
}

func (w *Wallets) update(ctx context.Context, playerID string, fn func(decimal.Decimal) (decimal.Decimal, error)) (decimal.Decimal, error) {
	key := walletKey(playerID)
	for attempt := 0; attempt < walletAttempts; attempt++ {
		doc, version, err := w.load(ctx, playerID)
		if err != nil {
			return decimal.Zero, err
		}
		next, err := fn(doc.Balance)
		if err != nil {
			return doc.Balance, err
		}
		data, err := json.Marshal(walletDoc{Balance: next})
		if err != nil {
			return decimal.Zero, err
		}
		if version == 0 {
			err = w.kv.Create(ctx, key, data)
		} else {
			_, err = w.kv.CompareAndSwap(ctx, key, version, data)
		}
		switch {
		case err == nil:
			return next, nil
		case errors.Is(err, ErrExists), errors.Is(err, ErrConcurrentModification):
			continue
		default:
			return decimal.Zero, err
		}
	}
	return decimal.Zero, ErrConcurrentModification
}
