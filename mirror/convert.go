package mirror

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tarancss/eosapi/lib/chain/types"
	"github.com/tarancss/eosapi/lib/store"
)

// system contract and the action creating accounts
const (
	system     = "eosio"
	newAccount = "newaccount"
)

// Convert returns the documents written for b and the names of the accounts created in it.
func Convert(b *types.Block) (store.ChainBlock, []string, error) {
	ts, err := types.ParseTime(b.Timestamp)
	if err != nil {
		return store.ChainBlock{}, nil, fmt.Errorf("block %d timestamp: %w", b.BlockNum, err)
	}

	cb := store.ChainBlock{
		Block: store.Block{
			BlockNum:              b.BlockNum,
			BlockID:               b.ID,
			PrevBlockID:           b.Previous,
			Timestamp:             ts,
			TransactionMerkleRoot: b.TransactionMerkleRoot,
			Producer:              b.Producer,
		},
		Transactions: make([]store.Transaction, 0, len(b.Transactions)),
	}

	var created []string

	for i, r := range b.Transactions {
		trx := r.Trx
		tx := store.Transaction{
			TransactionID:  trx.ID,
			SequenceNum:    i,
			BlockID:        b.ID,
			RefBlockNum:    trx.Transaction.RefBlockNum,
			RefBlockPrefix: trx.Transaction.RefBlockPrefix,
			Scope:          trx.Transaction.Scope,
			ReadScope:      trx.Transaction.ReadScope,
			Signatures:     trx.Signatures,
		}

		// deferred transactions come as a bare id
		if trx.Transaction.Expiration != "" {
			if tx.Expiration, err = types.ParseTime(trx.Transaction.Expiration); err != nil {
				return store.ChainBlock{}, nil, fmt.Errorf("transaction %s expiration: %w", trx.ID, err)
			}
		}

		cb.Transactions = append(cb.Transactions, tx)

		for j, a := range trx.Transaction.Actions {
			act := store.Action{
				ActionID:      j,
				TransactionID: trx.ID,
				Account:       a.Contract(),
				Name:          a.ActionName(),
				Authorization: make([]store.Authorization, 0, len(a.Authorization)),
				Data:          actionData(a.Data),
			}

			for _, auth := range a.Authorization {
				act.Authorization = append(act.Authorization, store.Authorization{Actor: auth.Name(), Permission: auth.Permission})
			}

			if name := createdAccount(act); name != "" {
				created = append(created, name)
			}

			cb.Actions = append(cb.Actions, act)
		}
	}

	return cb, created, nil
}

// actionData decodes the action arguments. Data the node could not decode against the contract ABI is a hex string,
// kept under "hex".
func actionData(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err == nil {
		return m
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	if s, ok := v.(string); ok {
		return map[string]interface{}{"hex": s}
	}

	return map[string]interface{}{"value": v}
}

// createdAccount returns the account created by a, if any. Older nodes name the argument "newact".
func createdAccount(a store.Action) string {
	if a.Account != system || a.Name != newAccount {
		return ""
	}

	for _, k := range []string{"name", "newact"} {
		if s, ok := a.Data[k].(string); ok && s != "" {
			return s
		}
	}

	return ""
}

// NewAccount builds the mirrored account from a get_account reply. Staked is the sum of the net and cpu weights,
// unstaking the sum of the pending refunds.
func NewAccount(a *types.Account) store.Account {
	acc := store.Account{Name: a.AccountName, EOSBalance: a.CoreLiquidBalance}

	if r := a.TotalResources; r != nil {
		acc.StakedBalance = addAssets(r.NetWeight, r.CPUWeight)
	}

	if r := a.RefundRequest; r != nil {
		acc.UnstakingBalance = addAssets(r.NetAmount, r.CPUAmount)
	}

	return acc
}

// asset is an amount in units of 10^-precision of a symbol.
type asset struct {
	amount    int64
	precision int
	symbol    string
}

func parseAsset(s string) (asset, bool) {
	qty, sym, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || sym == "" {
		return asset{}, false
	}

	neg := strings.HasPrefix(qty, "-")
	qty = strings.TrimPrefix(qty, "-")

	whole, frac, _ := strings.Cut(qty, ".")

	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return asset{}, false
	}

	if neg {
		n = -n
	}

	return asset{amount: n, precision: len(frac), symbol: sym}, true
}

func (a asset) scale(precision int) int64 {
	n := a.amount
	for p := a.precision; p < precision; p++ {
		n *= 10
	}

	return n
}

func (a asset) String() string {
	neg := a.amount < 0
	n := a.amount
	if neg {
		n = -n
	}

	s := strconv.FormatInt(n, 10)
	if a.precision > 0 {
		if len(s) <= a.precision {
			s = strings.Repeat("0", a.precision-len(s)+1) + s
		}

		s = s[:len(s)-a.precision] + "." + s[len(s)-a.precision:]
	}

	if neg {
		s = "-" + s
	}

	return s + " " + a.symbol
}

// addAssets returns x+y in the larger precision of both. When one side cannot be parsed, or the symbols differ, the
// other is returned unchanged.
func addAssets(x, y string) string {
	a, okA := parseAsset(x)
	b, okB := parseAsset(y)

	switch {
	case !okA && !okB:
		return ""
	case !okA:
		return y
	case !okB || a.symbol != b.symbol:
		return x
	}

	p := max(a.precision, b.precision)

	return asset{amount: a.scale(p) + b.scale(p), precision: p, symbol: a.symbol}.String()
}
