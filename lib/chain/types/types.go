// Package types EOS chain API types.
package types

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// TimeLayout is the format of chain timestamps: UTC without a zone designator.
const TimeLayout = "2006-01-02T15:04:05"

// Info is the get_info reply.
type Info struct {
	ServerVersion            string `json:"server_version"`
	ChainID                  string `json:"chain_id,omitempty"`
	HeadBlockNum             uint64 `json:"head_block_num"`
	LastIrreversibleBlockNum uint64 `json:"last_irreversible_block_num"`
	HeadBlockID              string `json:"head_block_id"`
	HeadBlockTime            string `json:"head_block_time"`
	HeadBlockProducer        string `json:"head_block_producer"`
}

// Authorization is a permission level. Older nodes name the actor "account".
type Authorization struct {
	Actor      string `json:"actor,omitempty"`
	Account    string `json:"account,omitempty"`
	Permission string `json:"permission"`
}

// Name returns the authorizing account.
func (a Authorization) Name() string {
	if a.Actor != "" {
		return a.Actor
	}

	return a.Account
}

// Action is a contract call. Older nodes name the contract "code" and the action "type".
type Action struct {
	Account       string          `json:"account,omitempty"`
	Code          string          `json:"code,omitempty"`
	Name          string          `json:"name,omitempty"`
	Type          string          `json:"type,omitempty"`
	Authorization []Authorization `json:"authorization"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// Contract returns the account of the contract called.
func (a Action) Contract() string {
	if a.Code != "" {
		return a.Code
	}

	return a.Account
}

// ActionName returns the name of the action called.
func (a Action) ActionName() string {
	if a.Name != "" {
		return a.Name
	}

	return a.Type
}

// Actions decodes from a single action object or an array of them.
type Actions []Action

// UnmarshalJSON implements json.Unmarshaler.
func (as *Actions) UnmarshalJSON(b []byte) error {
	if trimmed := strings.TrimSpace(string(b)); strings.HasPrefix(trimmed, "{") {
		var a Action
		if err := json.Unmarshal(b, &a); err != nil {
			return err
		}

		*as = Actions{a}

		return nil
	}

	var list []Action
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}

	*as = list

	return nil
}

// PushRequest is the body accepted to push a transaction.
type PushRequest struct {
	Actions    Actions  `json:"actions"`
	Signatures []string `json:"signatures"`
	Scope      []string `json:"scope,omitempty"`
}

// Transaction is the push_transaction body: the request plus a header referencing the head block.
type Transaction struct {
	RefBlockNum    uint16   `json:"refBlockNum"`
	RefBlockPrefix uint32   `json:"refBlockPrefix"`
	Expiration     string   `json:"expiration"`
	Scope          []string `json:"scope"`
	Actions        Actions  `json:"actions"`
	Signatures     []string `json:"signatures"`
}

// SignedTransaction is a transaction as found in blocks.
type SignedTransaction struct {
	Expiration     string   `json:"expiration"`
	RefBlockNum    uint16   `json:"ref_block_num"`
	RefBlockPrefix uint32   `json:"ref_block_prefix"`
	Scope          []string `json:"scope,omitempty"`
	ReadScope      []string `json:"read_scope,omitempty"`
	Actions        []Action `json:"actions"`
}

// Trx is the transaction of a block receipt. ID alone is set for deferred transactions.
type Trx struct {
	ID          string            `json:"id"`
	Signatures  []string          `json:"signatures"`
	Transaction SignedTransaction `json:"transaction"`
}

// UnmarshalJSON accepts both the packed form and a bare transaction id.
func (t *Trx) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		*t = Trx{ID: id}

		return nil
	}

	type plain Trx

	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	*t = Trx(p)

	return nil
}

// Receipt is a transaction receipt in a block.
type Receipt struct {
	Status string `json:"status"`
	Trx    Trx    `json:"trx"`
}

// Block is the get_block reply.
type Block struct {
	ID                    string    `json:"id"`
	BlockNum              uint64    `json:"block_num"`
	Previous              string    `json:"previous"`
	Timestamp             string    `json:"timestamp"`
	Producer              string    `json:"producer"`
	TransactionMerkleRoot string    `json:"transaction_mroot"`
	RefBlockPrefix        uint32    `json:"ref_block_prefix"`
	Transactions          []Receipt `json:"transactions"`
}

// Account is the get_account reply.
type Account struct {
	AccountName       string `json:"account_name"`
	CoreLiquidBalance string `json:"core_liquid_balance"`
	TotalResources    *struct {
		NetWeight string `json:"net_weight"`
		CPUWeight string `json:"cpu_weight"`
	} `json:"total_resources"`
	RefundRequest *struct {
		NetAmount string `json:"net_amount"`
		CPUAmount string `json:"cpu_amount"`
	} `json:"refund_request"`
}

// ParseTime parses a chain timestamp, with or without fractional seconds.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSuffix(s, "Z")

	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, ErrBadTime
	}

	return t.UTC(), nil
}

// Error codes.
var (
	ErrBadTime     = errors.New("malformed chain timestamp")
	ErrNoBlock     = errors.New("block not available yet")
	ErrNoHeadBlock = errors.New("get_info did not return a usable head block id")
)
