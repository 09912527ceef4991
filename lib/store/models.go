package store

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an API consumer. Password holds the bcrypt hash.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	Picture   string    `json:"picture,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// RefreshToken allows a user to get a new access token once.
type RefreshToken struct {
	Token     string    `json:"refreshToken" bson:"token"`
	UserID    string    `json:"-" bson:"userId"`
	UserEmail string    `json:"-" bson:"userEmail"`
	Expires   time.Time `json:"expires" bson:"expires"`
}

// ResetToken allows a user to change a forgotten password.
type ResetToken struct {
	Token     string    `json:"resetToken" bson:"resetToken"`
	UserID    string    `json:"-" bson:"userId"`
	UserEmail string    `json:"-" bson:"userEmail"`
	ResetURL  string    `json:"-" bson:"resetUrl"`
	Expires   time.Time `json:"expires" bson:"expires"`
}

// FaucetRequest records who asked for an account. A new request for the same account replaces the previous one.
type FaucetRequest struct {
	Email      string    `json:"email" bson:"email"`
	FirstName  string    `json:"first_name" bson:"first_name"`
	LastName   string    `json:"last_name" bson:"last_name"`
	EOSAccount string    `json:"eos_account" bson:"eos_account"`
	OwnerKey   string    `json:"owner_key" bson:"owner_key"`
	ActiveKey  string    `json:"active_key" bson:"active_key"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Cursor is the mirror progress on a chain: the last block written and a ring of the latest block ids.
type Cursor struct {
	Chain string   `json:"chain" bson:"chain"`
	Block uint64   `json:"block" bson:"block"`
	Ids   []string `json:"ids" bson:"ids"`
	Idx   int      `json:"idx" bson:"idx"`
}

// Block is a mirrored block without its transactions.
type Block struct {
	BlockNum              uint64    `bson:"block_num"`
	BlockID               string    `bson:"block_id"`
	PrevBlockID           string    `bson:"prev_block_id"`
	Timestamp             time.Time `bson:"timestamp"`
	TransactionMerkleRoot string    `bson:"transaction_merkle_root"`
	Producer              string    `bson:"producer_account_id"`
}

// Transaction is a mirrored transaction. Its actions are stored apart and point back at it.
type Transaction struct {
	TransactionID  string    `bson:"transaction_id"`
	SequenceNum    int       `bson:"sequence_num"`
	BlockID        string    `bson:"block_id"`
	RefBlockNum    uint16    `bson:"ref_block_num"`
	RefBlockPrefix uint32    `bson:"ref_block_prefix"`
	Scope          []string  `bson:"scope"`
	ReadScope      []string  `bson:"read_scope"`
	Expiration     time.Time `bson:"expiration"`
	Signatures     []string  `bson:"signatures"`
}

// Authorization is an actor and permission pair embedded in actions.
type Authorization struct {
	Actor      string `bson:"actor"`
	Permission string `bson:"permission"`
}

// Action is a mirrored action, keyed by transaction and position.
type Action struct {
	ActionID      int                    `bson:"action_id"`
	TransactionID string                 `bson:"transaction_id"`
	Account       string                 `bson:"handler_account_name"`
	Name          string                 `bson:"name"`
	Authorization []Authorization        `bson:"authorization"`
	Data          map[string]interface{} `bson:"data"`
}

// ChainBlock is everything written for one block.
type ChainBlock struct {
	Block        Block
	Transactions []Transaction
	Actions      []Action
}

// Account is a mirrored account. Balances keep the chain's "1.0000 EOS" form.
type Account struct {
	Name             string `bson:"name"`
	EOSBalance       string `bson:"eos_balance"`
	StakedBalance    string `bson:"staked_balance"`
	UnstakingBalance string `bson:"unstaking_balance"`
}
