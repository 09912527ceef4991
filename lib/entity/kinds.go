package entity

// Registered kinds. Each has exactly one relation strategy.
var (
	Accounts = &Schema{
		KindName: "accounts",
		Coll:     "Accounts",
		Natural:  "name",
		Fields:   []string{"id", "name", "eos_balance", "staked_balance", "unstaking_balance", "abi", "createdAt"},
		Numeric:  []string{"eos_balance", "staked_balance", "unstaking_balance"},
	}

	Blocks = &Schema{
		KindName: "blocks",
		Coll:     "Blocks",
		Natural:  "block_id",
		Sequence: "block_num",
		Fields: []string{"id", "block_num", "block_id", "prev_block_id", "timestamp", "transaction_merkle_root",
			"producer_account_id", "transactions", "createdAt"},
		ArrayField: []string{"transactions"},
		Rel: &Relation{
			Field:     "transactions",
			Strategy:  StoredKeyList,
			Child:     "transactions",
			ParentKey: "transactions",
			ChildKey:  "_id",
		},
	}

	Transactions = &Schema{
		KindName: "transactions",
		Coll:     "Transactions",
		Natural:  "transaction_id",
		Fields: []string{"id", "transaction_id", "sequence_num", "block_id", "ref_block_num", "ref_block_prefix",
			"scope", "read_scope", "expiration", "signatures", "actions", "createdAt"},
		ArrayField: []string{"scope", "read_scope", "signatures", "actions"},
		Rel: &Relation{
			Field:     "actions",
			Strategy:  ReverseLookup,
			Child:     "actions",
			ParentKey: "transaction_id",
			ChildKey:  "transaction_id",
			OrderBy:   "action_id",
		},
	}

	Actions = &Schema{
		KindName: "actions",
		Coll:     "Actions",
		Natural:  "transaction_id",
		Fields: []string{"id", "action_id", "transaction_id", "authorization", "handler_account_name", "name", "data",
			"createdAt"},
		ArrayField: []string{"authorization"},
		Rel:        &Relation{Field: "authorization", Strategy: Embedded},
	}

	ActionTraces = &Schema{
		KindName: "actiontraces",
		Coll:     "ActionTraces",
		Natural:  "transaction_id",
		Fields: []string{"id", "transaction_id", "action", "receiver", "region_id", "console", "cycle_index",
			"data_access", "createdAt"},
		ArrayField: []string{"data_access"},
		Rel:        &Relation{Field: "data_access", Strategy: Embedded},
	}

	// Users never expose the password hash: it is not on the whitelist.
	Users = &Schema{
		KindName: "users",
		Coll:     "users",
		Natural:  "_id",
		ObjectID: true,
		Fields:   []string{"id", "name", "email", "role", "picture", "createdAt"},
	}
)

func init() { //nolint:gochecknoinits // static registry
	for _, k := range []Kind{Accounts, Blocks, Transactions, Actions, ActionTraces, Users} {
		Register(k)
	}
}
