package mirror

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/eosapi/lib/chain/types"
	"github.com/tarancss/eosapi/lib/store"
)

func TestConvert(t *testing.T) {
	var b types.Block
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b7","block_num":7,"previous":"b6",
		"timestamp":"2018-06-01T12:00:03.500","producer":"inita","transaction_mroot":"root",
		"transactions":[
			{"status":"executed","trx":{"id":"t1","signatures":["s1"],"transaction":{
				"expiration":"2018-06-01T12:00:33","ref_block_num":6,"ref_block_prefix":42,"scope":["eosio","inita"],
				"actions":[
					{"account":"eosio","name":"newaccount","authorization":[{"actor":"inita","permission":"active"}],
						"data":{"creator":"inita","name":"initb"}},
					{"code":"eosio","type":"newaccount","authorization":[{"account":"inita","permission":"active"}],
						"data":{"creator":"inita","newact":"initc"}},
					{"account":"eosio.token","name":"transfer","authorization":[],"data":"00ff"}]}}},
			{"status":"executed","trx":"t2"}]}`), &b))

	cb, created, err := Convert(&b)
	require.NoError(t, err)

	assert.Equal(t, store.Block{
		BlockNum:              7,
		BlockID:               "b7",
		PrevBlockID:           "b6",
		Timestamp:             time.Date(2018, 6, 1, 12, 0, 3, 500e6, time.UTC),
		TransactionMerkleRoot: "root",
		Producer:              "inita",
	}, cb.Block)

	require.Len(t, cb.Transactions, 2)
	assert.Equal(t, store.Transaction{
		TransactionID:  "t1",
		BlockID:        "b7",
		RefBlockNum:    6,
		RefBlockPrefix: 42,
		Scope:          []string{"eosio", "inita"},
		Expiration:     time.Date(2018, 6, 1, 12, 0, 33, 0, time.UTC),
		Signatures:     []string{"s1"},
	}, cb.Transactions[0])
	assert.Equal(t, store.Transaction{TransactionID: "t2", SequenceNum: 1, BlockID: "b7"}, cb.Transactions[1])

	require.Len(t, cb.Actions, 3)
	assert.Equal(t, 1, cb.Actions[1].ActionID)
	assert.Equal(t, "eosio", cb.Actions[1].Account)
	assert.Equal(t, "newaccount", cb.Actions[1].Name)
	assert.Equal(t, []store.Authorization{{Actor: "inita", Permission: "active"}}, cb.Actions[1].Authorization)
	assert.Equal(t, map[string]interface{}{"hex": "00ff"}, cb.Actions[2].Data)
	assert.Empty(t, cb.Actions[2].Authorization)

	assert.Equal(t, []string{"initb", "initc"}, created)

	b.Timestamp = "yesterday"
	_, _, err = Convert(&b)
	assert.ErrorIs(t, err, types.ErrBadTime)
}

func TestNewAccount(t *testing.T) {
	var a types.Account
	require.NoError(t, json.Unmarshal([]byte(`{"account_name":"inita","core_liquid_balance":"1000.0000 EOS",
		"total_resources":{"net_weight":"10.0000 EOS","cpu_weight":"5.5000 EOS"},
		"refund_request":{"net_amount":"0.5000 EOS","cpu_amount":"0.0001 EOS"}}`), &a))

	assert.Equal(t, store.Account{
		Name:             "inita",
		EOSBalance:       "1000.0000 EOS",
		StakedBalance:    "15.5000 EOS",
		UnstakingBalance: "0.5001 EOS",
	}, NewAccount(&a))

	assert.Equal(t, store.Account{Name: "initb"}, NewAccount(&types.Account{AccountName: "initb"}))
}

func TestAddAssets(t *testing.T) {
	tests := []struct {
		x, y, sum string
	}{
		{"1.0000 EOS", "2.0000 EOS", "3.0000 EOS"},
		{"0.0001 EOS", "0.0002 EOS", "0.0003 EOS"},
		{"1.5 EOS", "0.25 EOS", "1.75 EOS"},
		{"-1.0000 EOS", "0.5000 EOS", "-0.5000 EOS"},
		{"10 SYS", "5 SYS", "15 SYS"},
		{"1.0000 EOS", "2.0000 SYS", "1.0000 EOS"},
		{"", "2.0000 EOS", "2.0000 EOS"},
		{"1.0000 EOS", "junk", "1.0000 EOS"},
		{"", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.sum, addAssets(tt.x, tt.y), tt.x+" + "+tt.y)
	}
}
