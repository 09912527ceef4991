// config_test.go tests config files
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileToTest is a relative path to the configuration file to test (ie. eosapi/cmd/conf.json)
var fileToTest = "../../cmd/conf.json"

// TestConfig extracts config from a file and checks values loaded
func TestConfig(t *testing.T) {
	conf, err := ExtractConfiguration(fileToTest)
	require.NoError(t, err)

	assert.Equal(t, "3030", conf.Port)
	assert.Equal(t, "postgresql", conf.ReqDbType)
	assert.Equal(t, 15*time.Second, conf.QueryTimeout)
	// not in the file
	assert.Equal(t, 8760*time.Hour, conf.APIKeyExpiration)

	require.Len(t, conf.Chains, 2)
	assert.Equal(t, ChainConfig{Name: "eos", Node: "http://localhost:8888", StartBlock: 1, MaxBlocks: 16,
		Poll: 500 * time.Millisecond}, conf.Chains[0])
	assert.Equal(t, "http://jungle.local:8888", conf.Chains[1].Node)
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("EOSAPI_PORT", "8080")
	t.Setenv("EOSAPI_QUERYTIMEOUT", "2s")
	t.Setenv("EOSAPI_NODEURI", "http://node:8888")
	t.Setenv("EOSAPI_CHAINS", `[{"name":"local","maxBlocks":4,"startBlock":10,"poll":"2s"}]`)

	conf, err := ExtractConfiguration(fileToTest)
	require.NoError(t, err)

	assert.Equal(t, "8080", conf.Port)
	assert.Equal(t, 2*time.Second, conf.QueryTimeout)
	assert.Equal(t, []ChainConfig{{Name: "local", Node: "http://node:8888", StartBlock: 10, MaxBlocks: 4, Poll: 2 * time.Second}}, conf.Chains)

	t.Setenv("EOSAPI_CHAINS", "not json")
	_, err = ExtractConfiguration("")
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	conf, err := ExtractConfiguration("")
	require.NoError(t, err)

	assert.Equal(t, "mongodb", conf.DbType)
	assert.Equal(t, "eos", conf.DbName)
	assert.Equal(t, 10*time.Second, conf.NodeTimeout)
	assert.ErrorIs(t, conf.Validate(), ErrWeakSecret)

	conf.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, conf.Validate())

	_, err = ExtractConfiguration("does-not-exist.json")
	assert.Error(t, err)
}
