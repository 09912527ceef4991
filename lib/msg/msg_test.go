package msg

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogBroker(t *testing.T) {
	var buf bytes.Buffer

	b := LogBroker{Log: slog.New(slog.NewTextHandler(&buf, nil))}
	require.NoError(t, b.Setup())
	require.NoError(t, b.Publish(context.Background(), MAIL, "mail.reset", Mail{To: "a@b.c", Subject: "reset"}))
	assert.Contains(t, buf.String(), "exchange=mail")
	assert.Contains(t, buf.String(), `a@b.c`)

	assert.Error(t, b.Publish(context.Background(), MAIL, "bad", make(chan int)))
	assert.NoError(t, b.Close())
}

func TestBlockKey(t *testing.T) {
	assert.Equal(t, "chain.block.42", BlockKey(42))
}
