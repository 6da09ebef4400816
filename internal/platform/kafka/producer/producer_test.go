package producer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresBrokers(t *testing.T) {
	_, err := New(Config{Brokers: " , "}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brokers not configured")
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, splitBrokers(""))
}

func TestProduceAfterClose(t *testing.T) {
	p, err := New(DefaultConfig("127.0.0.1:1"), nil)
	require.NoError(t, err)

	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()), "close is idempotent")

	err = p.Produce(context.Background(), &Message{Topic: "vcregistry.audit", Value: []byte("{}")})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Health(context.Background()), ErrClosed)
}
