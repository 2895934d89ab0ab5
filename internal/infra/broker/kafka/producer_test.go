package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSendsKeyedMessageWithHeaders(t *testing.T) {
	sync := mocks.NewSyncProducer(t, nil)
	sync.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "booking.events.v1", msg.Topic)
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "b1", string(key))
		require.Len(t, msg.Headers, 2)
		assert.Equal(t, "ce-type", string(msg.Headers[0].Key))
		assert.Equal(t, "content-type", string(msg.Headers[1].Key))
		return nil
	})

	p := newProducerWith(sync)
	err := p.Publish(context.Background(), "booking.events.v1", "b1", []byte(`{}`), map[string]string{
		"content-type": "application/cloudevents+json",
		"ce-type":      "booking.created.v1",
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	sync := mocks.NewSyncProducer(t, nil)
	p := newProducerWith(sync)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
	require.NoError(t, p.Close())
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(Config{})
	assert.Error(t, err)
}
