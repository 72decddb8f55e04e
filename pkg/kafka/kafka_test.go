package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/config"
)

func TestEncodeMessages(t *testing.T) {
	msgs, err := encodeMessages([]Event{
		{Key: "search", Value: map[string]int{"returned": 3}},
		{Key: "search_title", Value: []string{"berlin"}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("search"), msgs[0].Key)
	assert.JSONEq(t, `{"returned":3}`, string(msgs[0].Value))
	assert.JSONEq(t, `["berlin"]`, string(msgs[1].Value))
	assert.Equal(t, "content-type", msgs[1].Headers[0].Key)
}

func TestEncodeMessagesRejectsUnencodable(t *testing.T) {
	_, err := encodeMessages([]Event{{Key: "bad", Value: make(chan int)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Query string `json:"query"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"query":"zurich"}`))
	require.NoError(t, err)
	assert.Equal(t, "zurich", got.Query)

	_, err = DecodeJSON[payload]([]byte(`{`))
	assert.Error(t, err)
}

func TestNewProducerUsesSearchEventsTopic(t *testing.T) {
	p := NewProducer(config.KafkaConfig{
		Brokers: []string{"localhost:9092"},
		Topics:  config.KafkaTopics{SearchEvents: "events-test"},
	})
	defer p.Close()
	assert.Equal(t, "events-test", p.Topic())
	assert.NoError(t, p.PublishBatch(context.Background(), nil))
}
