package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permitcheck/internal/platform/kafka/producer"
)

type recordingProducer struct {
	msgs []*producer.Message
	err  error
}

func (p *recordingProducer) Produce(_ context.Context, msg *producer.Message) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestKafkaStore_PublishesJSONKeyedBySession(t *testing.T) {
	p := &recordingProducer{}
	store := NewKafkaStore(p, "permitcheck.audit")

	event := Event{
		Timestamp:     time.Date(2026, 3, 1, 10, 30, 15, 0, time.UTC),
		Action:        string(EventResponseReceived),
		SessionID:     "session-1",
		CorrelationID: "corr-1",
		RequestID:     "req-2",
		Outcome:       "succeeded",
		Attempts:      2,
	}
	require.NoError(t, store.Append(context.Background(), event))

	require.Len(t, p.msgs, 1)
	msg := p.msgs[0]
	assert.Equal(t, "permitcheck.audit", msg.Topic)
	assert.Equal(t, []byte("session-1"), msg.Key)
	assert.Equal(t, string(EventResponseReceived), msg.Headers["event_type"])
	assert.Equal(t, "permitcheck", msg.Headers["source"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "DL_RESPONSE_RECEIVED", decoded["action"])
	assert.Equal(t, "corr-1", decoded["correlationId"])
	assert.Equal(t, float64(2), decoded["attempts"])
	assert.NotContains(t, decoded, "subject")
}

func TestKafkaStore_WrapsProducerError(t *testing.T) {
	boom := errors.New("broker unavailable")
	store := NewKafkaStore(&recordingProducer{err: boom}, "permitcheck.audit")

	err := store.Append(context.Background(), Event{Action: string(EventVCIssued)})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "DL_VC_ISSUED")
}
