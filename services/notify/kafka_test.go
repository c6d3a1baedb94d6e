package notifysvc

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaNotifier(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Kafka.Topic = "jamii.records"

	n := NewKafkaNotifier(conf, nil)
	writers := make(map[string]*fakeWriter)
	n.newWriter = func(topic string) messageWriter {
		w := new(fakeWriter)
		writers[topic] = w
		return w
	}

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	changes := []record.Change{
		{Table: "event", Op: record.Created, IDs: []string{"e1"}, Actor: "u1", At: at},
		{Table: "event", Op: record.Deleted, IDs: []string{"e1"}, At: at},
		{Table: "post", Op: record.Updated, IDs: []string{"p1", "p2"}, At: at},
	}
	for _, change := range changes {
		require.NoError(t, n.Notify(context.Background(), change))
	}

	// writers are created lazily, once per topic
	require.Len(t, writers, 2)
	require.Contains(t, writers, "jamii.records.event")
	require.Contains(t, writers, "jamii.records.post")
	assert.Len(t, writers["jamii.records.event"].msgs, 2)

	msg := writers["jamii.records.post"].msgs[0]
	assert.Equal(t, "post", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, []kafka.Header{{Key: "op", Value: []byte("updated")}}, msg.Headers)

	var got record.Change
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, changes[2], got)

	require.NoError(t, n.Close())
	for _, w := range writers {
		assert.True(t, w.closed)
	}
}
