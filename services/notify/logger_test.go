package notifysvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

type debugLogger struct {
	core.Logger
	lines []string
}

func (l *debugLogger) Debug(msg string, _ ...interface{}) { l.lines = append(l.lines, msg) }

func TestLogNotifier(t *testing.T) {
	logger := new(debugLogger)
	n := NewLogNotifier(logger)

	err := n.Notify(context.Background(), record.Change{Table: "event", Op: record.Deleted, IDs: []string{"1", "2"}})
	assert.NoError(t, err)
	assert.Equal(t, []string{"event deleted: 1, 2"}, logger.lines)
	assert.NoError(t, n.Close())
}

func TestNew(t *testing.T) {
	conf := core.NewTestConfig()
	assert.IsType(t, &LogNotifier{}, New(conf, new(debugLogger)))

	conf.Kafka.Brokers = []string{"localhost:9092"}
	n := New(conf, new(debugLogger))
	defer n.Close()
	assert.IsType(t, &KafkaNotifier{}, n)
}
