package notifysvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/record"
)

// LogNotifier logs changes at debug level. Used when no broker is configured.
type LogNotifier struct {
	logger core.Logger
}

var _ record.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger core.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, change record.Change) error {
	n.logger.Debug(fmt.Sprintf("%s %s: %s", change.Table, change.Op, strings.Join(change.IDs, ", ")))
	return nil
}

func (n *LogNotifier) Close() error { return nil }

// New returns a KafkaNotifier when brokers are configured, a LogNotifier otherwise.
func New(conf *core.Config, logger core.Logger) record.Notifier {
	if len(conf.Kafka.Brokers) > 0 {
		return NewKafkaNotifier(conf, logger)
	}
	return NewLogNotifier(logger)
}
