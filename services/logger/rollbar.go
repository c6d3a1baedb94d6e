package logsvc

import (
	"context"
	"fmt"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/user"
)

// RollbarLogger writes every entry to std and reports it to Rollbar when a token is configured
// outside of debug and test mode.
type RollbarLogger struct {
	std    *log.Logger
	client *rollbar.Client
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.New(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "github.com/trezcool/jamii")
	client.SetStackTracer(errors.StackTracer)
	client.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return &RollbarLogger{std: std, client: client}
}

// Close waits for queued reports to be sent.
func (l *RollbarLogger) Close() {
	_ = l.client.Close()
}

// entry splits log args into what Rollbar understands: the first error, merged extras and the acting user.
type entry struct {
	err    error
	extras map[string]interface{}
	person *rollbar.Person
	rest   []interface{}
}

func newEntry(args []interface{}) entry {
	var e entry
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			if e.err == nil {
				e.err = a
				continue
			}
			e.rest = append(e.rest, a)
		case map[string]interface{}:
			if e.extras == nil {
				e.extras = make(map[string]interface{}, len(a))
			}
			for k, v := range a {
				e.extras[k] = v
			}
		case user.User:
			if e.person == nil {
				e.person = &rollbar.Person{Id: a.ID, Username: a.Username, Email: a.Email}
			}
		case *user.User:
			if a != nil && e.person == nil {
				e.person = &rollbar.Person{Id: a.ID, Username: a.Username, Email: a.Email}
			}
		default:
			e.rest = append(e.rest, a)
		}
	}
	if len(e.rest) > 0 {
		if e.extras == nil {
			e.extras = make(map[string]interface{})
		}
		e.extras["args"] = fmt.Sprint(e.rest...)
	}
	return e
}

func (l *RollbarLogger) log(level, msg string, args []interface{}) {
	e := newEntry(args)

	ctx := context.Background()
	if e.person != nil {
		ctx = rollbar.NewPersonContext(ctx, e.person)
	}
	if e.err != nil {
		extras := map[string]interface{}{"message": msg}
		for k, v := range e.extras {
			extras[k] = v
		}
		l.client.ErrorWithExtrasAndContext(ctx, level, e.err, extras)
	} else {
		l.client.MessageWithExtrasAndContext(ctx, level, msg, e.extras)
	}

	l.std.Printf("%s: %s", levelTags[level], msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

var levelTags = map[string]string{
	rollbar.DEBUG: "DEBUG",
	rollbar.INFO:  "INFO",
	rollbar.WARN:  "WARN",
	rollbar.ERR:   "ERROR",
	rollbar.CRIT:  "FATAL",
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	l.Close()
	l.std.Fatal(msg)
}
