package logsvc

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/user"
)

func TestNewEntry(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	usr := user.User{ID: "u1", Username: "amani", Email: "amani@test.cd"}

	e := newEntry([]interface{}{
		errA,
		map[string]interface{}{"table": "event"},
		&usr,
		errB,
		map[string]interface{}{"id": "42"},
		user.User{ID: "u2"},
		7,
	})

	assert.Equal(t, errA, e.err)
	assert.Equal(t, "u1", e.person.Id)
	assert.Equal(t, "amani", e.person.Username)
	assert.Equal(t, "event", e.extras["table"])
	assert.Equal(t, "42", e.extras["id"])
	assert.Equal(t, []interface{}{errB, 7}, e.rest)
	assert.Contains(t, e.extras["args"], "b")

	empty := newEntry(nil)
	assert.Nil(t, empty.err)
	assert.Nil(t, empty.person)
	assert.Nil(t, empty.extras)
}

func TestRollbarLogger_WritesToStd(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), core.NewTestConfig())
	defer logger.Close()

	logger.Warn("disk almost full", map[string]interface{}{"free": "2%"})
	logger.Error("upload failed", errors.New("boom"))

	out := buf.String()
	assert.True(t, strings.Contains(out, "WARN: disk almost full"))
	assert.True(t, strings.Contains(out, "ERROR: upload failed"))
	assert.True(t, strings.Contains(out, "boom"))
}
