package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jamii/core"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf)
	to := []mail.Address{{Name: "Amani", Address: "amani@test.cd"}}

	plain := &core.EmailMessage{To: to, Subject: "Hello", BodyStr: "Water is back."}
	noRecipient := &core.EmailMessage{Subject: "Lost", BodyStr: "nobody"}
	noContent := &core.EmailMessage{To: to, Subject: "Empty"}
	welcome := &core.EmailMessage{
		To:           to,
		Subject:      "Welcome",
		TemplateName: "welcome",
		TemplateData: map[string]string{"Name": "Amani", "Username": "amani"},
	}

	attached := &core.EmailMessage{To: to, Subject: "Minutes"}
	require.NoError(t, attached.Attach(bytes.NewBufferString("minutes"), "minutes.txt"))

	svc.SendMessages(plain, noRecipient, noContent, welcome, attached)

	sent := svc.SentMessages()
	require.Len(t, sent, 3)
	assert.Equal(t, "Water is back.", sent[0].TextContent)
	assert.Equal(t, "Welcome", sent[1].Subject)
	assert.True(t, strings.Contains(sent[1].TextContent, "Amani"))
	assert.NotEmpty(t, sent[1].HTMLContent)
	assert.True(t, sent[2].HasAttachments())

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestJoinAddresses(t *testing.T) {
	got := joinAddresses([]mail.Address{{Address: "a@test.cd"}, {Name: "B", Address: "b@test.cd"}})
	assert.Equal(t, `<a@test.cd>, "B" <b@test.cd>`, got)
}
