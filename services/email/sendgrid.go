package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/jamii/core"
)

type sendgridService struct {
	conf   *core.Config
	logger core.Logger
	client interface {
		Send(email *sgmail.SGMailV3) (*rest.Response, error)
	}
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return &sendgridService{
		conf:   conf,
		logger: logger,
		client: sendgrid.NewSendClient(conf.SendgridApiKey),
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.deliver(msg)
	}
}

func (svc *sendgridService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(svc.conf); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.Subject, err), err)
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}

	res, err := svc.client.Send(newSGMail(svc.conf, *msg))
	switch {
	case err != nil:
		svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.Subject, err), err)
	case res.StatusCode >= http.StatusBadRequest:
		svc.logger.Error(fmt.Sprintf("sending email %q: status %d: %s", msg.Subject, res.StatusCode, res.Body))
	}
}

// newSGMail builds the v3 payload for msg, tagged with the app name as category.
func newSGMail(conf *core.Config, msg core.EmailMessage) *sgmail.SGMailV3 {
	convert := func(addrs []mail.Address) []*sgmail.Email {
		out := make([]*sgmail.Email, 0, len(addrs))
		for _, a := range addrs {
			out = append(out, sgmail.NewEmail(a.Name, a.Address))
		}
		return out
	}

	p := sgmail.NewPersonalization()
	p.Subject = "[" + conf.AppName + "] " + msg.Subject
	p.AddTos(convert(msg.To)...)
	p.AddCCs(convert(msg.Cc)...)
	p.AddBCCs(convert(msg.Bcc)...)

	m := sgmail.NewV3Mail().
		SetFrom(sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address)).
		AddPersonalizations(p).
		AddCategories(conf.AppName)

	if msg.TextContent != "" || msg.HTMLContent == "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	for _, at := range msg.Attachments {
		m.AddAttachment(sgmail.NewAttachment().
			SetContent(at.Content.String()).
			SetType(at.ContentType).
			SetFilename(at.Filename).
			SetDisposition("attachment"))
	}
	return m
}
