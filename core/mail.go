package core

import (
	"bytes"
	"encoding/base64"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"log"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	appfs "github.com/trezcool/jamii/fs"
)

const emailTemplatesDir = "templates/email"

type (
	// mailTemplate holds both renditions of a named email; either may be nil.
	mailTemplate struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}

	mailTemplateSet struct {
		once   sync.Once
		byName map[string]*mailTemplate
	}

	Attachment struct {
		Content     *bytes.Buffer // base64
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // plain text, bypasses templates
		Attachments []Attachment

		TemplateName string // file name under templates/email without extension
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// ContextData is the dot value of every email template.
	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	EmailService interface {
		// SendMessages sends messages in the background; invalid messages are skipped.
		SendMessages(messages ...*EmailMessage)
	}
)

var mailTemplates mailTemplateSet

func (set *mailTemplateSet) lookup(name string, strict bool) *mailTemplate {
	set.once.Do(func() {
		byName, err := loadMailTemplates(appfs.FS, strict)
		if err != nil {
			log.Printf("core.loadMailTemplates: %v", err)
		}
		set.byName = byName
	})
	return set.byName[name]
}

// loadMailTemplates parses every templates/email/<name>.txt|.gohtml on top of the matching _base layout.
func loadMailTemplates(fsys fs.FS, strict bool) (map[string]*mailTemplate, error) {
	paths, err := fs.Glob(fsys, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		return nil, err
	}

	out := make(map[string]*mailTemplate)
	var failed []string
	for _, p := range paths {
		base := path.Base(p)
		if strings.HasPrefix(base, "_") {
			continue
		}
		ext := path.Ext(base)
		name := strings.TrimSuffix(base, ext)
		if out[name] == nil {
			out[name] = new(mailTemplate)
		}

		switch ext {
		case ".txt":
			t, err := texttmpl.ParseFS(fsys, path.Join(emailTemplatesDir, "_base.txt"), p)
			if err != nil {
				failed = append(failed, err.Error())
				continue
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			out[name].text = t
		case ".gohtml":
			t, err := htmltmpl.ParseFS(fsys, path.Join(emailTemplatesDir, "_base.gohtml"), p)
			if err != nil {
				failed = append(failed, err.Error())
				continue
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			out[name].html = t
		}
	}

	if len(failed) > 0 {
		return out, errors.New(strings.Join(failed, "; "))
	}
	return out, nil
}

// Render fills TextContent and HTMLContent from BodyStr or the named template.
func (m *EmailMessage) Render(conf *Config) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	tmpl := mailTemplates.lookup(m.TemplateName, conf.Debug || conf.TestMode)
	if tmpl == nil {
		return nil
	}
	data := ContextData{
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}

	var buf bytes.Buffer
	if tmpl.text != nil && m.BodyStr == "" {
		if err := tmpl.text.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
		}
		m.TextContent = buf.String()
		buf.Reset()
	}
	if tmpl.html != nil {
		if err := tmpl.html.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "rendering %s.gohtml", m.TemplateName)
		}
		m.HTMLContent = buf.String()
	}
	return nil
}

// Attach reads r fully and adds it as a base64 attachment.
// The content type is sniffed when ct is not given.
func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	contentType := mimetype.Detect(content).String()
	if len(ct) > 0 {
		contentType = ct[0]
	}
	encoded := base64.StdEncoding.EncodeToString(content)

	m.Attachments = append(m.Attachments, Attachment{
		Content:     bytes.NewBufferString(encoded),
		ContentType: contentType,
		Filename:    filename,
	})
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return m.TextContent != "" || m.HTMLContent != "" }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }
