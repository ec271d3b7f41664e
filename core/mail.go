package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"path"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/academia/fs"
)

var (
	htmlTemplates *htmltmpl.Template
	textTemplates *texttmpl.Template
	tmplInit      sync.Once
	tmplInitErr   error
)

type (
	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	// EmailMessage renders its TemplateName (if any) with TemplateContext
	// into HTMLContent and TextContent before sending.
	EmailMessage struct {
		To              []mail.Address
		Cc              []mail.Address
		Bcc             []mail.Address
		Subject         string
		TemplateName    string
		TemplateContext interface{}
		TextContent     string
		HTMLContent     string
		Attachments     []Attachment
	}

	// EmailService sends messages asynchronously; failures are logged, not returned.
	EmailService interface {
		SendMessages(messages ...*EmailMessage)
	}
)

func loadTemplates() error {
	tmplInit.Do(func() {
		htmlTemplates, tmplInitErr = htmltmpl.ParseFS(appfs.FS, "templates/email/*.html")
		if tmplInitErr != nil {
			return
		}
		textTemplates, tmplInitErr = texttmpl.ParseFS(appfs.FS, "templates/email/*.txt")
	})
	return tmplInitErr
}

// Render executes the message's templates and fills in TextContent and HTMLContent.
// It is a no-op for messages without a TemplateName.
func (m *EmailMessage) Render() error {
	if m.TemplateName == "" {
		return nil
	}
	if err := loadTemplates(); err != nil {
		return errors.Wrap(err, "loading email templates")
	}

	var txt bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&txt, m.TemplateName+".txt", m.TemplateContext); err != nil {
		return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
	}
	m.TextContent = txt.String()

	htmlName := m.TemplateName + ".html"
	if tmpl := htmlTemplates.Lookup(path.Base(htmlName)); tmpl != nil {
		var html bytes.Buffer
		if err := tmpl.Execute(&html, m.TemplateContext); err != nil {
			return errors.Wrapf(err, "rendering %s", htmlName)
		}
		m.HTMLContent = html.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool {
	return len(m.To) > 0 || len(m.Cc) > 0 || len(m.Bcc) > 0
}

func (m *EmailMessage) HasContent() bool {
	return m.TextContent != "" || m.HTMLContent != ""
}

func (m *EmailMessage) HasAttachments() bool {
	return len(m.Attachments) > 0
}
