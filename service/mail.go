package service

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/jordan-wright/email"

	"renochat/lib"
	"renochat/model"
)

// MailService exports conversation transcripts over SMTP.
type MailService struct{}

// SendTranscript mails the rendered transcript of one conversation to the
// given address.
func (m *MailService) SendTranscript(conversation *model.Conversation, recipient string) error {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return fmt.Errorf("smtp is not configured")
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	user := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("EXPORT_FROM")
	if from == "" {
		from = user
	}

	body := Transcript(conversation)
	html, err := lib.RenderMarkdown(body)
	if err != nil {
		return fmt.Errorf("failed to render transcript: %w", err)
	}

	title := conversation.Title
	if title == "" {
		title = conversation.ID
	}

	e := email.NewEmail()
	e.From = from
	e.To = []string{recipient}
	e.Subject = "Conversación: " + title
	e.Text = []byte(body)
	e.HTML = []byte(html)

	addr := host + ":" + port
	if err := e.Send(addr, smtp.PlainAuth("", user, password, host)); err != nil {
		return fmt.Errorf("failed to send transcript: %w", err)
	}
	logger.Infof("[mail] transcript of conversation %s sent to %s", conversation.ID, recipient)
	return nil
}

// Transcript renders a conversation thread as markdown.
func Transcript(conversation *model.Conversation) string {
	var b strings.Builder
	if conversation.Title != "" {
		b.WriteString("# " + conversation.Title + "\n\n")
	}
	for _, msg := range conversation.Messages {
		speaker := "Asistente"
		if msg.IsUser {
			speaker = conversation.Employee.FullName
			if speaker == "" {
				speaker = "Tú"
			}
		}
		b.WriteString(fmt.Sprintf("**%s** (%s):\n\n%s\n\n",
			speaker, msg.Timestamp.Format("2006-01-02 15:04"), msg.Content))
		if msg.HasFile && msg.File != nil {
			b.WriteString(fmt.Sprintf("_Adjunto: %s (%d bytes)_\n\n", msg.File.Name, msg.File.Size))
		}
	}
	return b.String()
}
