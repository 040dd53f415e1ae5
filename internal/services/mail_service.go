package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"strings"

	"hackergrows/internal/config"
)

// Notifier reacts to account records that need an email.
type Notifier interface {
	NotifyVerification(email, link string)
	NotifyPasswordReset(email, link string)
}

var (
	verificationTmpl = template.Must(template.New("verify").Parse(
		`<p>Welcome to {{.Site}}.</p><p>Confirm your address by opening <a href="{{.Link}}">{{.Link}}</a>.</p>`))
	resetTmpl = template.Must(template.New("reset").Parse(
		`<p>Someone asked to reset the password of your {{.Site}} account.</p><p>If it was you, continue at <a href="{{.Link}}">{{.Link}}</a>. Otherwise ignore this mail.</p>`))
)

// MailService sends account mail over SMTP.
type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Site     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewNotifier returns an SMTP notifier when cfg is complete and a log-only
// one otherwise.
func NewNotifier(cfg config.SmtpConfig, site string) Notifier {
	if !cfg.Enabled() {
		log.Println("MailService disabled: missing SMTP settings, account mail goes to the log")
		return LogNotifier{}
	}
	return &MailService{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.User,
		Password: cfg.Pass,
		From:     cfg.From,
		Site:     site,
		send:     smtp.SendMail,
	}
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	go func() {
		if err := s.deliver(to, subject, body); err != nil {
			log.Printf("Failed to send email to %v: %v", to, err)
		} else {
			log.Printf("Email sent to %v: %s", to, subject)
		}
	}()
}

func (s *MailService) deliver(to []string, subject string, body string) error {
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: %s <%s>\r\n"+
		"Subject: %s\r\n"+
		"%s\r\n%s", strings.Join(to, ","), s.Site, s.From, subject, mime, body))

	return s.send(addr, auth, s.From, to, msg)
}

func (s *MailService) render(t *template.Template, link string) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, map[string]string{"Site": s.Site, "Link": link}); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func (s *MailService) NotifyVerification(email, link string) {
	body, err := s.render(verificationTmpl, link)
	if err != nil {
		log.Printf("Error rendering verification email: %v", err)
		return
	}
	s.sendAsync([]string{email}, "Please confirm your account on "+s.Site, body)
}

func (s *MailService) NotifyPasswordReset(email, link string) {
	body, err := s.render(resetTmpl, link)
	if err != nil {
		log.Printf("Error rendering reset email: %v", err)
		return
	}
	s.sendAsync([]string{email}, "Reset password for your account on "+s.Site, body)
}

// LogNotifier writes account links to the log instead of mailing them.
type LogNotifier struct{}

func (LogNotifier) NotifyVerification(email, link string) {
	log.Printf("verification for %s: %s", email, link)
}

func (LogNotifier) NotifyPasswordReset(email, link string) {
	log.Printf("password reset for %s: %s", email, link)
}
