package notifications

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
)

// EmailProvider delivers alerts through an SMTP submission relay.
type EmailProvider struct {
	Server    string
	Port      int
	User      string
	Password  string
	Recipient string
}

func NewEmailProvider(server string, port int, user, password, recipient string) *EmailProvider {
	if port == 0 {
		port = 587
	}
	return &EmailProvider{
		Server:    server,
		Port:      port,
		User:      user,
		Password:  password,
		Recipient: recipient,
	}
}

func (p *EmailProvider) Name() string {
	return "Email"
}

func (p *EmailProvider) Send(a Alert) error {
	if p.Server == "" || p.Recipient == "" {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", p.Server, p.Port)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Quit()

	// STARTTLS is mandatory on 587 so credentials never travel in plain
	// text; on 25 it stays opportunistic.
	if p.Port == 587 || p.Port == 25 {
		config := &tls.Config{ServerName: p.Server}
		if err = client.StartTLS(config); err != nil {
			if p.Port == 587 {
				return fmt.Errorf("failed to execute StartTLS: %w", err)
			}
		}
	}

	if p.User != "" && p.Password != "" {
		auth := smtp.PlainAuth("", p.User, p.Password, p.Server)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	// Subject line encodes severity and the alerted subject's name.
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: [%s] %s: %s\r\n"+
		"\r\n"+
		"%s\r\n", p.Recipient, a.Severity(), a.SubjectName, a.Kind, a.Message))

	if err = client.Mail(p.User); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(p.Recipient); err != nil {
		return fmt.Errorf("failed to add recipient %s: %w", p.Recipient, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return nil
}
