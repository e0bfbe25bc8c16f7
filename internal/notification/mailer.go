package notification

import (
	"context"
	"fmt"
	"net/smtp"

	"eventless/internal/config"
	"eventless/internal/logger"
)

// SMTPMailer sends ticket confirmations over plain SMTP with AUTH.
type SMTPMailer struct {
	cfg    config.EmailConfig
	logger *logger.Logger
	// send is swapped out in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.EmailConfig, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: log, send: smtp.SendMail}
}

func (m *SMTPMailer) SendTicketConfirmation(ctx context.Context, msg TicketConfirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your tickets for %s\r\n\r\n",
		m.cfg.FromAddress, msg.Recipient, msg.EventTitle)
	body := []byte(headers + confirmationBody(msg))

	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort
	auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)

	if err := m.send(addr, auth, m.cfg.FromAddress, []string{msg.Recipient}, body); err != nil {
		m.logger.Error("EMAIL", fmt.Sprintf("Failed to send confirmation to %s: %v", msg.Recipient, err))
		return err
	}

	m.logger.Info("EMAIL", fmt.Sprintf("Confirmation sent to %s for %s", msg.Recipient, msg.EventTitle))
	return nil
}
