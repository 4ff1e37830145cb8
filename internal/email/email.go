package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boutique/internal/checkout"
	"boutique/internal/config"
	"boutique/internal/logger"
	"boutique/internal/models"

	"github.com/mailgun/mailgun-go/v5"
)

var ErrDisabled = errors.New("email service is not configured")

type Service struct {
	client      mailgun.Mailgun
	domain      string
	senderEmail string
	senderName  string
	enabled     bool
}

func NewService(cfg *config.Config) *Service {
	enabled := cfg.MailgunDomain != "" && cfg.MailgunAPIKey != ""

	var client mailgun.Mailgun
	if enabled {
		client = mailgun.NewMailgun(cfg.MailgunAPIKey)
	}

	return &Service{
		client:      client,
		domain:      cfg.MailgunDomain,
		senderEmail: cfg.MailgunSenderEmail,
		senderName:  cfg.MailgunSenderName,
		enabled:     enabled,
	}
}

func (s *Service) IsEnabled() bool {
	return s.enabled
}

// SendOrderConfirmation mails the receipt of a paid order. summary may be
// nil when the checkout was summarized by an earlier process; the mail
// then carries the order number only.
func (s *Service) SendOrderConfirmation(user *models.User, orderID int, summary *checkout.Summary) error {
	if !s.enabled {
		return ErrDisabled
	}

	data := newConfirmation(user, orderID, summary)
	htmlBody, err := renderConfirmationHTML(data)
	if err != nil {
		return err
	}

	message := mailgun.NewMessage(
		s.domain,
		fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail),
		fmt.Sprintf("Confirmation de votre commande n°%d", orderID),
		renderConfirmationText(data),
		user.Email,
	)
	message.SetHTML(htmlBody)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send order confirmation to %s: %w", user.Email, err)
	}

	logger.Info("Order confirmation sent", "email", user.Email, "order_id", orderID, "message_id", resp)
	return nil
}
