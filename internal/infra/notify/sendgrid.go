package notify

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"learnhub/internal/domain/notify"
)

// ErrBadEmailAddress is returned for recipient addresses that do not parse
// as an email address.
var ErrBadEmailAddress = fmt.Errorf("recipient must be a valid email address")

const emailSubject = "Your LearnHub lesson"

// SendGridNotifier delivers lessons over email through the SendGrid API.
type SendGridNotifier struct {
	client *sendgrid.Client
	from   *sgmail.Email
	log    *logrus.Entry
}

var _ notify.Notifier = (*SendGridNotifier)(nil)

func NewSendGridNotifier(apiKey, fromEmail string, log *logrus.Entry) *SendGridNotifier {
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail("LearnHub", fromEmail),
		log:    log.WithField("channel", "email"),
	}
}

func (n *SendGridNotifier) Send(ctx context.Context, address, text string) error {
	msg := sgmail.NewSingleEmail(n.from, emailSubject, sgmail.NewEmail("", address), text, "")
	resp, err := n.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		n.log.WithFields(logrus.Fields{
			"to":     address,
			"status": resp.StatusCode,
		}).Warn("SendGrid rejected message")
		return fmt.Errorf("sendgrid send failed with status %d", resp.StatusCode)
	}
	return nil
}

func (n *SendGridNotifier) ValidateAddress(address string) error {
	if _, err := mail.ParseAddress(address); err != nil {
		return ErrBadEmailAddress
	}
	return nil
}
