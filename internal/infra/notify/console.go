package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"learnhub/internal/domain/notify"
)

// ErrBadPhoneNumber is returned for recipient addresses that are not a
// WhatsApp-style number: "+" followed by digits (spaces allowed).
var ErrBadPhoneNumber = fmt.Errorf("recipient must be a phone number with country code, e.g. +1234567890")

// ConsoleNotifier writes messages to the log instead of a real channel. It is
// the development stand-in for the WhatsApp transport and validates the same
// phone-number address shape.
type ConsoleNotifier struct {
	log *logrus.Entry
}

var _ notify.Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(log *logrus.Entry) *ConsoleNotifier {
	return &ConsoleNotifier{log: log.WithField("channel", "console")}
}

func (n *ConsoleNotifier) Send(_ context.Context, address, text string) error {
	n.log.WithFields(logrus.Fields{
		"to":    address,
		"bytes": len(text),
	}).Infof("message: %s", text)
	return nil
}

func (n *ConsoleNotifier) ValidateAddress(address string) error {
	return ValidatePhone(address)
}

// ValidatePhone checks the WhatsApp recipient shape: leading "+", then
// digits, with spaces tolerated.
func ValidatePhone(address string) error {
	if !strings.HasPrefix(address, "+") {
		return ErrBadPhoneNumber
	}
	digits := strings.ReplaceAll(address[1:], " ", "")
	if digits == "" {
		return ErrBadPhoneNumber
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return ErrBadPhoneNumber
		}
	}
	return nil
}
