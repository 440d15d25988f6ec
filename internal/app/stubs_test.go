package app

import (
	"context"
	"fmt"
	"sync"
)

type sentMessage struct {
	Address string
	Text    string
}

// stubNotifier records sends and fails on demand.
type stubNotifier struct {
	mu          sync.Mutex
	sent        []sentMessage
	failWhen    func(text string) bool
	validateErr error
}

func (n *stubNotifier) Send(_ context.Context, address, text string) error {
	if n.failWhen != nil && n.failWhen(text) {
		return fmt.Errorf("stub notifier refused message")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{Address: address, Text: text})
	return nil
}

func (n *stubNotifier) ValidateAddress(string) error {
	return n.validateErr
}

func (n *stubNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentMessage, len(n.sent))
	copy(out, n.sent)
	return out
}

// stubContent returns canned lesson text or an error.
type stubContent struct {
	text string
	err  error
}

func (c *stubContent) Generate(_ context.Context, courseName string, lessonIndex, totalLessons int) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if c.text != "" {
		return c.text, nil
	}
	return fmt.Sprintf("%s lesson %d of %d", courseName, lessonIndex, totalLessons), nil
}
