// Package diag collects the diagnostics shown to the user, grouped by the
// pipeline item they belong to.
package diag

import (
	"fmt"
	"slices"
	"sync"
)

// Severity is the importance of a message.
type Severity uint8

// Severities.
const (
	Info Severity = iota
	Warning
	Error
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", s)
	}
}

// Message is one diagnostic.
type Message struct {
	Severity Severity
	Group    string
	Text     string
}

// String formats the message as "severity [group] text".
func (m Message) String() string {
	return fmt.Sprintf("%s [%s] %s", m.Severity, m.Group, m.Text)
}

// Sink receives diagnostics.
type Sink interface {
	Add(severity Severity, group, text string)
	ClearGroup(group string)
}

// Stack is an ordered, de-duplicated message list. Adding a message equal to
// one already present is a no-op, so repeated failures of the same item do
// not pile up.
//
// Stack is safe for concurrent use.
type Stack struct {
	mu       sync.Mutex
	messages []Message
}

var _ Sink = (*Stack)(nil)

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Add appends a message unless an identical one is present.
func (s *Stack) Add(severity Severity, group, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Message{Severity: severity, Group: group, Text: text}
	if slices.Contains(s.messages, m) {
		return
	}
	s.messages = append(s.messages, m)
}

// ClearGroup removes every message of group.
func (s *Stack) ClearGroup(group string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = slices.DeleteFunc(s.messages, func(m Message) bool { return m.Group == group })
}

// Clear removes all messages.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Messages returns a copy of all messages in insertion order.
func (s *Stack) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Group returns the messages of one group.
func (s *Stack) Group(group string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Message
	for _, m := range s.messages {
		if m.Group == group {
			out = append(out, m)
		}
	}
	return out
}

// HasErrors reports whether any Error message is present.
func (s *Stack) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.Severity == Error {
			return true
		}
	}
	return false
}

// Len returns the number of messages.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
