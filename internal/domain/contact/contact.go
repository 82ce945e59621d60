package contact

import (
	"context"
	"fmt"
	"strings"
)

// Message is a customer enquiry relayed to the shop.
type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// MissingFieldError indicates a required field was left blank.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Validate checks that every field is filled in.
func (m Message) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"name", m.Name},
		{"email", m.Email},
		{"message", m.Message},
	} {
		if strings.TrimSpace(f.value) == "" {
			return &MissingFieldError{Field: f.name}
		}
	}
	return nil
}

// Sender delivers contact messages.
type Sender interface {
	SendContact(ctx context.Context, m Message) error
}
