package todos

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Client-facing messages
const (
	MsgTitleRequired      = "Todo title is required"
	MsgTitleTooLong       = "Todo title cannot exceed 100 characters"
	MsgDescriptionTooLong = "Todo description cannot exceed 500 characters"
	MsgInvalidStatus      = "Status must be one of: new, inprogress, completed"
	MsgNotFound           = "Todo not found"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 500
)

// ErrNotFound is returned when no todo matches the id for the owner
var ErrNotFound = errors.New(MsgNotFound)

// ValidationError is a client input error. Message is safe to return to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// CreateInput holds the fields of a new todo
type CreateInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      *Status `json:"status"`
}

// UpdateInput holds the fields of an update. Absent fields are left unchanged.
type UpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *Status `json:"status"`
}

func validateTitle(title string) error {
	if title == "" {
		return invalid(MsgTitleRequired)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return invalid(MsgTitleTooLong)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return invalid(MsgDescriptionTooLong)
	}
	return nil
}

// validateStatus accepts an absent or empty status and rejects anything outside the enum
func validateStatus(s *Status) error {
	if s == nil || *s == "" {
		return nil
	}
	if !s.Valid() {
		return invalid(MsgInvalidStatus)
	}
	return nil
}

func (in CreateInput) normalize() CreateInput {
	out := CreateInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Status:      in.Status,
	}
	return out
}

func (in CreateInput) validate() error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if err := validateStatus(in.Status); err != nil {
		return err
	}
	return validateDescription(in.Description)
}

func (in UpdateInput) normalize() UpdateInput {
	out := in
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		out.Title = &t
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		out.Description = &d
	}
	return out
}

func (in UpdateInput) validate() error {
	if err := validateStatus(in.Status); err != nil {
		return err
	}
	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return err
		}
	}
	if in.Description != nil {
		return validateDescription(*in.Description)
	}
	return nil
}
