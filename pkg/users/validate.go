package users

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Client-facing messages
const (
	MsgMissingRegisterFields = "Please provide fullname, email, phone number, and password"
	MsgMissingLoginFields    = "Please provide phone number and password"
	MsgInvalidFullname       = "Full name must be between 2 and 50 characters"
	MsgInvalidPhone          = "Phone number must be between 10 and 15 characters"
	MsgInvalidPassword       = "Password must be at least 6 characters"
	MsgPasswordTooLong       = "Password must be at most 72 bytes"
	MsgInvalidEmail          = "Please provide a valid email address"
	MsgDuplicateIdentity     = "User with this email or phone number already exists"
	MsgInvalidCredentials    = "Invalid phone number or password"
)

const (
	minFullnameLen = 2
	maxFullnameLen = 50
	minPhoneLen    = 10
	maxPhoneLen    = 15
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt input limit, in bytes
)

var (
	// ErrDuplicateIdentity is returned when the email or phone is already registered
	ErrDuplicateIdentity = errors.New(MsgDuplicateIdentity)
	// ErrInvalidCredentials is returned for an unknown phone and for a wrong password alike
	ErrInvalidCredentials = errors.New(MsgInvalidCredentials)
	// ErrUserNotFound is returned by Resolve when the user no longer exists
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreNotReady is returned once input has been accepted but the store
	// has no live connection. It also matches storage.ErrUnavailable.
	ErrStoreNotReady = errors.New("store not ready")
)

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

// RegisterInput holds registration fields as received
type RegisterInput struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// normalize trims all identity fields and lowercases the email.
// The password is kept verbatim.
func (in RegisterInput) normalize() RegisterInput {
	return RegisterInput{
		Fullname: strings.TrimSpace(in.Fullname),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:    strings.TrimSpace(in.Phone),
		Password: in.Password,
	}
}

func (in RegisterInput) validate() error {
	if in.Fullname == "" || in.Email == "" || in.Phone == "" || in.Password == "" {
		return invalid(MsgMissingRegisterFields)
	}
	if n := utf8.RuneCountInString(in.Fullname); n < minFullnameLen || n > maxFullnameLen {
		return invalid(MsgInvalidFullname)
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return invalid(MsgInvalidEmail)
	}
	if n := utf8.RuneCountInString(in.Phone); n < minPhoneLen || n > maxPhoneLen {
		return invalid(MsgInvalidPhone)
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLen {
		return invalid(MsgInvalidPassword)
	}
	if len(in.Password) > maxPasswordLen {
		return invalid(MsgPasswordTooLong)
	}
	return nil
}

// LoginInput holds login fields as received
type LoginInput struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}
