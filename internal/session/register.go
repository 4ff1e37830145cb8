package session

import (
	"errors"
	"regexp"
	"strings"
)

const minPasswordLength = 6

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	ErrLoginAfterRegister = errors.New("account created but automatic login failed")
)

type RegisterInput struct {
	Firstname       string `json:"firstname"`
	Lastname        string `json:"lastname"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ValidationError is a form error meant to be shown as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (in *RegisterInput) Validate() error {
	in.Firstname = strings.TrimSpace(in.Firstname)
	in.Lastname = strings.TrimSpace(in.Lastname)
	in.Email = strings.TrimSpace(in.Email)

	if in.Firstname == "" || in.Lastname == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return &ValidationError{Field: "general", Message: "Tous les champs sont requis"}
	}
	if !emailRegex.MatchString(in.Email) {
		return &ValidationError{Field: "email", Message: "Adresse email invalide"}
	}
	if len(in.Password) < minPasswordLength {
		return &ValidationError{Field: "password", Message: "Le mot de passe doit contenir au moins 6 caractères"}
	}
	if in.Password != in.ConfirmPassword {
		return &ValidationError{Field: "confirmPassword", Message: "Les mots de passe ne correspondent pas"}
	}
	return nil
}
