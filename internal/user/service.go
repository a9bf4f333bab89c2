package user

import (
	"context"
	"errors"

	"github.com/wichananm65/storefront/internal/form"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Authenticator performs the remote login call.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type Service struct {
	pipeline *Pipeline
	auth     Authenticator
}

func NewService(pipeline *Pipeline, auth Authenticator) *Service {
	return &Service{pipeline: pipeline, auth: auth}
}

func (s *Service) Register(ctx context.Context, formID string, r Registration) (Outcome, error) {
	return s.pipeline.Submit(ctx, formID, r)
}

// Login validates creds and exchanges them for a session token. Field
// errors are returned without contacting the remote API.
func (s *Service) Login(ctx context.Context, creds Credentials) (string, form.Errors, error) {
	if errs := CredentialsSchema.Validate(creds.Values()); len(errs) > 0 {
		return "", errs, nil
	}
	token, err := s.auth.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return "", nil, errors.Join(ErrInvalidCredentials, err)
	}
	return token, nil, nil
}
