package contracts

import "context"

// Verifier is the external OTP collaborator backing the auth surface.
type Verifier interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (bool, error)
}
