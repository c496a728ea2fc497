package auth

import (
	"fmt"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// Identity is the provider-side account a successful sign-up or sign-in
// resolves to.
type Identity struct {
	ID    string
	Email string
	Name  string
}

// TokenPair is the credential set returned by a password sign-in.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	UserID       string
}

// Client is the narrow slice of the auth provider this service needs. The
// production implementation is GoTrue; tests substitute fakes.
type Client interface {
	SignUp(email, password string) (*Identity, error)
	SignInWithPassword(email, password string) (*TokenPair, error)
	AuthorizeURL(provider string) (string, error)
	SignOut(accessToken string) error
	SendPasswordReset(email string) error
	SendEmailVerification(email string) error
	UpdatePassword(accessToken, password string) error
}

type gotrueClient struct {
	client gotrue.Client
}

// NewGoTrueClient wraps the Supabase GoTrue client behind the Client interface.
func NewGoTrueClient(client gotrue.Client) Client {
	return &gotrueClient{client: client}
}

func (g *gotrueClient) SignUp(email, password string) (*Identity, error) {
	resp, err := g.client.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}

	return &Identity{
		ID:    resp.ID.String(),
		Email: resp.Email,
	}, nil
}

func (g *gotrueClient) SignInWithPassword(email, password string) (*TokenPair, error) {
	resp, err := g.client.Token(types.TokenRequest{
		GrantType: "password",
		Email:     email,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	return &TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		UserID:       resp.User.ID.String(),
	}, nil
}

func (g *gotrueClient) AuthorizeURL(provider string) (string, error) {
	resp, err := g.client.Authorize(types.AuthorizeRequest{
		Provider: types.Provider(provider),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build authorization url: %w", err)
	}
	return resp.AuthorizationURL, nil
}

func (g *gotrueClient) SignOut(accessToken string) error {
	if err := g.client.WithToken(accessToken).Logout(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

func (g *gotrueClient) SendPasswordReset(email string) error {
	if err := g.client.Recover(types.RecoverRequest{Email: email}); err != nil {
		return fmt.Errorf("failed to send password reset: %w", err)
	}
	return nil
}

func (g *gotrueClient) SendEmailVerification(email string) error {
	// GoTrue delivers the verification mail through its OTP endpoint.
	if err := g.client.OTP(types.OTPRequest{Email: email}); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func (g *gotrueClient) UpdatePassword(accessToken, password string) error {
	_, err := g.client.WithToken(accessToken).UpdateUser(types.UpdateUserRequest{
		Password: &password,
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
