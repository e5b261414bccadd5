package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	Roles          []string   `json:"roles,omitempty"`
	Email          string     `json:"email,omitempty"`
	Name           string     `json:"name,omitempty"`
	Audience       []string   `json:"audience,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetRoles() []string {
	if s.Roles == nil {
		return []string{}
	}
	return s.Roles
}

func (s *SessionObject) GetEmail() string {
	return s.Email
}

func (s *SessionObject) GetName() string {
	return s.Name
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

// HasRole checks role membership by exact name
func (s *SessionObject) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s roles=%v aud=%v iss=%s iat=%s",
		s.UserID,
		s.Roles,
		s.Audience,
		s.Issuer,
		issuedAt,
	)
}

// ProjectSession copies token claims onto the per-request session object.
// A nil claims argument returns the session untouched, same pointer; that is
// the unauthenticated pass-through, not an error.
func ProjectSession(claims *TokenClaims, session *SessionObject) *SessionObject {
	if claims == nil {
		return session
	}

	if session == nil {
		session = &SessionObject{}
	}

	session.UserID = claims.UserID()
	session.Roles = claims.RoleNames()
	session.Email = claims.UserEmail()
	session.Name = claims.DisplayName()

	return session
}

// sessionFromClaims creates a full SessionObject from validated token claims
func sessionFromClaims(claims *TokenClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	var audience []string
	for _, aud := range claims.RegisteredClaims.Audience {
		audience = append(audience, aud)
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	session := &SessionObject{
		Audience:       audience,
		Issuer:         claims.RegisteredClaims.Issuer,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}

	return ProjectSession(claims, session), nil
}

func parseUserUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}
