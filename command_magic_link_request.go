package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MagicLinkTTL is how long a requested link stays usable
var MagicLinkTTL = "15m"

type MagicLinkRequestMessage struct {
	Email      string `json:"email"`
	BaseURL    string `json:"base_url"`
	OnResponse func(*MagicLinkRequestResponse)
}

func (e MagicLinkRequestMessage) Type() string { return "auth.magic_link.request" }

// MagicLinkRequestResponse reports the outcome to the caller. Sent is true
// whenever the request was processed, whether or not a mail went out: an
// unknown email produces the same response as a known one, so the endpoint
// does not reveal which accounts exist.
type MagicLinkRequestResponse struct {
	Sent bool `json:"sent"`
}

type MagicLinkRequestHandler struct {
	repo   RepositoryManager
	mailer Mailer
	logger Logger
}

func NewMagicLinkRequestHandler(repo RepositoryManager, mailer Mailer, logger Logger) *MagicLinkRequestHandler {
	if mailer == nil {
		mailer = NewLoggerMailer(logger)
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &MagicLinkRequestHandler{
		repo:   repo,
		mailer: mailer,
		logger: logger,
	}
}

func (h *MagicLinkRequestHandler) Execute(ctx context.Context, event MagicLinkRequestMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during magic link request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *MagicLinkRequestHandler) execute(ctx context.Context, event MagicLinkRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	respond := func() {
		if event.OnResponse != nil {
			event.OnResponse(&MagicLinkRequestResponse{Sent: true})
		}
	}

	email := NormalizeEmail(event.Email)

	user, err := h.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// respond as if we sent the mail, unknown emails must be
			// indistinguishable from known ones
			h.logger.Info("magic link requested for unknown email, dropping")
			respond()
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up magic link user")
	}

	token, tokenHash, err := NewMagicLinkToken()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate magic link token")
	}

	ttl, err := time.ParseDuration(MagicLinkTTL)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invalid magic link ttl")
	}

	link := &MagicLink{
		ID:        uuid.New(),
		UserID:    &user.ID,
		Email:     email,
		TokenHash: tokenHash,
		Status:    MagicLinkRequestedStatus,
		ExpiresAt: time.Now().Add(ttl),
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := h.repo.MagicLinks().CreateTx(ctx, tx, link)
		return err
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist magic link")
	}

	mail := Mail{
		To:      email,
		Subject: "Your sign-in link",
		Body:    fmt.Sprintf("%s/auth/magic-link/%s", event.BaseURL, token),
	}

	if err := h.mailer.Send(ctx, mail); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to send magic link mail")
	}

	respond()
	return nil
}

// NewMagicLinkToken generates a single-use token and its storage hash. The
// raw token only ever travels in the mail; the database sees the SHA-256.
func NewMagicLinkToken() (token, tokenHash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}

	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, HashMagicLinkToken(token), nil
}

// HashMagicLinkToken is the storage hash for a raw magic link token
func HashMagicLinkToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
