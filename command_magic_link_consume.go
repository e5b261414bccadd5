package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type MagicLinkConsumeMessage struct {
	Token      string `json:"token"`
	OnResponse func(*MagicLinkConsumeResponse)
}

func (e MagicLinkConsumeMessage) Type() string { return "auth.magic_link.consume" }

type MagicLinkConsumeResponse struct {
	User *User `json:"user"`
}

type MagicLinkConsumeHandler struct {
	repo RepositoryManager
}

func NewMagicLinkConsumeHandler(repo RepositoryManager) *MagicLinkConsumeHandler {
	return &MagicLinkConsumeHandler{repo: repo}
}

func (h *MagicLinkConsumeHandler) Execute(ctx context.Context, event MagicLinkConsumeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during magic link consumption",
		)
	default:
		return h.execute(ctx, event)
	}
}

// execute burns the link and resolves its user. Unknown, expired, and
// already-consumed tokens all fail with the same ErrInvalidCredentials; the
// caller cannot distinguish which.
func (h *MagicLinkConsumeHandler) execute(ctx context.Context, event MagicLinkConsumeMessage) error {
	if event.Token == "" {
		return ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	tokenHash := HashMagicLinkToken(event.Token)
	var user *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		link, err := h.repo.MagicLinks().GetByIdentifierTx(ctx, tx, tokenHash)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrInvalidCredentials
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up magic link")
		}

		if !link.Usable(time.Now()) {
			return ErrInvalidCredentials
		}

		now := time.Now()
		link.Status = MagicLinkConsumedStatus
		link.ConsumedAt = &now

		if _, err := h.repo.MagicLinks().UpdateTx(ctx, tx, link, repository.UpdateByID(link.ID.String())); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to burn magic link")
		}

		user, err = h.repo.Users().GetByEmailTx(ctx, tx, link.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrInvalidCredentials
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve magic link user")
		}

		return nil
	})

	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&MagicLinkConsumeResponse{User: user})
	}

	return nil
}
