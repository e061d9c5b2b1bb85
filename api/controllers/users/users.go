package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/commission-engine/api/responses"
	"github.com/angelmondragon/commission-engine/api/validators"
	"github.com/angelmondragon/commission-engine/internal/assets"
	"github.com/angelmondragon/commission-engine/internal/commission"
	"github.com/angelmondragon/commission-engine/internal/distributions"
	"github.com/angelmondragon/commission-engine/internal/upline"
	internalusers "github.com/angelmondragon/commission-engine/internal/users"
	"github.com/angelmondragon/commission-engine/pkg/db/models"
	pkgerrors "github.com/angelmondragon/commission-engine/pkg/errors"
	"github.com/angelmondragon/commission-engine/pkg/logger"
)

// Directory loads a member.
type Directory interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// AssetReader loads a member's balance.
type AssetReader interface {
	FindByUserID(ctx context.Context, userID int64) (*models.Asset, error)
}

// UplineResolver walks the referral chain.
type UplineResolver interface {
	ResolveChain(ctx context.Context, userID int64) ([]upline.Ancestor, error)
}

// UplineResponse lists a member's ancestors, nearest first.
type UplineResponse struct {
	User      *internalusers.UserDTO `json:"user"`
	Ancestors []upline.Ancestor      `json:"ancestors"`
}

// Distributions pages the credits a member received.
func Distributions(svc distributions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distribution service unavailable"))
			return
		}

		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForBeneficiary(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user distributions"))
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Summary returns per-level earnings for a member.
func Summary(svc distributions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "distribution service unavailable"))
			return
		}

		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.SummaryForBeneficiary(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize user distributions"))
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// Upline returns the ancestors that would be considered for a deposit by the member.
func Upline(dir Directory, resolver UplineResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dir == nil || resolver == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user directory unavailable"))
			return
		}

		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithUserID(r.Context(), userID)

		user, err := dir.FindByID(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, userLookupError(err))
			return
		}

		chain, err := resolver.ResolveChain(ctx, userID)
		if err != nil {
			if errors.Is(err, upline.ErrCycleDetected) || errors.Is(err, upline.ErrBrokenChain) {
				err = fmt.Errorf("%w: %w", commission.ErrDataIntegrity, err)
			}
			responses.WriteError(ctx, logg, w, commission.AsAPIError(err))
			return
		}
		responses.WriteSuccess(w, UplineResponse{User: internalusers.FromModel(user), Ancestors: chain})
	}
}

// Assets returns a member's balance. Members never credited report zero.
func Assets(dir Directory, reader AssetReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dir == nil || reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "asset store unavailable"))
			return
		}

		userID, err := validators.ParsePathID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := dir.FindByID(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, userLookupError(err))
			return
		}

		asset, err := reader.FindByUserID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assets"))
			return
		}
		responses.WriteSuccess(w, assets.FromModel(asset))
	}
}

func userLookupError(err error) error {
	if errors.Is(err, internalusers.ErrNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
