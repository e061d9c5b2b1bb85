package commission

import (
	"errors"

	"github.com/angelmondragon/commission-engine/internal/rates"
	"github.com/angelmondragon/commission-engine/internal/upline"
	pkgerrors "github.com/angelmondragon/commission-engine/pkg/errors"
)

var (
	ErrInvalidEvent           = errors.New("invalid deposit event")
	ErrConfiguration          = rates.ErrConfiguration
	ErrCycleDetected          = upline.ErrCycleDetected
	ErrDataIntegrity          = errors.New("referral data integrity violation")
	ErrResolutionTimeout      = upline.ErrResolutionTimeout
	ErrConcurrentDistribution = errors.New("deposit is being distributed concurrently")
	ErrPersistence            = errors.New("distribution persistence failed")
	ErrNotDistributed         = errors.New("deposit has not been distributed")
)

// AsAPIError maps engine failures onto the platform error codes.
func AsAPIError(err error) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}

	switch {
	case errors.Is(err, ErrInvalidEvent):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	case errors.Is(err, ErrConfiguration):
		return pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "commission rate table incomplete")
	case errors.Is(err, ErrDataIntegrity):
		return pkgerrors.Wrap(pkgerrors.CodeDataIntegrity, err, "referral chain is corrupt").WithDetails(map[string]any{"reason": err.Error()})
	case errors.Is(err, ErrConcurrentDistribution):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "deposit distribution already in progress")
	case errors.Is(err, ErrResolutionTimeout):
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "upline resolution timed out")
	case errors.Is(err, ErrNotDistributed):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "deposit has not been distributed")
	case errors.Is(err, ErrPersistence):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "distribution storage unavailable")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "distribution failed")
	}
}

// IsRetryable reports whether running the same deposit again can succeed.
// A concurrent run counts as retryable since the other run decides the outcome.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrConcurrentDistribution) {
		return true
	}
	return pkgerrors.As(AsAPIError(err)).Retryable()
}
