package service

import (
	"context"
	stderrors "errors"

	"github.com/cinemood/cinemood-server/internal/errors"
	"github.com/cinemood/cinemood-server/internal/inference"
	"github.com/cinemood/cinemood-server/internal/tmdb"
)

// catalogError converts a provider error to a domain error. Context errors
// pass through untouched so callers can tell a client hang-up apart.
func catalogError(msg string, err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return err
	case stderrors.Is(err, tmdb.ErrNotFound):
		return errors.Wrap(err, errors.CodeNotFound, msg)
	case stderrors.Is(err, tmdb.ErrInvalidCategory), stderrors.Is(err, tmdb.ErrInvalidID):
		return errors.Wrap(err, errors.CodeInvalidArgument, msg)
	case stderrors.Is(err, tmdb.ErrRateLimited):
		return errors.Wrap(err, errors.CodeRateLimited, msg)
	case tmdb.IsUnavailable(err):
		return errors.Wrap(err, errors.CodeUnavailable, msg)
	default:
		return errors.Wrap(err, errors.CodeUpstream, msg)
	}
}

// isImageError reports whether a detection failed because of the caller's
// image rather than the detector.
func isImageError(err error) bool {
	return stderrors.Is(err, inference.ErrEmptyImage) ||
		stderrors.Is(err, inference.ErrInvalidImage) ||
		stderrors.Is(err, inference.ErrImageTooLarge)
}
