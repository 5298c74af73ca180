package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/repositories"
)

// translateStoreError lifts repository errors onto the engine's error kinds
// so callers only ever switch on brackets.KindOf.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrMatchNotFound):
		return fmt.Errorf("%w: %w", brackets.ErrUnknownMatch, err)
	case errors.Is(err, repositories.ErrMatchVersionConflict):
		return fmt.Errorf("%w: %w", brackets.ErrStaleMatchState, err)
	case errors.Is(err, repositories.ErrGenerationLocked):
		return fmt.Errorf("%w: %w", brackets.ErrGenerationInProgress, err)
	}
	return err
}
