package dao

import (
	"errors"
	"fmt"

	"github.com/syntrixbase/sdastore/pkg/model"
	"go.mongodb.org/mongo-driver/mongo"
)

// storageError maps a driver error onto the model error kinds. Errors that are
// already classified (codec failures) pass through with the operation prefix.
func storageError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrEncoding), errors.Is(err, model.ErrDecoding):
		return fmt.Errorf("%s: %w", op, err)
	case model.IsCanceled(err):
		return fmt.Errorf("%s: %w", op, model.WrapError(err))
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %w", op, model.ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, model.ErrStorage, err)
	}
}

func connectionError(err error) error {
	if model.IsCanceled(err) {
		return fmt.Errorf("ping: %w", model.WrapError(err))
	}
	return fmt.Errorf("ping: %w: %w", model.ErrConnection, err)
}

func setupError(field string, err error) error {
	return fmt.Errorf("ensure unique index on %q: %w: %w", field, model.ErrSetup, err)
}

func listError(err error) error {
	if model.IsCanceled(err) {
		return fmt.Errorf("list indexes: %w", model.WrapError(err))
	}
	return fmt.Errorf("list indexes: %w: %w", model.ErrSetup, err)
}
