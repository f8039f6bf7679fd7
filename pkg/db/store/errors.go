package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mwantia/memobox/pkg/errdefs"
	"gorm.io/gorm"
)

var constraintMessages = []string{
	"UNIQUE constraint failed",
	"FOREIGN KEY constraint failed",
	"CHECK constraint failed",
	"NOT NULL constraint failed",
	"PRIMARY KEY constraint failed",
}

// classify maps engine errors onto the errdefs taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", errdefs.ErrNotFound, err)
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return fmt.Errorf("%w: %w", errdefs.ErrConstraintViolation, err)
	}

	msg := err.Error()
	for _, m := range constraintMessages {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %w", errdefs.ErrConstraintViolation, err)
		}
	}

	return err
}

func notFound(what string, id any) error {
	return fmt.Errorf("%w: %s %v", errdefs.ErrNotFound, what, id)
}
