package service

import (
	"errors"
	"fmt"

	"needboard/internal/domain"
)

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

func domainForbidden(msg string) error { return fmt.Errorf("%s: %w", msg, domain.ErrForbidden) }

func conflict(msg string) error { return fmt.Errorf("%s: %w", msg, domain.ErrConflict) }

func fmtNotFound(what string) error { return fmt.Errorf("%s: %w", what, domain.ErrNotFound) }
