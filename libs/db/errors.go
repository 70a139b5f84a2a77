package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the services branch on.
const (
	CodeUniqueViolation       = "23505"
	CodeExclusionViolation    = "23P01"
	CodeInsufficientPrivilege = "42501"
	CodeUndefinedFunction     = "42883"
	CodeRaiseException        = "P0001"
)

func pgCode(err error) (string, string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message, true
	}
	return "", "", false
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsUniqueViolation(err error) bool {
	code, _, ok := pgCode(err)
	return ok && code == CodeUniqueViolation
}

// IsUndefinedFunction reports a call to a database function that does not exist,
// which is how a missing RPC shows up.
func IsUndefinedFunction(err error) bool {
	code, _, ok := pgCode(err)
	return ok && code == CodeUndefinedFunction
}

// IsPermissionDenied reports a row level security or grant rejection.
func IsPermissionDenied(err error) bool {
	code, _, ok := pgCode(err)
	return ok && code == CodeInsufficientPrivilege
}

// IsSlotConflict reports an authoritative slot rejection: an exclusion
// constraint violation or a raised exception tagged slot_unavailable.
func IsSlotConflict(err error) bool {
	code, msg, ok := pgCode(err)
	if !ok {
		return false
	}
	switch code {
	case CodeExclusionViolation:
		return true
	case CodeRaiseException:
		return strings.Contains(strings.ToLower(msg), "slot_unavailable")
	default:
		return false
	}
}
