package postgres

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	UniqueViolationCode     = "23505"
	ForeignKeyViolationCode = "23503"
)

// AsPgError unwraps err into a server-reported error, if there is one.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsConnectivityError reports failures to reach or keep a connection to the
// server, as opposed to errors the server answered with.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	var ce *pgconn.ConnectError
	if errors.As(err, &ce) {
		return true
	}
	if pe, ok := AsPgError(err); ok {
		// Class 08 is connection exception; 57P0x is operator intervention (shutdown).
		return strings.HasPrefix(pe.Code, "08") || strings.HasPrefix(pe.Code, "57P0")
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return pgconn.SafeToRetry(err)
}

// Classify wraps connectivity failures with the port's unavailable sentinel
// and returns every other error unchanged.
func Classify(err error, unavailable error) error {
	if IsConnectivityError(err) {
		return fmt.Errorf("%w: %v", unavailable, err)
	}
	return err
}
