package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// ownerParam mapea el dueño al valor de columna: '' = la empresa.
func ownerParam(ownerID *string) string {
	if ownerID == nil {
		return ""
	}
	return *ownerID
}

// ownerFromColumn mapea el valor de columna al dueño: '' = la empresa.
func ownerFromColumn(col string) *string {
	if col == "" {
		return nil
	}
	v := col
	return &v
}
