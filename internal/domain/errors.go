package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")
)

// TransientError marca una falla de infraestructura (red, timeout, contención)
// que es segura de reintentar. Los errores de dominio nunca se envuelven aquí:
// reintentar una condición lógicamente falsa no la vuelve verdadera.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("falla transitoria: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// Transient envuelve un error como transitorio. Devuelve nil si err es nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Cause: err}
}

// IsTransient reporta si err está marcado como transitorio.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
