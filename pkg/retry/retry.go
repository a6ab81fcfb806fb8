// Package retry es un ejecutor genérico de operaciones falibles: reintento
// acotado con backoff exponencial, jitter y un predicado que distingue fallas
// permanentes de transitorias. No sabe nada del libro ni de la conciliación;
// la operación reintentada debe ser idempotente o segura de repetir.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/tu-usuario/gestion-core/internal/domain"
)

// Predicate decide si un error en el intento dado amerita reintentar.
type Predicate func(err error, attempt int) bool

// Options configura una ejecución.
type Options struct {
	MaxAttempts       int           // default 3
	BaseDelay         time.Duration // default 100ms
	MaxDelay          time.Duration // tope del backoff; default 5s
	BackoffFactor     float64       // default 2
	Jitter            bool          // multiplica el delay por un factor uniforme en [0.5, 1.0]
	TimeoutPerAttempt time.Duration // 0 = sin timeout por intento
	Predicate         Predicate     // nil = DefaultPredicate
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 5 * time.Second
	}
	if o.BackoffFactor <= 1 {
		o.BackoffFactor = 2
	}
	if o.Predicate == nil {
		o.Predicate = DefaultPredicate
	}
	return o
}

// Result es el desenlace de una ejecución. En agotamiento Success es false y
// Err trae el último error con el conteo completo de intentos: el ejecutor
// nunca suprime la falla final, el caller decide si escala.
type Result struct {
	Success  bool
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// StatusCoder lo implementan errores que transportan un código HTTP.
type StatusCoder interface {
	StatusCode() int
}

// DefaultPredicate reintenta fallas de infraestructura: errores marcados
// transitorios, timeouts de red, deadline del intento y HTTP 5xx/429. Nunca
// reintenta errores de validación ni rechazos de dominio como stock
// insuficiente: repetir una condición lógicamente falsa no la vuelve
// verdadera.
func DefaultPredicate(err error, _ int) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrDuplicate) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrConflict) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if domain.IsTransient(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code >= 500 || code == 429
	}
	return false
}

// Operation es la función reintentada. Recibe el contexto del intento (con el
// timeout por intento ya aplicado).
type Operation func(ctx context.Context) error

// Execute corre la operación con la política dada. La cancelación del
// contexto padre abandona de inmediato: un intento que ya pasó el punto de
// serialización termina igual, la cancelación solo afecta si el caller espera.
func Execute(ctx context.Context, op Operation, opts Options) Result {
	opts = opts.withDefaults()
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Result{Success: false, Attempts: attempt - 1, Elapsed: time.Since(start), Err: ctx.Err()}
		default:
		}

		err := runAttempt(ctx, op, opts.TimeoutPerAttempt)
		if err == nil {
			return Result{Success: true, Attempts: attempt, Elapsed: time.Since(start)}
		}
		lastErr = err

		if !opts.Predicate(err, attempt) || attempt == opts.MaxAttempts {
			return Result{Success: false, Attempts: attempt, Elapsed: time.Since(start), Err: err}
		}

		select {
		case <-ctx.Done():
			return Result{Success: false, Attempts: attempt, Elapsed: time.Since(start), Err: ctx.Err()}
		case <-time.After(Delay(opts, attempt)):
		}
	}
	return Result{Success: false, Attempts: opts.MaxAttempts, Elapsed: time.Since(start), Err: lastErr}
}

// ExecuteValue es Execute para operaciones que devuelven un valor.
func ExecuteValue[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, Result) {
	var value T
	res := Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	}, opts)
	return value, res
}

// runAttempt aplica el timeout por intento. Excederlo cuenta como falla
// transitoria de ese intento.
func runAttempt(ctx context.Context, op Operation, timeout time.Duration) error {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := op(attemptCtx)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return domain.Transient(err)
	}
	return err
}

// Delay calcula la espera antes del intento attempt+1:
// min(maxDelay, base*factor^(attempt-1)), con jitter uniforme en [0.5, 1.0]
// para evitar tormentas de reintentos sincronizadas entre callers.
func Delay(opts Options, attempt int) time.Duration {
	opts = opts.withDefaults()
	d := float64(opts.BaseDelay) * math.Pow(opts.BackoffFactor, float64(attempt-1))
	if d > float64(opts.MaxDelay) {
		d = float64(opts.MaxDelay)
	}
	if opts.Jitter {
		d *= 0.5 + rand.Float64()*0.5
	}
	return time.Duration(d)
}
