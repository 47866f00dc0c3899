// Package faults holds the failure taxonomy for dispatch and persistence.
//
// Adapters never report raw transport or driver errors upward: they run them
// through FromTransport or FromStorage, which are pure mappings onto Kind.
// The orchestrator turns a Fault into a RowError using Code and Message.
package faults

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is the closed set of failure categories.
type Kind int

const (
	// KindUnexpected covers anything that does not fit a narrower category.
	KindUnexpected Kind = iota
	// KindTimeout indicates the external service did not answer in time.
	KindTimeout
	// KindNetwork indicates a connection level failure.
	KindNetwork
	// KindDNSUnresolved indicates the service host could not be resolved.
	KindDNSUnresolved
	// KindNonSuccess indicates a non-2xx HTTP response.
	KindNonSuccess
	// KindRejected indicates a soft dispatcher answered false without an error.
	KindRejected
	// KindUnresolvedProduct indicates no dispatcher is registered for a product.
	KindUnresolvedProduct
	// KindDBTimeout indicates the contract store timed out.
	KindDBTimeout
	// KindDBUpdateFailed indicates any other contract store failure.
	KindDBUpdateFailed
)

// postgres query_canceled, raised when statement_timeout fires.
const pgQueryCanceled = "57014"

// Fault is a classified failure. Target names the product or store involved.
type Fault struct {
	Kind       Kind
	Target     string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s [%s]: %v", f.Target, f.Code(), f.Err)
	}
	return fmt.Sprintf("%s [%s]", f.Target, f.Code())
}

// Unwrap supports errors.Is/As on the underlying cause.
func (f *Fault) Unwrap() error {
	return f.Err
}

// Code renders the stable error code reported to callers.
func (f *Fault) Code() string {
	switch f.Kind {
	case KindTimeout:
		return "http.timeout"
	case KindNetwork:
		return "http.network"
	case KindDNSUnresolved:
		return "http.dns_unresolved"
	case KindNonSuccess:
		return fmt.Sprintf("http.%d", f.StatusCode)
	case KindRejected:
		return "external.rejected"
	case KindUnresolvedProduct:
		return "service.unresolved"
	case KindDBTimeout:
		return "db.timeout"
	case KindDBUpdateFailed:
		return "db.update_failed"
	default:
		return "external.error"
	}
}

// Message renders the user facing description, prefixed with the code.
func (f *Fault) Message() string {
	var text string
	switch f.Kind {
	case KindTimeout:
		text = fmt.Sprintf("Tiempo de espera agotado al llamar al servicio externo %s.", f.Target)
	case KindNetwork:
		text = fmt.Sprintf("Error de red al llamar al servicio externo %s.", f.Target)
	case KindDNSUnresolved:
		text = fmt.Sprintf("No se pudo resolver el host del servicio externo %s.", f.Target)
	case KindNonSuccess:
		text = fmt.Sprintf("El servicio externo %s respondió con estado %d.", f.Target, f.StatusCode)
	case KindRejected:
		text = fmt.Sprintf("El servicio externo %s rechazó el cambio.", f.Target)
	case KindUnresolvedProduct:
		text = fmt.Sprintf("No hay servicio de cambio FP registrado para el producto '%s'.", f.Target)
	case KindDBTimeout:
		text = "Tiempo de espera agotado al actualizar los contratos."
	case KindDBUpdateFailed:
		text = "No se pudieron actualizar los contratos."
	default:
		text = fmt.Sprintf("Error inesperado al llamar al servicio externo %s.", f.Target)
	}
	return fmt.Sprintf("[%s] %s", f.Code(), text)
}

// New builds a Fault of the given kind.
func New(kind Kind, target string, err error) *Fault {
	return &Fault{Kind: kind, Target: target, Err: err}
}

// NonSuccess builds a Fault for a non-2xx HTTP status.
func NonSuccess(target string, status int) *Fault {
	return &Fault{Kind: KindNonSuccess, Target: target, StatusCode: status}
}

// As extracts a Fault from err. Unclassified errors become KindUnexpected.
func As(err error, target string) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return New(KindUnexpected, target, err)
}

// GetKind extracts the Kind from an error, KindUnexpected when unclassified.
func GetKind(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnexpected
}

// FromTransport maps an outbound HTTP failure onto the taxonomy.
func FromTransport(err error, target string) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	if isTimeout(err) {
		return New(KindTimeout, target, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound || dnsErr.IsTemporary {
			return New(KindDNSUnresolved, target, err)
		}
		return New(KindNetwork, target, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return New(KindNetwork, target, err)
	}
	return New(KindUnexpected, target, err)
}

// FromStorage maps a contract store failure onto db.timeout or db.update_failed.
func FromStorage(err error, target string) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) && (f.Kind == KindDBTimeout || f.Kind == KindDBUpdateFailed) {
		return f
	}
	if isTimeout(err) || pgconn.Timeout(err) {
		return New(KindDBTimeout, target, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled {
		return New(KindDBTimeout, target, err)
	}
	return New(KindDBUpdateFailed, target, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
