package domain

import "errors"

// Errores de dominio (sin dependencias externas).
//
// Los casos de uso los envuelven con fmt.Errorf("%w: detalle", ...) y los
// llamadores los clasifican con errors.Is.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrForbidden    = errors.New("acceso denegado")
	ErrDuplicate    = errors.New("recurso duplicado")

	// ErrValidation regla de negocio incumplida (fecha pasada, orden cronológico...).
	ErrValidation = errors.New("validación fiscal")
	// ErrConfiguration falta configuración (emisor, endpoint, plantilla). Aborta antes de efectos.
	ErrConfiguration = errors.New("configuración fiscal incompleta")
	// ErrBlocked protección de inmutabilidad o registro fiscal. Siempre se audita como BLOQUEADO.
	ErrBlocked = errors.New("operación bloqueada")
	// ErrExternalService fallo del envío Veri*Factu. Nunca revierte la validación.
	ErrExternalService = errors.New("servicio externo")
)

// IsBusinessRule informa si el error es de los que se devuelven como {ok:false, error}
// ("no puedes hacer esto") y no como fallo del sistema.
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrBlocked)
}
