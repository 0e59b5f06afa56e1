package workflow

import "strings"

// Regla is one row of the transition table.
type Regla struct {
	Desde Estado
	Hacia Estado
	// Roles allowed to fire the transition. Ownership is checked separately
	// with PuedeActuarComo.
	Roles              []Rol
	RequiereComentario bool
}

// tabla is the complete set of legal status changes. Closing and reopening
// the quotation reception do not change the status and are guarded by the
// quotation protocol instead.
var tabla = []Regla{
	{Desde: EstadoBorrador, Hacia: EstadoCoordinacion, Roles: []Rol{RolSolicitante}},
	{Desde: EstadoCoordinacion, Hacia: EstadoSecretaria, Roles: []Rol{RolCoordinador}},
	{Desde: EstadoCoordinacion, Hacia: EstadoRechazada, Roles: []Rol{RolCoordinador}, RequiereComentario: true},
	{Desde: EstadoSecretaria, Hacia: EstadoCotizacion, Roles: []Rol{RolSecretario}},
	{Desde: EstadoSecretaria, Hacia: EstadoRechazada, Roles: []Rol{RolSecretario}, RequiereComentario: true},
	{Desde: EstadoCotizacion, Hacia: EstadoRevision, Roles: []Rol{RolCompras}},
	{Desde: EstadoCotizacion, Hacia: EstadoRechazada, Roles: []Rol{RolAdminCompras}, RequiereComentario: true},
	{Desde: EstadoRevision, Hacia: EstadoProcesoCompra, Roles: []Rol{RolSolicitante}},
	{Desde: EstadoProcesoCompra, Hacia: EstadoComprada, Roles: []Rol{RolCompras}},
	{Desde: EstadoProcesoCompra, Hacia: EstadoRechazada, Roles: []Rol{RolAdminCompras}, RequiereComentario: true},
}

// Tabla returns a copy of the transition table.
func Tabla() []Regla {
	out := make([]Regla, len(tabla))
	copy(out, tabla)
	return out
}

// BuscarRegla returns the rule for desde → hacia.
func BuscarRegla(desde, hacia Estado) (Regla, bool) {
	for _, r := range tabla {
		if r.Desde == desde && r.Hacia == hacia {
			return r, true
		}
	}
	return Regla{}, false
}

// Siguientes lists the statuses reachable from desde.
func Siguientes(desde Estado) []Estado {
	var out []Estado
	for _, r := range tabla {
		if r.Desde == desde {
			out = append(out, r.Hacia)
		}
	}
	return out
}

// ValidarTransicion checks a status change against the table, the actor's
// role and ownership, and the mandatory comment. Status is checked first so a
// stale client always learns the real status before anything else.
func ValidarTransicion(desde, hacia Estado, actor Actor, p Propiedad, comentario string) (Regla, error) {
	if !hacia.Valido() {
		return Regla{}, Validation("estado destino %d no existe", int(hacia))
	}
	regla, ok := BuscarRegla(desde, hacia)
	if !ok {
		if desde.Terminal() {
			return Regla{}, InvalidState("la requisición está %s y no admite cambios", desde)
		}
		return Regla{}, InvalidState("no se puede pasar de %s a %s", desde, hacia)
	}
	permitido := false
	for _, rol := range regla.Roles {
		if PuedeActuarComo(actor, rol, p) {
			permitido = true
			break
		}
	}
	if !permitido {
		return Regla{}, Forbidden("el rol %s no puede pasar la requisición de %s a %s", actor.Rol, desde, hacia)
	}
	if regla.RequiereComentario && strings.TrimSpace(comentario) == "" {
		return Regla{}, Validation("se requiere un comentario para pasar a %s", hacia)
	}
	return regla, nil
}
