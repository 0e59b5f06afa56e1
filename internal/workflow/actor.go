package workflow

// Rol is the functional role of the person acting on a requisition.
type Rol string

const (
	RolSolicitante  Rol = "solicitante"
	RolCoordinador  Rol = "coordinador"
	RolSecretario   Rol = "secretario"
	RolCompras      Rol = "compras"
	RolAdminCompras Rol = "admin_compras"
)

// Valido reports whether r is a known role.
func (r Rol) Valido() bool {
	switch r {
	case RolSolicitante, RolCoordinador, RolSecretario, RolCompras, RolAdminCompras:
		return true
	}
	return false
}

// Actor identifies who performs an operation. It is passed explicitly into
// every core operation; nothing is read from ambient request state.
type Actor struct {
	ID  uint
	Rol Rol
	// UREID restricts coordinators and secretaries to one organizational unit.
	// Nil means the actor is not scoped.
	UREID *uint
}

// EsAdmin reports whether the actor holds the purchasing admin role.
func (a Actor) EsAdmin() bool {
	return a.Rol == RolAdminCompras
}

// Propiedad is the ownership data of a requisition needed by the guards.
type Propiedad struct {
	CreadorID  uint
	UREID      uint
	OperadorID *uint
}

// PuedeActuarComo reports whether actor may act in role rol on a requisition
// with the given ownership. The role itself must already match.
//   - solicitante: only the creator.
//   - compras: the assigned operator, anyone in compras when unassigned, admins always.
//   - coordinador/secretario: only inside their URE when scoped.
func PuedeActuarComo(actor Actor, rol Rol, p Propiedad) bool {
	switch rol {
	case RolSolicitante:
		return actor.Rol == RolSolicitante && actor.ID == p.CreadorID
	case RolCompras:
		if actor.EsAdmin() {
			return true
		}
		if actor.Rol != RolCompras {
			return false
		}
		return p.OperadorID == nil || *p.OperadorID == actor.ID
	case RolAdminCompras:
		return actor.EsAdmin()
	case RolCoordinador, RolSecretario:
		if actor.Rol != rol {
			return false
		}
		return actor.UREID == nil || *actor.UREID == p.UREID
	}
	return false
}

// AutorizarCompras is the guard used by every purchasing operation of the
// quotation protocol and the order resolver.
func AutorizarCompras(actor Actor, p Propiedad) error {
	if !PuedeActuarComo(actor, RolCompras, p) {
		return Forbidden("solo el operador de compras asignado o un administrador puede realizar esta acción")
	}
	return nil
}

// AutorizarSolicitante is the guard for requester-only operations.
func AutorizarSolicitante(actor Actor, p Propiedad) error {
	if !PuedeActuarComo(actor, RolSolicitante, p) {
		return Forbidden("solo el solicitante de la requisición puede realizar esta acción")
	}
	return nil
}

// PuedeVer reports whether actor may read a requisition: its creator, anyone
// in purchasing, and scoped approvers of its URE.
func PuedeVer(actor Actor, p Propiedad) bool {
	switch actor.Rol {
	case RolSolicitante:
		return actor.ID == p.CreadorID
	case RolCompras, RolAdminCompras:
		return true
	case RolCoordinador, RolSecretario:
		return actor.UREID == nil || *actor.UREID == p.UREID
	}
	return false
}
