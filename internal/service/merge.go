package service

import (
	"strings"
	"time"

	"requisiciones/internal/dto"
	"requisiciones/internal/model"
)

// Invitation and price rows are written as read → merge → write. The rules
// below are the whole upsert semantics; repositories only persist the result.

// mergeInvitacion applies a (re-)invitation to the existing row, if any.
//   - responded is never reset to invited
//   - invited_at keeps the first invitation time
//   - fecha_limite always takes the latest value supplied
func mergeInvitacion(existente *model.SolicitudCotizacion, requisicionID, proveedorID uint, fechaLimite *time.Time, ahora time.Time) model.SolicitudCotizacion {
	var s model.SolicitudCotizacion
	if existente != nil {
		s = *existente
	} else {
		s = model.SolicitudCotizacion{RequisicionID: requisicionID, ProveedorID: proveedorID}
	}
	if s.Estado != model.InvitacionRespondido {
		s.Estado = model.InvitacionInvitado
	}
	if s.InvitadoEn == nil {
		t := ahora
		s.InvitadoEn = &t
	}
	s.FechaLimite = fechaLimite
	s.Proveedor = nil
	return s
}

// mergeRespuesta marks a provider as responded. responded_at is set once.
func mergeRespuesta(s model.SolicitudCotizacion, ahora time.Time) model.SolicitudCotizacion {
	s.Estado = model.InvitacionRespondido
	if s.RespondidoEn == nil {
		t := ahora
		s.RespondidoEn = &t
	}
	s.Proveedor = nil
	return s
}

// mergeDeclinacion records a refusal. A provider that already responded
// stays responded; the second return is false when nothing changed.
func mergeDeclinacion(s model.SolicitudCotizacion) (model.SolicitudCotizacion, bool) {
	if s.Estado == model.InvitacionRespondido || s.Estado == model.InvitacionDeclinado {
		return s, false
	}
	s.Estado = model.InvitacionDeclinado
	s.Proveedor = nil
	return s, true
}

// celdaVacia reports a cell with neither a price nor a non-empty description.
func celdaVacia(c dto.CeldaPrecioInput) bool {
	return c.PrecioUnitario == nil && textoVacio(c.DescripcionOfrecida)
}

// mergePrecio builds the row to persist for a cell. The winner flag of an
// existing row is preserved; price saves never change it. A price or
// description omitted from the cell keeps the stored value.
func mergePrecio(existente *model.PrecioCotizacion, requisicionID uint, c dto.CeldaPrecioInput) model.PrecioCotizacion {
	p := model.PrecioCotizacion{
		RequisicionID: requisicionID,
		PartidaID:     c.PartidaID,
		ProveedorID:   c.ProveedorID,
	}
	if existente != nil {
		p.EsGanador = existente.EsGanador
		p.PrecioUnitario = existente.PrecioUnitario
		p.DescripcionOfrecida = existente.DescripcionOfrecida
	}
	if c.PrecioUnitario != nil {
		p.PrecioUnitario.Decimal = *c.PrecioUnitario
		p.PrecioUnitario.Valid = true
	}
	if d := textoOpcional(c.DescripcionOfrecida); d != nil {
		p.DescripcionOfrecida = d
	}
	p.Notas = textoOpcional(c.Notas)
	return p
}

func textoVacio(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func textoOpcional(s *string) *string {
	if textoVacio(s) {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
