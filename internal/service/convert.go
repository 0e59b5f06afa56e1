package service

import (
	"encoding/json"

	"requisiciones/internal/dto"
	"requisiciones/internal/model"
	"requisiciones/internal/workflow"
)

func requisicionToResponse(r *model.Requisicion) *dto.RequisicionResponse {
	resp := &dto.RequisicionResponse{
		ID:                  r.ID,
		Folio:               r.Folio,
		Nombre:              r.Nombre,
		Justificacion:       r.Justificacion,
		Observaciones:       r.Observaciones,
		CreadorID:           r.CreadorID,
		UREID:               r.UREID,
		CategoriaID:         r.CategoriaID,
		TipoOrden:           r.TipoOrden,
		OperadorID:          r.OperadorID,
		Estado:              int(r.Estado),
		EstadoNombre:        r.Estado.String(),
		CotizacionCerradaEn: r.CotizacionCerradaEn,
		NotaCierre:          r.NotaCierre,
		MotivoRechazo:       r.MotivoRechazo,
		Siguientes:          []int{},
		Partidas:            make([]dto.PartidaResponse, 0, len(r.Partidas)),
		CreatedAt:           r.CreatedAt,
	}
	for _, e := range workflow.Siguientes(r.Estado) {
		resp.Siguientes = append(resp.Siguientes, int(e))
	}
	for _, p := range r.Partidas {
		resp.Partidas = append(resp.Partidas, dto.PartidaResponse{
			ID:          p.ID,
			Producto:    p.Producto,
			Descripcion: p.Descripcion,
			Cantidad:    p.Cantidad,
			UnidadID:    p.UnidadID,
		})
	}
	return resp
}

func solicitudToResponse(s model.SolicitudCotizacion) dto.SolicitudResponse {
	resp := dto.SolicitudResponse{
		ProveedorID:  s.ProveedorID,
		Estado:       s.Estado,
		InvitadoEn:   s.InvitadoEn,
		RespondidoEn: s.RespondidoEn,
		FechaLimite:  s.FechaLimite,
	}
	if s.Proveedor != nil {
		resp.RazonSocial = s.Proveedor.RazonSocial
	}
	return resp
}

func historialToResponse(h model.HistorialEstado) dto.HistorialResponse {
	resp := dto.HistorialResponse{
		EstadoAnterior: int(h.EstadoAnterior),
		EstadoNuevo:    int(h.EstadoNuevo),
		Accion:         h.Accion,
		ActorID:        h.ActorID,
		ActorRol:       h.ActorRol,
		Comentario:     h.Comentario,
		CreatedAt:      h.CreatedAt,
	}
	if len(h.Detalle) > 0 {
		var detalle map[string]interface{}
		if err := json.Unmarshal(h.Detalle, &detalle); err == nil {
			resp.Detalle = detalle
		}
	}
	return resp
}

func transicionResponse(r *model.Requisicion, anterior workflow.Estado, sinCambios bool) *dto.TransicionResponse {
	return &dto.TransicionResponse{
		RequisicionID:  r.ID,
		EstadoAnterior: int(anterior),
		Estado:         int(r.Estado),
		EstadoNombre:   r.Estado.String(),
		SinCambios:     sinCambios,
	}
}

func partidasFromInput(in []dto.PartidaInput) []model.Partida {
	out := make([]model.Partida, 0, len(in))
	for _, p := range in {
		out = append(out, model.Partida{
			Producto:    p.Producto,
			Descripcion: textoOpcional(p.Descripcion),
			Cantidad:    p.Cantidad,
			UnidadID:    p.UnidadID,
		})
	}
	return out
}
