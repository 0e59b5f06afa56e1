package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"requisiciones/internal/model"
	"requisiciones/internal/repository"
	"requisiciones/internal/workflow"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Acciones recorded in the status history.
const (
	AccionCreacion     = "creacion"
	AccionTransicion   = "transicion"
	AccionCierre       = "cierre_cotizacion"
	AccionReapertura   = "reapertura_cotizacion"
	AccionAsignacion   = "asignacion"
	AccionSeleccion    = "seleccion"
	AccionOrdenCaptura = "orden_compra"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// motor is the status transition engine shared by the three services.
// Every method runs inside the caller's transaction.
type motor struct {
	requisiciones repository.RequisicionRepository
	cotizaciones  repository.CotizacionRepository
	ordenes       repository.OrdenRepository
}

// cargar locks the requisition row for the rest of the transaction.
func (m *motor) cargar(ctx context.Context, tx *gorm.DB, id uint) (*model.Requisicion, error) {
	r, err := m.requisiciones.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, noEncontrada(err, id)
	}
	return r, nil
}

func noEncontrada(err error, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return workflow.NotFound("requisición %d no encontrada", id)
	}
	return fmt.Errorf("cargar requisición %d: %w", id, err)
}

// transicion validates and applies desde → hacia on a locked requisition,
// then appends the history row. r.Estado is updated in place.
func (m *motor) transicion(
	ctx context.Context,
	tx *gorm.DB,
	r *model.Requisicion,
	hacia workflow.Estado,
	actor workflow.Actor,
	comentario string,
	detalle map[string]interface{},
) error {
	desde := r.Estado
	if _, err := workflow.ValidarTransicion(desde, hacia, actor, r.Propiedad(), comentario); err != nil {
		return err
	}
	if err := m.precondiciones(ctx, tx, r, hacia); err != nil {
		return err
	}

	var motivo *string
	if hacia == workflow.EstadoRechazada {
		c := strings.TrimSpace(comentario)
		motivo = &c
	}
	n, err := m.requisiciones.UpdateEstadoTx(ctx, tx, r.ID, desde, hacia, motivo)
	if err != nil {
		return fmt.Errorf("actualizar estado: %w", err)
	}
	if n == 0 {
		// Only reachable without the row lock.
		return workflow.Conflict("la requisición cambió de estado mientras se procesaba la solicitud")
	}
	if err := m.historial(ctx, tx, r.ID, desde, hacia, AccionTransicion, actor, comentario, detalle); err != nil {
		return err
	}
	r.Estado = hacia
	if motivo != nil {
		r.MotivoRechazo = motivo
	}

	log.Info().
		Uint("requisicion_id", r.ID).
		Str("estado_anterior", desde.String()).
		Str("estado_nuevo", hacia.String()).
		Uint("actor_id", actor.ID).
		Msg("transición aplicada")
	return nil
}

// precondiciones checks the data each target status needs beyond the table.
func (m *motor) precondiciones(ctx context.Context, tx *gorm.DB, r *model.Requisicion, hacia workflow.Estado) error {
	switch hacia {
	case workflow.EstadoCoordinacion:
		if len(r.Partidas) == 0 {
			return workflow.Incomplete("la requisición no tiene partidas")
		}
	case workflow.EstadoRevision:
		if !r.CotizacionCerrada() {
			return workflow.InvalidState("la recepción de cotizaciones sigue abierta; ciérrela antes de enviar a revisión")
		}
		n, err := m.cotizaciones.CountPreciosTx(ctx, tx, r.ID)
		if err != nil {
			return fmt.Errorf("contar precios: %w", err)
		}
		if n == 0 {
			return workflow.Incomplete("no hay precios cotizados para la requisición")
		}
	case workflow.EstadoProcesoCompra:
		return workflow.Incomplete("se requiere enviar la selección de ganadores por partida")
	case workflow.EstadoComprada:
		return m.foliosCompletos(ctx, tx, r.ID)
	}
	return nil
}

// foliosCompletos requires a purchase-order folio for every winning provider.
func (m *motor) foliosCompletos(ctx context.Context, tx *gorm.DB, id uint) error {
	sel, err := m.ordenes.ListSeleccionesTx(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("listar selecciones: %w", err)
	}
	if len(sel) == 0 {
		return workflow.Incomplete("la requisición no tiene proveedores ganadores")
	}
	metas, err := m.ordenes.FindOrdenMetasTx(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("listar órdenes: %w", err)
	}
	folios := make(map[uint]string, len(metas))
	for _, om := range metas {
		folios[om.ProveedorID] = strings.TrimSpace(om.Folio)
	}

	var faltantes []uint
	vistos := map[uint]bool{}
	for _, s := range sel {
		if vistos[s.ProveedorID] {
			continue
		}
		vistos[s.ProveedorID] = true
		if folios[s.ProveedorID] == "" {
			faltantes = append(faltantes, s.ProveedorID)
		}
	}
	if len(faltantes) > 0 {
		sort.Slice(faltantes, func(i, j int) bool { return faltantes[i] < faltantes[j] })
		return workflow.Incomplete("falta el folio de orden de compra para los proveedores %s", listaIDs(faltantes))
	}
	return nil
}

func (m *motor) historial(
	ctx context.Context,
	tx *gorm.DB,
	id uint,
	anterior, nuevo workflow.Estado,
	accion string,
	actor workflow.Actor,
	comentario string,
	detalle map[string]interface{},
) error {
	h := &model.HistorialEstado{
		RequisicionID:  id,
		EstadoAnterior: anterior,
		EstadoNuevo:    nuevo,
		Accion:         accion,
		ActorID:        actor.ID,
		ActorRol:       string(actor.Rol),
	}
	if c := strings.TrimSpace(comentario); c != "" {
		h.Comentario = &c
	}
	if len(detalle) > 0 {
		raw, err := json.Marshal(detalle)
		if err != nil {
			return fmt.Errorf("serializar detalle: %w", err)
		}
		h.Detalle = datatypes.JSON(raw)
	}
	if err := m.requisiciones.CreateHistorialTx(ctx, tx, h); err != nil {
		return fmt.Errorf("registrar historial: %w", err)
	}
	return nil
}

// conEstado attaches the status observed under lock to a guard error.
func conEstado(err error, estado workflow.Estado) error {
	if estado == 0 {
		return err
	}
	return workflow.WithEstado(err, estado)
}

func listaIDs(ids []uint) string {
	partes := make([]string, len(ids))
	for i, id := range ids {
		partes[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(partes, ", ")
}

// idempotente lists the targets that succeed without effect when the
// requisition is already there. Both are purchasing actions.
func idempotente(hacia workflow.Estado) bool {
	return hacia == workflow.EstadoRevision || hacia == workflow.EstadoComprada
}

// avanzar runs one guarded transition in its own transaction and returns the
// requisition, the status it had before and whether the call was a no-op.
func (m *motor) avanzar(
	ctx context.Context,
	actor workflow.Actor,
	id uint,
	hacia workflow.Estado,
	comentario string,
) (*model.Requisicion, workflow.Estado, bool, error) {
	var (
		r          *model.Requisicion
		anterior   workflow.Estado
		sinCambios bool
	)
	err := runTx(ctx, m.requisiciones.DB(), func(tx *gorm.DB) error {
		var err error
		r, err = m.cargar(ctx, tx, id)
		if err != nil {
			return err
		}
		anterior = r.Estado
		if r.Estado == hacia && idempotente(hacia) {
			if err := workflow.AutorizarCompras(actor, r.Propiedad()); err != nil {
				return err
			}
			sinCambios = true
			return nil
		}
		return m.transicion(ctx, tx, r, hacia, actor, comentario, nil)
	})
	if err != nil {
		return nil, anterior, false, conEstado(err, anterior)
	}
	if sinCambios {
		log.Debug().Uint("requisicion_id", id).Str("estado", hacia.String()).Msg("transición sin cambios")
	}
	return r, anterior, sinCambios, nil
}
