package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"requisiciones/internal/dto"
	"requisiciones/internal/model"
	"requisiciones/internal/repository"
	"requisiciones/internal/workflow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var cien = decimal.NewFromInt(100)

// SeleccionService resolves the winner per line item and the purchase-order
// data that follows it.
type SeleccionService interface {
	EnviarSeleccion(ctx context.Context, actor workflow.Actor, id uint, req dto.EnviarSeleccionRequest) (*dto.TransicionResponse, error)
	GuardarOrdenMeta(ctx context.Context, actor workflow.Actor, id, proveedorID uint, req dto.OrdenMetaRequest) (*dto.OrdenMetaResponse, error)
	MarcarComprada(ctx context.Context, actor workflow.Actor, id uint) (*dto.TransicionResponse, error)
	ResumenOrdenes(ctx context.Context, actor workflow.Actor, id uint) (*dto.OrdenesResponse, error)
	// OrdenParaDocumento returns the order of one provider, refusing while its
	// folio is missing.
	OrdenParaDocumento(ctx context.Context, actor workflow.Actor, id, proveedorID uint) (*dto.OrdenesResponse, error)
}

type seleccionService struct {
	motor       *motor
	reqRepo     repository.RequisicionRepository
	cotRepo     repository.CotizacionRepository
	repo        repository.OrdenRepository
	proveedores repository.ProveedorRepository
	avisos      *avisos
}

func NewSeleccionService(
	reqRepo repository.RequisicionRepository,
	cotRepo repository.CotizacionRepository,
	repo repository.OrdenRepository,
	proveedores repository.ProveedorRepository,
	usuarios repository.UsuarioRepository,
	notif Notificador,
) SeleccionService {
	return &seleccionService{
		motor:       &motor{requisiciones: reqRepo, cotizaciones: cotRepo, ordenes: repo},
		reqRepo:     reqRepo,
		cotRepo:     cotRepo,
		repo:        repo,
		proveedores: proveedores,
		avisos:      newAvisos(notif, usuarios),
	}
}

// ── EnviarSeleccion ───────────────────────────────────────────────────────────
// All-or-nothing: every pair is validated before the first winner flag moves.
// Relevant line items are those with at least one quoted cell; each needs
// exactly one pair.

func (s *seleccionService) EnviarSeleccion(ctx context.Context, actor workflow.Actor, id uint, req dto.EnviarSeleccionRequest) (*dto.TransicionResponse, error) {
	var (
		r        *model.Requisicion
		anterior workflow.Estado
	)
	err := runTx(ctx, s.reqRepo.DB(), func(tx *gorm.DB) error {
		var err error
		r, err = s.motor.cargar(ctx, tx, id)
		if err != nil {
			return err
		}
		anterior = r.Estado
		if r.Estado != workflow.EstadoRevision {
			return workflow.InvalidState("la requisición no está en revisión")
		}
		if _, err := workflow.ValidarTransicion(r.Estado, workflow.EstadoProcesoCompra, actor, r.Propiedad(), ""); err != nil {
			return err
		}

		precios, err := s.cotRepo.FindPreciosTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("listar precios: %w", err)
		}
		celdas := make(map[celdaKey]model.PrecioCotizacion, len(precios))
		relevantes := map[uint]bool{}
		for _, p := range precios {
			celdas[celdaKey{p.PartidaID, p.ProveedorID}] = p
			relevantes[p.PartidaID] = true
		}
		partidas := make(map[uint]model.Partida, len(r.Partidas))
		for _, p := range r.Partidas {
			partidas[p.ID] = p
		}

		elegidas := make(map[uint]bool, len(req.Selecciones))
		selecciones := make([]model.SeleccionGanador, 0, len(req.Selecciones))
		for _, sel := range req.Selecciones {
			partida, ok := partidas[sel.PartidaID]
			if !ok {
				return workflow.NotFound("la partida %d no pertenece a la requisición %d", sel.PartidaID, id)
			}
			if elegidas[sel.PartidaID] {
				return workflow.Validation("la partida %d tiene más de un ganador", sel.PartidaID)
			}
			elegidas[sel.PartidaID] = true

			celda, ok := celdas[celdaKey{sel.PartidaID, sel.ProveedorID}]
			if !ok {
				return workflow.Incomplete("no existe cotización del proveedor %d para la partida %d", sel.ProveedorID, sel.PartidaID)
			}
			descripcion := celda.DescripcionOfrecida
			if descripcion == nil {
				descripcion = partida.Descripcion
			}
			selecciones = append(selecciones, model.SeleccionGanador{
				RequisicionID:  id,
				PartidaID:      sel.PartidaID,
				ProveedorID:    sel.ProveedorID,
				PrecioUnitario: celda.PrecioUnitario,
				Descripcion:    descripcion,
			})
		}
		var sinGanador []uint
		for pid := range relevantes {
			if !elegidas[pid] {
				sinGanador = append(sinGanador, pid)
			}
		}
		if len(sinGanador) > 0 {
			sort.Slice(sinGanador, func(i, j int) bool { return sinGanador[i] < sinGanador[j] })
			return workflow.Incomplete("falta elegir ganador para las partidas %s", listaIDs(sinGanador))
		}

		// Clear then set, per line item: at most one winner at any time.
		for _, sel := range selecciones {
			if err := s.cotRepo.LimpiarGanadoresTx(ctx, tx, id, sel.PartidaID); err != nil {
				return fmt.Errorf("limpiar ganadores: %w", err)
			}
			n, err := s.cotRepo.MarcarGanadorTx(ctx, tx, id, sel.PartidaID, sel.ProveedorID)
			if err != nil {
				return fmt.Errorf("marcar ganador: %w", err)
			}
			if n != 1 {
				return fmt.Errorf("marcar ganador: partida %d proveedor %d afectó %d filas", sel.PartidaID, sel.ProveedorID, n)
			}
		}
		if err := s.repo.ReplaceSeleccionesTx(ctx, tx, id, selecciones); err != nil {
			return fmt.Errorf("guardar selección: %w", err)
		}

		ganadores := map[uint]bool{}
		for _, sel := range selecciones {
			ganadores[sel.ProveedorID] = true
		}
		return s.motor.transicion(ctx, tx, r, workflow.EstadoProcesoCompra, actor, "",
			map[string]interface{}{"partidas": len(selecciones), "proveedores": ordenarIDs(ganadores)})
	})
	if err != nil {
		return nil, conEstado(err, anterior)
	}
	s.avisos.cambioEstado(ctx, r, anterior)
	return transicionResponse(r, anterior, false), nil
}

// ── GuardarOrdenMeta ──────────────────────────────────────────────────────────

func (s *seleccionService) GuardarOrdenMeta(ctx context.Context, actor workflow.Actor, id, proveedorID uint, req dto.OrdenMetaRequest) (*dto.OrdenMetaResponse, error) {
	if err := validarIVA(req); err != nil {
		return nil, err
	}

	meta := &model.OrdenCompraMeta{
		RequisicionID: id,
		ProveedorID:   proveedorID,
		Folio:         strings.TrimSpace(req.Folio),
		IncluyeIVA:    req.IncluyeIVA,
		PorcentajeIVA: req.PorcentajeIVA,
	}
	var actual workflow.Estado
	err := runTx(ctx, s.reqRepo.DB(), func(tx *gorm.DB) error {
		r, err := s.motor.cargar(ctx, tx, id)
		if err != nil {
			return err
		}
		actual = r.Estado
		if r.Estado != workflow.EstadoProcesoCompra {
			return workflow.InvalidState("los datos de orden de compra se capturan en proceso de compra")
		}
		if err := workflow.AutorizarCompras(actor, r.Propiedad()); err != nil {
			return err
		}
		sel, err := s.repo.ListSeleccionesTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("listar selecciones: %w", err)
		}
		ganador := false
		for _, sg := range sel {
			if sg.ProveedorID == proveedorID {
				ganador = true
				break
			}
		}
		if !ganador {
			return workflow.NotFound("el proveedor %d no tiene partidas ganadoras en la requisición %d", proveedorID, id)
		}
		if err := s.repo.SaveOrdenMetaTx(ctx, tx, meta); err != nil {
			return fmt.Errorf("guardar orden de compra: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, conEstado(err, actual)
	}
	return &dto.OrdenMetaResponse{
		RequisicionID: id,
		ProveedorID:   proveedorID,
		Folio:         meta.Folio,
		IncluyeIVA:    meta.IncluyeIVA,
		PorcentajeIVA: meta.PorcentajeIVA,
	}, nil
}

// validarIVA: the percentage exists only with the flag and lies in [0, 100].
func validarIVA(req dto.OrdenMetaRequest) error {
	if !req.IncluyeIVA {
		if req.PorcentajeIVA != nil {
			return workflow.Validation("porcentaje_iva debe omitirse cuando no se incluye IVA")
		}
		return nil
	}
	if req.PorcentajeIVA == nil {
		return workflow.Validation("porcentaje_iva es requerido cuando se incluye IVA")
	}
	if req.PorcentajeIVA.IsNegative() || req.PorcentajeIVA.GreaterThan(cien) {
		return workflow.Validation("porcentaje_iva debe estar entre 0 y 100")
	}
	return nil
}

// ── MarcarComprada ────────────────────────────────────────────────────────────

func (s *seleccionService) MarcarComprada(ctx context.Context, actor workflow.Actor, id uint) (*dto.TransicionResponse, error) {
	r, anterior, sinCambios, err := s.motor.avanzar(ctx, actor, id, workflow.EstadoComprada, "")
	if err != nil {
		return nil, err
	}
	if !sinCambios {
		s.avisos.cambioEstado(ctx, r, anterior)
	}
	return transicionResponse(r, anterior, sinCambios), nil
}

// ── ResumenOrdenes ────────────────────────────────────────────────────────────
// subtotal = Σ cantidad × precio; iva = subtotal × pct / 100 when included.
// Line amounts and taxes are rounded to cents. A line won without a unit price
// contributes zero and is listed in SinPrecio.

func (s *seleccionService) ResumenOrdenes(ctx context.Context, actor workflow.Actor, id uint) (*dto.OrdenesResponse, error) {
	r, err := s.reqRepo.FindByID(ctx, id)
	if err != nil {
		return nil, noEncontrada(err, id)
	}
	if !workflow.PuedeVer(actor, r.Propiedad()) {
		return nil, workflow.Forbidden("no tiene acceso a la requisición %d", id)
	}
	sel, err := s.repo.ListSeleccionesTx(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("listar selecciones: %w", err)
	}
	if len(sel) == 0 {
		return nil, workflow.WithEstado(workflow.InvalidState("la requisición no tiene ganadores seleccionados"), r.Estado)
	}
	metas, err := s.repo.FindOrdenMetasTx(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("listar órdenes: %w", err)
	}

	porProveedor := map[uint]model.OrdenCompraMeta{}
	for _, m := range metas {
		porProveedor[m.ProveedorID] = m
	}
	partidas := map[uint]model.Partida{}
	for _, p := range r.Partidas {
		partidas[p.ID] = p
	}

	var ids []uint
	grupos := map[uint][]model.SeleccionGanador{}
	for _, sg := range sel {
		if _, ok := grupos[sg.ProveedorID]; !ok {
			ids = append(ids, sg.ProveedorID)
		}
		grupos[sg.ProveedorID] = append(grupos[sg.ProveedorID], sg)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	proveedores, err := s.proveedores.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("buscar proveedores: %w", err)
	}
	nombres := map[uint]model.Proveedor{}
	for _, p := range proveedores {
		nombres[p.ID] = p
	}

	resp := &dto.OrdenesResponse{
		RequisicionID: r.ID,
		Folio:         r.Folio,
		Nombre:        r.Nombre,
		TipoOrden:     r.TipoOrden,
		Estado:        int(r.Estado),
		Ordenes:       make([]dto.OrdenResumen, 0, len(ids)),
	}
	for _, pid := range ids {
		resp.Ordenes = append(resp.Ordenes, calcularOrden(pid, grupos[pid], partidas, porProveedor[pid], nombres[pid]))
	}
	return resp, nil
}

func calcularOrden(
	proveedorID uint,
	sel []model.SeleccionGanador,
	partidas map[uint]model.Partida,
	meta model.OrdenCompraMeta,
	proveedor model.Proveedor,
) dto.OrdenResumen {
	orden := dto.OrdenResumen{
		ProveedorID:   proveedorID,
		RazonSocial:   proveedor.RazonSocial,
		RFC:           proveedor.RFC,
		Folio:         meta.Folio,
		IncluyeIVA:    meta.IncluyeIVA,
		PorcentajeIVA: meta.PorcentajeIVA,
		Partidas:      make([]dto.OrdenPartida, 0, len(sel)),
		Subtotal:      decimal.Zero,
		IVA:           decimal.Zero,
	}
	sort.Slice(sel, func(i, j int) bool { return sel[i].PartidaID < sel[j].PartidaID })
	for _, sg := range sel {
		p := partidas[sg.PartidaID]
		linea := dto.OrdenPartida{
			PartidaID:   sg.PartidaID,
			Producto:    p.Producto,
			Descripcion: sg.Descripcion,
			Cantidad:    p.Cantidad,
			Importe:     decimal.Zero,
		}
		if sg.PrecioUnitario.Valid {
			precio := sg.PrecioUnitario.Decimal
			linea.PrecioUnitario = &precio
			linea.Importe = p.Cantidad.Mul(precio).Round(2)
		} else {
			orden.SinPrecio = append(orden.SinPrecio, sg.PartidaID)
		}
		orden.Partidas = append(orden.Partidas, linea)
		orden.Subtotal = orden.Subtotal.Add(linea.Importe)
	}
	if meta.IncluyeIVA && meta.PorcentajeIVA != nil {
		orden.IVA = orden.Subtotal.Mul(*meta.PorcentajeIVA).Div(cien).Round(2)
	}
	orden.Total = orden.Subtotal.Add(orden.IVA)
	return orden
}

// ── OrdenParaDocumento ────────────────────────────────────────────────────────

func (s *seleccionService) OrdenParaDocumento(ctx context.Context, actor workflow.Actor, id, proveedorID uint) (*dto.OrdenesResponse, error) {
	resumen, err := s.ResumenOrdenes(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	estado := workflow.Estado(resumen.Estado)
	for _, o := range resumen.Ordenes {
		if o.ProveedorID != proveedorID {
			continue
		}
		if o.Folio == "" {
			return nil, workflow.WithEstado(workflow.Incomplete("falta el folio de orden de compra del proveedor %d", proveedorID), estado)
		}
		resumen.Ordenes = []dto.OrdenResumen{o}
		return resumen, nil
	}
	return nil, workflow.WithEstado(workflow.NotFound("el proveedor %d no tiene partidas ganadoras en la requisición %d", proveedorID, id), estado)
}
