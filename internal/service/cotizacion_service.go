package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"requisiciones/internal/dto"
	"requisiciones/internal/model"
	"requisiciones/internal/repository"
	"requisiciones/internal/workflow"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CotizacionService is the quotation protocol controller: invitations, price
// capture, closing and reopening the reception, and hand-off to review.
type CotizacionService interface {
	Invitar(ctx context.Context, actor workflow.Actor, id uint, req dto.InvitarProveedoresRequest) (*dto.InvitacionResponse, error)
	GuardarPrecios(ctx context.Context, actor workflow.Actor, id uint, req dto.GuardarPreciosRequest) (*dto.GuardarPreciosResponse, error)
	Declinar(ctx context.Context, actor workflow.Actor, id, proveedorID uint) (*dto.SolicitudResponse, error)
	Cerrar(ctx context.Context, actor workflow.Actor, id uint, req dto.CerrarCotizacionRequest) (*dto.CierreResponse, error)
	Reabrir(ctx context.Context, actor workflow.Actor, id uint) (*dto.CierreResponse, error)
	EnviarARevision(ctx context.Context, actor workflow.Actor, id uint) (*dto.TransicionResponse, error)
	Comparativo(ctx context.Context, actor workflow.Actor, id uint) (*dto.ComparativoResponse, error)
}

type cotizacionService struct {
	motor       *motor
	repo        repository.CotizacionRepository
	reqRepo     repository.RequisicionRepository
	proveedores repository.ProveedorRepository
	avisos      *avisos
	ahora       func() time.Time
}

func NewCotizacionService(
	reqRepo repository.RequisicionRepository,
	repo repository.CotizacionRepository,
	ordenRepo repository.OrdenRepository,
	proveedores repository.ProveedorRepository,
	usuarios repository.UsuarioRepository,
	notif Notificador,
) CotizacionService {
	return &cotizacionService{
		motor:       &motor{requisiciones: reqRepo, cotizaciones: repo, ordenes: ordenRepo},
		repo:        repo,
		reqRepo:     reqRepo,
		proveedores: proveedores,
		avisos:      newAvisos(notif, usuarios),
		ahora:       time.Now,
	}
}

// recepcionAbierta is the guard shared by invite, save prices and decline.
func recepcionAbierta(r *model.Requisicion) error {
	if r.CotizacionCerrada() || r.Estado.AlMenos(workflow.EstadoRevision) {
		return workflow.Conflict("la recepción de cotizaciones de la requisición %s ya fue cerrada", r.Folio)
	}
	if r.Estado != workflow.EstadoCotizacion {
		return workflow.InvalidState("la requisición no está en cotización")
	}
	return nil
}

// ── Invitar ───────────────────────────────────────────────────────────────────

func (s *cotizacionService) Invitar(ctx context.Context, actor workflow.Actor, id uint, req dto.InvitarProveedoresRequest) (*dto.InvitacionResponse, error) {
	ids := dedupIDs(req.ProveedorIDs)
	if len(ids) == 0 {
		return nil, workflow.Validation("se requiere al menos un proveedor")
	}

	var (
		r      *model.Requisicion
		actual workflow.Estado
		nuevos []model.Proveedor
		filas  []model.SolicitudCotizacion
	)
	err := runTx(ctx, s.reqRepo.DB(), func(tx *gorm.DB) error {
		var err error
		r, err = s.motor.cargar(ctx, tx, id)
		if err != nil {
			return err
		}
		actual = r.Estado
		if err := recepcionAbierta(r); err != nil {
			return err
		}
		if err := workflow.AutorizarCompras(actor, r.Propiedad()); err != nil {
			return err
		}

		proveedores, err := s.proveedores.FindByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("buscar proveedores: %w", err)
		}
		if faltan := idsFaltantes(ids, proveedores); len(faltan) > 0 {
			return workflow.NotFound("proveedores no encontrados: %s", listaIDs(faltan))
		}

		existentes, err := s.repo.FindSolicitudesTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("listar invitaciones: %w", err)
		}
		porProveedor := make(map[uint]*model.SolicitudCotizacion, len(existentes))
		for i := range existentes {
			porProveedor[existentes[i].ProveedorID] = &existentes[i]
		}

		ahora := s.ahora()
		for _, p := range proveedores {
			prev := porProveedor[p.ID]
			fila := mergeInvitacion(prev, id, p.ID, req.FechaLimite, ahora)
			if err := s.repo.SaveSolicitudTx(ctx, tx, &fila); err != nil {
				return fmt.Errorf("guardar invitación: %w", err)
			}
			if prev == nil || prev.Estado != fila.Estado {
				nuevos = append(nuevos, p)
			}
			prov := p
			fila.Proveedor = &prov
			filas = append(filas, fila)
		}
		return nil
	})
	if err != nil {
		return nil, conEstado(err, actual)
	}

	log.Info().Uint("requisicion_id", id).Int("proveedores", len(filas)).Msg("proveedores invitados")
	s.avisos.invitacion(ctx, r, nuevos, req.FechaLimite)

	resp := &dto.InvitacionResponse{RequisicionID: id, Estado: int(r.Estado)}
	for _, f := range filas {
		resp.Solicitudes = append(resp.Solicitudes, solicitudToResponse(f))
	}
	return resp, nil
}

// ── GuardarPrecios ────────────────────────────────────────────────────────────
// Cells of providers that were never invited and empty cells are dropped.
// Every provider with at least one stored cell becomes responded.

func (s *cotizacionService) GuardarPrecios(ctx context.Context, actor workflow.Actor, id uint, req dto.GuardarPreciosRequest) (*dto.GuardarPreciosResponse, error) {
	for _, c := range req.Celdas {
		if c.PrecioUnitario != nil && c.PrecioUnitario.IsNegative() {
			return nil, workflow.Validation("precio negativo para la partida %d del proveedor %d", c.PartidaID, c.ProveedorID)
		}
	}

	resp := &dto.GuardarPreciosResponse{RequisicionID: id, Respondieron: []uint{}}
	var actual workflow.Estado
	err := runTx(ctx, s.reqRepo.DB(), func(tx *gorm.DB) error {
		r, err := s.motor.cargar(ctx, tx, id)
		if err != nil {
			return err
		}
		actual = r.Estado
		if err := recepcionAbierta(r); err != nil {
			return err
		}
		if err := workflow.AutorizarCompras(actor, r.Propiedad()); err != nil {
			return err
		}

		partidas := make(map[uint]bool, len(r.Partidas))
		for _, p := range r.Partidas {
			partidas[p.ID] = true
		}
		for _, c := range req.Celdas {
			if !partidas[c.PartidaID] {
				return workflow.NotFound("la partida %d no pertenece a la requisición %d", c.PartidaID, id)
			}
		}

		solicitudes, err := s.repo.FindSolicitudesTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("listar invitaciones: %w", err)
		}
		invitados := make(map[uint]model.SolicitudCotizacion, len(solicitudes))
		for _, sc := range solicitudes {
			invitados[sc.ProveedorID] = sc
		}

		precios, err := s.repo.FindPreciosTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("listar precios: %w", err)
		}
		previos := make(map[celdaKey]*model.PrecioCotizacion, len(precios))
		for i := range precios {
			previos[celdaKey{precios[i].PartidaID, precios[i].ProveedorID}] = &precios[i]
		}

		// Last cell wins when the payload repeats a key.
		celdas := make(map[celdaKey]dto.CeldaPrecioInput)
		var orden []celdaKey
		for _, c := range req.Celdas {
			if _, ok := invitados[c.ProveedorID]; !ok {
				log.Debug().Uint("requisicion_id", id).Uint("proveedor_id", c.ProveedorID).Msg("celda de proveedor no invitado descartada")
				resp.Descartadas++
				continue
			}
			if celdaVacia(c) {
				resp.Descartadas++
				continue
			}
			k := celdaKey{c.PartidaID, c.ProveedorID}
			if _, ok := celdas[k]; !ok {
				orden = append(orden, k)
			}
			celdas[k] = c
		}

		contribuyen := map[uint]bool{}
		for _, k := range orden {
			fila := mergePrecio(previos[k], id, celdas[k])
			if err := s.repo.SavePrecioTx(ctx, tx, &fila); err != nil {
				return fmt.Errorf("guardar precio: %w", err)
			}
			contribuyen[k.proveedorID] = true
			resp.Guardadas++
		}

		ahora := s.ahora()
		for _, pid := range ordenarIDs(contribuyen) {
			fila := mergeRespuesta(invitados[pid], ahora)
			if err := s.repo.SaveSolicitudTx(ctx, tx, &fila); err != nil {
				return fmt.Errorf("marcar respuesta: %w", err)
			}
			resp.Respondieron = append(resp.Respondieron, pid)
		}
		return nil
	})
	if err != nil {
		return nil, conEstado(err, actual)
	}
	return resp, nil
}

// ── Declinar ──────────────────────────────────────────────────────────────────

func (s *cotizacionService) Declinar(ctx context.Context, actor workflow.Actor, id, proveedorID uint) (*dto.SolicitudResponse, error) {
	var (
		fila   model.SolicitudCotizacion
		actual workflow.Estado
	)
	err := runTx(ctx, s.reqRepo.DB(), func(tx *gorm.DB) error {
		r, err := s.motor.cargar(ctx, tx, id)
		if err != nil {
			return err
		}
		actual = r.Estado
		if err := recepcionAbierta(r); err != nil {
			return err
		}
		if err := workflow.AutorizarCompras(actor, r.Propiedad()); err != nil {
			return err
		}
		solicitudes, err := s.repo.FindSolicitudesTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("listar invitaciones: %w", err)
		}
		encontrada := false
		for _, sc := range solicitudes {
			if sc.ProveedorID == proveedorID {
				fila, encontrada = sc, true
				break
			}
		}
		if !encontrada {
			return workflow.NotFound("el proveedor %d no está invitado a la requisición %d", proveedorID, id)
		}
		nueva, cambio := mergeDeclinacion(fila)
		if !cambio {
			return nil
		}
		if err := s.repo.SaveSolicitudTx(ctx, tx, &nueva); err != nil {
			return fmt.Errorf("guardar declinación: %w", err)
		}
		nueva.Proveedor = fila.Proveedor
		fila = nueva
		return nil
	})
	if err != nil {
		return nil, conEstado(err, actual)
	}
	resp := solicitudToResponse(fila)
	return &resp, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Closing twice, or after review was entered, succeeds with zero affected rows.
// A rejected requisition has no reception to close.

func (s *cotizacionService) Cerrar(ctx context.Context, actor workflow.Actor, id uint, req dto.CerrarCotizacionRequest) (*dto.CierreResponse, error) {
	var (
		r      *model.Requisicion
		actual workflow.Estado
		resp   = &dto.CierreResponse{RequisicionID: id}
	)
	err := runTx(ctx, s.reqRepo.DB(), func(tx *gorm.DB) error {
		var err error
		r, err = s.motor.cargar(ctx, tx, id)
		if err != nil {
			return err
		}
		actual = r.Estado
		if r.Estado == workflow.EstadoRechazada {
			return workflow.InvalidState("la requisición está rechazada y no admite cambios")
		}
		yaCerrada := r.CotizacionCerrada() || r.Estado.AlMenos(workflow.EstadoRevision)
		if r.Estado != workflow.EstadoCotizacion && !yaCerrada {
			return workflow.InvalidState("solo se puede cerrar la recepción de una requisición en cotización")
		}
		if err := workflow.AutorizarCompras(actor, r.Propiedad()); err != nil {
			return err
		}
		if yaCerrada {
			resp.SinCambios = true
			return nil
		}

		ahora := s.ahora()
		nota := textoOpcional(req.Nota)
		n, err := s.reqRepo.CerrarCotizacionTx(ctx, tx, id, nota, ahora)
		if err != nil {
			return fmt.Errorf("cerrar recepción: %w", err)
		}
		if n == 0 {
			resp.SinCambios = true
			return nil
		}
		expiradas, err := s.repo.ExpirarInvitadasTx(ctx, tx, id, ahora)
		if err != nil {
			return fmt.Errorf("expirar invitaciones: %w", err)
		}
		r.CotizacionCerradaEn = &ahora
		r.NotaCierre = nota
		resp.Afectadas = expiradas
		comentario := ""
		if nota != nil {
			comentario = *nota
		}
		return s.motor.historial(ctx, tx, id, r.Estado, r.Estado, AccionCierre, actor, comentario,
			map[string]interface{}{"expiradas": expiradas})
	})
	if err != nil {
		return nil, conEstado(err, actual)
	}
	resp.Estado = int(r.Estado)
	resp.CotizacionCerradaEn = r.CotizacionCerradaEn
	log.Info().Uint("requisicion_id", id).Int64("expiradas", resp.Afectadas).Bool("sin_cambios", resp.SinCambios).Msg("recepción de cotizaciones cerrada")
	return resp, nil
}

// ── Reabrir ───────────────────────────────────────────────────────────────────
// Refused once review was entered: selection depends on the closed snapshot.

func (s *cotizacionService) Reabrir(ctx context.Context, actor workflow.Actor, id uint) (*dto.CierreResponse, error) {
	var (
		r      *model.Requisicion
		actual workflow.Estado
		resp   = &dto.CierreResponse{RequisicionID: id}
	)
	err := runTx(ctx, s.reqRepo.DB(), func(tx *gorm.DB) error {
		var err error
		r, err = s.motor.cargar(ctx, tx, id)
		if err != nil {
			return err
		}
		actual = r.Estado
		if r.Estado == workflow.EstadoRevision {
			return workflow.InvalidState("la requisición ya está en revisión; la cotización no puede reabrirse")
		}
		if r.Estado != workflow.EstadoCotizacion {
			return workflow.InvalidState("solo se puede reabrir la recepción de una requisición en cotización")
		}
		if err := workflow.AutorizarCompras(actor, r.Propiedad()); err != nil {
			return err
		}
		if !r.CotizacionCerrada() {
			resp.SinCambios = true
			return nil
		}
		n, err := s.reqRepo.ReabrirCotizacionTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("reabrir recepción: %w", err)
		}
		if n == 0 {
			resp.SinCambios = true
			return nil
		}
		r.CotizacionCerradaEn = nil
		r.NotaCierre = nil
		resp.Afectadas = n
		return s.motor.historial(ctx, tx, id, r.Estado, r.Estado, AccionReapertura, actor, "", nil)
	})
	if err != nil {
		return nil, conEstado(err, actual)
	}
	resp.Estado = int(r.Estado)
	resp.CotizacionCerradaEn = r.CotizacionCerradaEn
	return resp, nil
}

// ── EnviarARevision ───────────────────────────────────────────────────────────

func (s *cotizacionService) EnviarARevision(ctx context.Context, actor workflow.Actor, id uint) (*dto.TransicionResponse, error) {
	r, anterior, sinCambios, err := s.motor.avanzar(ctx, actor, id, workflow.EstadoRevision, "")
	if err != nil {
		return nil, err
	}
	if !sinCambios {
		s.avisos.cambioEstado(ctx, r, anterior)
	}
	return transicionResponse(r, anterior, sinCambios), nil
}

// ── Comparativo ───────────────────────────────────────────────────────────────
// Read-only line item × provider matrix. The lowest price of each row is flagged.

func (s *cotizacionService) Comparativo(ctx context.Context, actor workflow.Actor, id uint) (*dto.ComparativoResponse, error) {
	r, err := s.reqRepo.FindByID(ctx, id)
	if err != nil {
		return nil, noEncontrada(err, id)
	}
	if !workflow.PuedeVer(actor, r.Propiedad()) {
		return nil, workflow.Forbidden("no tiene acceso a la requisición %d", id)
	}
	if !r.Estado.AlMenos(workflow.EstadoCotizacion) && r.Estado != workflow.EstadoRechazada {
		return nil, workflow.WithEstado(workflow.InvalidState("la requisición aún no llega a cotización"), r.Estado)
	}

	solicitudes, err := s.repo.FindSolicitudesTx(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("listar invitaciones: %w", err)
	}
	precios, err := s.repo.FindPreciosTx(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("listar precios: %w", err)
	}
	celdas := make(map[celdaKey]model.PrecioCotizacion, len(precios))
	for _, p := range precios {
		celdas[celdaKey{p.PartidaID, p.ProveedorID}] = p
	}

	resp := &dto.ComparativoResponse{
		RequisicionID: r.ID,
		Folio:         r.Folio,
		Estado:        int(r.Estado),
		Cerrada:       r.CotizacionCerrada(),
		Proveedores:   make([]dto.ProveedorColumna, 0, len(solicitudes)),
		Filas:         make([]dto.FilaComparativo, 0, len(r.Partidas)),
	}
	for _, sc := range solicitudes {
		col := dto.ProveedorColumna{ProveedorID: sc.ProveedorID, Estado: sc.Estado}
		if sc.Proveedor != nil {
			col.RazonSocial = sc.Proveedor.RazonSocial
		}
		resp.Proveedores = append(resp.Proveedores, col)
	}

	for _, p := range r.Partidas {
		fila := dto.FilaComparativo{PartidaID: p.ID, Producto: p.Producto, Cantidad: p.Cantidad}
		var menor *decimal.Decimal
		for _, col := range resp.Proveedores {
			celda := dto.CeldaComparativo{ProveedorID: col.ProveedorID}
			if pc, ok := celdas[celdaKey{p.ID, col.ProveedorID}]; ok {
				celda.DescripcionOfrecida = pc.DescripcionOfrecida
				celda.Notas = pc.Notas
				celda.EsGanador = pc.EsGanador
				if pc.PrecioUnitario.Valid {
					precio := pc.PrecioUnitario.Decimal
					importe := precio.Mul(p.Cantidad).Round(2)
					celda.PrecioUnitario = &precio
					celda.Importe = &importe
					if menor == nil || precio.LessThan(*menor) {
						menor = &precio
					}
				}
			}
			fila.Celdas = append(fila.Celdas, celda)
		}
		if menor != nil {
			for i := range fila.Celdas {
				if fila.Celdas[i].PrecioUnitario != nil && fila.Celdas[i].PrecioUnitario.Equal(*menor) {
					fila.Celdas[i].EsMenor = true
				}
			}
		}
		resp.Filas = append(resp.Filas, fila)
	}
	return resp, nil
}

type celdaKey struct {
	partidaID   uint
	proveedorID uint
}

func dedupIDs(ids []uint) []uint {
	vistos := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || vistos[id] {
			continue
		}
		vistos[id] = true
		out = append(out, id)
	}
	return out
}

func idsFaltantes(ids []uint, encontrados []model.Proveedor) []uint {
	hay := make(map[uint]bool, len(encontrados))
	for _, p := range encontrados {
		hay[p.ID] = true
	}
	var faltan []uint
	for _, id := range ids {
		if !hay[id] {
			faltan = append(faltan, id)
		}
	}
	return faltan
}

func ordenarIDs(set map[uint]bool) []uint {
	out := make([]uint, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
