package service

import (
	"context"
	"errors"
	"fmt"

	"requisiciones/internal/dto"
	"requisiciones/internal/model"
	"requisiciones/internal/repository"
	"requisiciones/internal/workflow"

	"gorm.io/gorm"
)

// RequisicionService owns the requisition lifecycle outside the quotation
// sub-protocol: drafts, generic status changes and operator assignment.
type RequisicionService interface {
	Crear(ctx context.Context, actor workflow.Actor, req dto.CrearRequisicionRequest) (*dto.RequisicionResponse, error)
	ReemplazarPartidas(ctx context.Context, actor workflow.Actor, id uint, req dto.ReemplazarPartidasRequest) (*dto.RequisicionResponse, error)
	Obtener(ctx context.Context, actor workflow.Actor, id uint) (*dto.RequisicionResponse, error)
	AvanzarEstado(ctx context.Context, actor workflow.Actor, id uint, req dto.AvanzarEstadoRequest) (*dto.TransicionResponse, error)
	AsignarOperador(ctx context.Context, actor workflow.Actor, id uint, req dto.AsignarOperadorRequest) (*dto.RequisicionResponse, error)
}

type requisicionService struct {
	motor    *motor
	repo     repository.RequisicionRepository
	cotRepo  repository.CotizacionRepository
	usuarios repository.UsuarioRepository
	avisos   *avisos
}

func NewRequisicionService(
	repo repository.RequisicionRepository,
	cotRepo repository.CotizacionRepository,
	ordenRepo repository.OrdenRepository,
	usuarios repository.UsuarioRepository,
	notif Notificador,
) RequisicionService {
	return &requisicionService{
		motor:    &motor{requisiciones: repo, cotizaciones: cotRepo, ordenes: ordenRepo},
		repo:     repo,
		cotRepo:  cotRepo,
		usuarios: usuarios,
		avisos:   newAvisos(notif, usuarios),
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────

func (s *requisicionService) Crear(ctx context.Context, actor workflow.Actor, req dto.CrearRequisicionRequest) (*dto.RequisicionResponse, error) {
	if actor.Rol != workflow.RolSolicitante {
		return nil, workflow.Forbidden("solo un solicitante puede crear requisiciones")
	}
	if len(req.Partidas) == 0 {
		return nil, workflow.Validation("la requisición debe tener al menos una partida")
	}

	r := &model.Requisicion{
		Nombre:        req.Nombre,
		Justificacion: req.Justificacion,
		Observaciones: textoOpcional(req.Observaciones),
		CreadorID:     actor.ID,
		UREID:         req.UREID,
		CategoriaID:   req.CategoriaID,
		TipoOrden:     req.TipoOrden,
		Estado:        workflow.EstadoBorrador,
		Partidas:      partidasFromInput(req.Partidas),
	}
	if r.TipoOrden == "" {
		r.TipoOrden = model.TipoOrdenCompra
	}

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		n, err := s.repo.NextFolio(ctx, tx)
		if err != nil {
			return fmt.Errorf("generar folio: %w", err)
		}
		r.Folio = fmt.Sprintf("REQ-%06d", n)
		if err := s.repo.Create(ctx, tx, r); err != nil {
			return fmt.Errorf("crear requisición: %w", err)
		}
		return s.motor.historial(ctx, tx, r.ID, r.Estado, r.Estado, AccionCreacion, actor, "", nil)
	})
	if err != nil {
		return nil, err
	}
	return requisicionToResponse(r), nil
}

// ── ReemplazarPartidas ────────────────────────────────────────────────────────
// Line items are editable only while the requisition is a draft.

func (s *requisicionService) ReemplazarPartidas(ctx context.Context, actor workflow.Actor, id uint, req dto.ReemplazarPartidasRequest) (*dto.RequisicionResponse, error) {
	if len(req.Partidas) == 0 {
		return nil, workflow.Validation("la requisición debe tener al menos una partida")
	}
	var (
		r      *model.Requisicion
		actual workflow.Estado
	)
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		r, err = s.motor.cargar(ctx, tx, id)
		if err != nil {
			return err
		}
		actual = r.Estado
		if r.Estado != workflow.EstadoBorrador {
			return workflow.InvalidState("solo se pueden modificar las partidas de un borrador")
		}
		if err := workflow.AutorizarSolicitante(actor, r.Propiedad()); err != nil {
			return err
		}
		partidas := partidasFromInput(req.Partidas)
		if err := s.repo.ReplacePartidasTx(ctx, tx, id, partidas); err != nil {
			return fmt.Errorf("reemplazar partidas: %w", err)
		}
		r.Partidas = partidas
		return nil
	})
	if err != nil {
		return nil, conEstado(err, actual)
	}
	return requisicionToResponse(r), nil
}

// ── Obtener ───────────────────────────────────────────────────────────────────

func (s *requisicionService) Obtener(ctx context.Context, actor workflow.Actor, id uint) (*dto.RequisicionResponse, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, noEncontrada(err, id)
	}
	if !workflow.PuedeVer(actor, r.Propiedad()) {
		return nil, workflow.Forbidden("no tiene acceso a la requisición %d", id)
	}

	resp := requisicionToResponse(r)
	solicitudes, err := s.cotRepo.FindSolicitudesTx(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("listar invitaciones: %w", err)
	}
	for _, sc := range solicitudes {
		resp.Solicitudes = append(resp.Solicitudes, solicitudToResponse(sc))
	}
	historial, err := s.repo.ListHistorial(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listar historial: %w", err)
	}
	for _, h := range historial {
		resp.Historial = append(resp.Historial, historialToResponse(h))
	}
	return resp, nil
}

// ── AvanzarEstado ─────────────────────────────────────────────────────────────
// Generic guarded transition. Targets with extra preconditions (review,
// purchase process, purchased) are checked by the engine.

func (s *requisicionService) AvanzarEstado(ctx context.Context, actor workflow.Actor, id uint, req dto.AvanzarEstadoRequest) (*dto.TransicionResponse, error) {
	hacia, err := workflow.ParseEstado(req.Estado)
	if err != nil {
		return nil, err
	}
	r, anterior, sinCambios, err := s.motor.avanzar(ctx, actor, id, hacia, req.Comentario)
	if err != nil {
		return nil, err
	}
	if !sinCambios {
		s.avisos.cambioEstado(ctx, r, anterior)
	}
	return transicionResponse(r, anterior, sinCambios), nil
}

// ── AsignarOperador ───────────────────────────────────────────────────────────
// Admin-only. The operator must be an active purchasing user.

func (s *requisicionService) AsignarOperador(ctx context.Context, actor workflow.Actor, id uint, req dto.AsignarOperadorRequest) (*dto.RequisicionResponse, error) {
	var (
		r        *model.Requisicion
		actual   workflow.Estado
		operador *model.Usuario
	)
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		r, err = s.motor.cargar(ctx, tx, id)
		if err != nil {
			return err
		}
		actual = r.Estado
		if r.Estado != workflow.EstadoCotizacion && r.Estado != workflow.EstadoProcesoCompra {
			return workflow.InvalidState("solo se asigna operador en cotización o en proceso de compra")
		}
		if !actor.EsAdmin() {
			return workflow.Forbidden("solo un administrador de compras puede asignar operador")
		}
		operador, err = s.usuarios.FindByID(ctx, req.OperadorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.NotFound("usuario %d no encontrado", req.OperadorID)
			}
			return fmt.Errorf("buscar operador: %w", err)
		}
		if !operador.Activo || (operador.Rol != string(workflow.RolCompras) && operador.Rol != string(workflow.RolAdminCompras)) {
			return workflow.Validation("el usuario %d no es un operador de compras activo", req.OperadorID)
		}
		if err := s.repo.AsignarOperadorTx(ctx, tx, id, operador.ID); err != nil {
			return fmt.Errorf("asignar operador: %w", err)
		}
		opID := operador.ID
		r.OperadorID = &opID
		return s.motor.historial(ctx, tx, id, r.Estado, r.Estado, AccionAsignacion, actor, "",
			map[string]interface{}{"operador_id": opID})
	})
	if err != nil {
		return nil, conEstado(err, actual)
	}
	s.avisos.operadorAsignado(ctx, r, operador)
	return requisicionToResponse(r), nil
}
