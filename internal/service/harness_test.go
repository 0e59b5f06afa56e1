package service_test

import (
	"context"
	"testing"

	"requisiciones/internal/dto"
	"requisiciones/internal/model"
	"requisiciones/internal/service"
	"requisiciones/internal/workflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint         { return &v }
func strPtr(v string) *string      { return &v }
func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }
func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

var (
	solicitante = workflow.Actor{ID: 1, Rol: workflow.RolSolicitante}
	ajeno       = workflow.Actor{ID: 2, Rol: workflow.RolSolicitante}
	coordinador = workflow.Actor{ID: 10, Rol: workflow.RolCoordinador, UREID: uintPtr(5)}
	secretario  = workflow.Actor{ID: 20, Rol: workflow.RolSecretario}
	compras     = workflow.Actor{ID: 30, Rol: workflow.RolCompras}
	compras2    = workflow.Actor{ID: 31, Rol: workflow.RolCompras}
	admin       = workflow.Actor{ID: 40, Rol: workflow.RolAdminCompras}
)

const (
	P1 uint = 501
	P2 uint = 502
	P3 uint = 503
)

type harness struct {
	store *memStore
	notif *stubNotificador
	req   service.RequisicionService
	cot   service.CotizacionService
	sel   service.SeleccionService
}

func newHarness() *harness {
	s := newMemStore()
	for _, p := range []model.Proveedor{
		{ID: P1, RazonSocial: "Papelería del Centro", RFC: "PCE010101AAA", Email: strPtr("ventas@pce.mx"), Activo: true},
		{ID: P2, RazonSocial: "Suministros Norte", RFC: "SNO020202BBB", Email: strPtr("cotiza@sno.mx"), Activo: true},
		{ID: P3, RazonSocial: "Sin Correo SA", RFC: "SCS030303CCC", Activo: true},
	} {
		s.proveedores[p.ID] = p
	}
	for _, u := range []model.Usuario{
		{ID: 1, Nombre: "Ana", Email: strPtr("ana@uni.mx"), Rol: "solicitante", Activo: true},
		{ID: 30, Nombre: "Beto", Email: strPtr("beto@uni.mx"), Rol: "compras", Activo: true},
		{ID: 31, Nombre: "Caro", Rol: "compras", Activo: true},
		{ID: 32, Nombre: "Inactivo", Rol: "compras", Activo: false},
		{ID: 33, Nombre: "Otro", Rol: "coordinador", Activo: true},
	} {
		s.usuarios[u.ID] = u
	}

	reqRepo := &stubRequisicionRepo{s: s}
	cotRepo := &stubCotizacionRepo{s: s}
	ordRepo := &stubOrdenRepo{s: s}
	provRepo := &stubProveedorRepo{s: s}
	usrRepo := &stubUsuarioRepo{s: s}
	notif := &stubNotificador{}

	return &harness{
		store: s,
		notif: notif,
		req:   service.NewRequisicionService(reqRepo, cotRepo, ordRepo, usrRepo, notif),
		cot:   service.NewCotizacionService(reqRepo, cotRepo, ordRepo, provRepo, usrRepo, notif),
		sel:   service.NewSeleccionService(reqRepo, cotRepo, ordRepo, provRepo, usrRepo, notif),
	}
}

func (h *harness) crear(t *testing.T) *dto.RequisicionResponse {
	t.Helper()
	resp, err := h.req.Crear(context.Background(), solicitante, dto.CrearRequisicionRequest{
		Nombre:        "Material de oficina",
		Justificacion: "Reposición trimestral",
		UREID:         5,
		TipoOrden:     model.TipoOrdenCompra,
		Partidas: []dto.PartidaInput{
			{Producto: "Hojas carta", Cantidad: dec("2")},
			{Producto: "Tóner", Descripcion: strPtr("compatible HP"), Cantidad: dec("3")},
		},
	})
	require.NoError(t, err)
	return resp
}

func (h *harness) avanzar(t *testing.T, actor workflow.Actor, id uint, estado workflow.Estado) {
	t.Helper()
	_, err := h.req.AvanzarEstado(context.Background(), actor, id, dto.AvanzarEstadoRequest{Estado: int(estado)})
	require.NoError(t, err)
}

// enCotizacion returns a requisition at status 12 and its two line item ids.
func (h *harness) enCotizacion(t *testing.T) (uint, uint, uint) {
	t.Helper()
	r := h.crear(t)
	h.avanzar(t, solicitante, r.ID, workflow.EstadoCoordinacion)
	h.avanzar(t, coordinador, r.ID, workflow.EstadoSecretaria)
	h.avanzar(t, secretario, r.ID, workflow.EstadoCotizacion)
	return r.ID, r.Partidas[0].ID, r.Partidas[1].ID
}

// enRevision returns a requisition at status 14 where P1 quoted the first
// line item and both P1 and P2 quoted the second.
func (h *harness) enRevision(t *testing.T) (uint, uint, uint) {
	t.Helper()
	ctx := context.Background()
	id, l1, l2 := h.enCotizacion(t)
	_, err := h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1, P2}})
	require.NoError(t, err)
	_, err = h.cot.GuardarPrecios(ctx, compras, id, dto.GuardarPreciosRequest{Celdas: []dto.CeldaPrecioInput{
		{PartidaID: l1, ProveedorID: P1, PrecioUnitario: decPtr("100.50")},
		{PartidaID: l2, ProveedorID: P1, PrecioUnitario: decPtr("12")},
		{PartidaID: l2, ProveedorID: P2, PrecioUnitario: decPtr("10"), DescripcionOfrecida: strPtr("genérico")},
	}})
	require.NoError(t, err)
	_, err = h.cot.Cerrar(ctx, compras, id, dto.CerrarCotizacionRequest{})
	require.NoError(t, err)
	_, err = h.cot.EnviarARevision(ctx, compras, id)
	require.NoError(t, err)
	return id, l1, l2
}

func (h *harness) estado(id uint) workflow.Estado {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.store.requisiciones[id].Estado
}

func (h *harness) requisicion(id uint) model.Requisicion {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.store.requisiciones[id]
}

func (h *harness) solicitud(id, proveedorID uint) model.SolicitudCotizacion {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.store.solicitudes[[2]uint{id, proveedorID}]
}

func (h *harness) ganadores(id uint) map[[2]uint]bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	out := map[[2]uint]bool{}
	for k, p := range h.store.precios {
		if k[0] == id && p.EsGanador {
			out[[2]uint{k[1], k[2]}] = true
		}
	}
	return out
}

// requireKind asserts a domain error of the given kind carrying the status.
func requireKind(t *testing.T, err error, kind workflow.Kind, estado workflow.Estado) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, workflow.KindOf(err), "error: %v", err)
	got, ok := workflow.EstadoOf(err)
	require.True(t, ok, "error must carry the current status")
	require.Equal(t, estado, got)
}
