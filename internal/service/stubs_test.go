package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"requisiciones/internal/model"
	"requisiciones/internal/repository"
	"requisiciones/internal/workflow"

	"gorm.io/gorm"
)

// memStore is the shared in-memory state behind the repository stubs.
// Stubs return copies so services only see changes made through the interfaces.
type memStore struct {
	mu            sync.Mutex
	requisiciones map[uint]model.Requisicion
	partidas      map[uint][]model.Partida
	historial     []model.HistorialEstado
	solicitudes   map[[2]uint]model.SolicitudCotizacion
	precios       map[[3]uint]model.PrecioCotizacion
	selecciones   map[uint][]model.SeleccionGanador
	metas         map[[2]uint]model.OrdenCompraMeta
	proveedores   map[uint]model.Proveedor
	usuarios      map[uint]model.Usuario
	folio         int64
	nextID        uint
}

func newMemStore() *memStore {
	return &memStore{
		requisiciones: map[uint]model.Requisicion{},
		partidas:      map[uint][]model.Partida{},
		solicitudes:   map[[2]uint]model.SolicitudCotizacion{},
		precios:       map[[3]uint]model.PrecioCotizacion{},
		selecciones:   map[uint][]model.SeleccionGanador{},
		metas:         map[[2]uint]model.OrdenCompraMeta{},
		proveedores:   map[uint]model.Proveedor{},
		usuarios:      map[uint]model.Usuario{},
		nextID:        100,
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) snapshot(id uint) (*model.Requisicion, error) {
	r, ok := m.requisiciones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r.Partidas = append([]model.Partida(nil), m.partidas[id]...)
	return &r, nil
}

// ── RequisicionRepository ────────────────────────────────────────────────────

type stubRequisicionRepo struct{ s *memStore }

var _ repository.RequisicionRepository = (*stubRequisicionRepo)(nil)

func (r *stubRequisicionRepo) DB() *gorm.DB { return nil }

func (r *stubRequisicionRepo) Create(_ context.Context, _ *gorm.DB, req *model.Requisicion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req.ID = r.s.id()
	req.CreatedAt = time.Now()
	for i := range req.Partidas {
		req.Partidas[i].ID = r.s.id()
		req.Partidas[i].RequisicionID = req.ID
	}
	r.s.partidas[req.ID] = append([]model.Partida(nil), req.Partidas...)
	row := *req
	row.Partidas = nil
	r.s.requisiciones[req.ID] = row
	return nil
}

func (r *stubRequisicionRepo) NextFolio(_ context.Context, _ *gorm.DB) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.folio++
	return r.s.folio, nil
}

func (r *stubRequisicionRepo) FindByID(_ context.Context, id uint) (*model.Requisicion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.snapshot(id)
}

func (r *stubRequisicionRepo) FindByIDForUpdate(_ context.Context, _ *gorm.DB, id uint) (*model.Requisicion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.snapshot(id)
}

func (r *stubRequisicionRepo) UpdateEstadoTx(_ context.Context, _ *gorm.DB, id uint, desde, hacia workflow.Estado, motivo *string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.requisiciones[id]
	if !ok || row.Estado != desde {
		return 0, nil
	}
	row.Estado = hacia
	if motivo != nil {
		m := *motivo
		row.MotivoRechazo = &m
	}
	r.s.requisiciones[id] = row
	return 1, nil
}

func (r *stubRequisicionRepo) CerrarCotizacionTx(_ context.Context, _ *gorm.DB, id uint, nota *string, ahora time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.requisiciones[id]
	if !ok || row.Estado != workflow.EstadoCotizacion || row.CotizacionCerradaEn != nil {
		return 0, nil
	}
	t := ahora
	row.CotizacionCerradaEn = &t
	row.NotaCierre = nota
	r.s.requisiciones[id] = row
	return 1, nil
}

func (r *stubRequisicionRepo) ReabrirCotizacionTx(_ context.Context, _ *gorm.DB, id uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.requisiciones[id]
	if !ok || row.Estado != workflow.EstadoCotizacion || row.CotizacionCerradaEn == nil {
		return 0, nil
	}
	row.CotizacionCerradaEn = nil
	row.NotaCierre = nil
	r.s.requisiciones[id] = row
	return 1, nil
}

func (r *stubRequisicionRepo) ReplacePartidasTx(_ context.Context, _ *gorm.DB, id uint, partidas []model.Partida) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range partidas {
		partidas[i].ID = r.s.id()
		partidas[i].RequisicionID = id
	}
	r.s.partidas[id] = append([]model.Partida(nil), partidas...)
	return nil
}

func (r *stubRequisicionRepo) AsignarOperadorTx(_ context.Context, _ *gorm.DB, id uint, operadorID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := r.s.requisiciones[id]
	op := operadorID
	row.OperadorID = &op
	r.s.requisiciones[id] = row
	return nil
}

func (r *stubRequisicionRepo) CreateHistorialTx(_ context.Context, _ *gorm.DB, h *model.HistorialEstado) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h.ID = r.s.id()
	h.CreatedAt = time.Now()
	r.s.historial = append(r.s.historial, *h)
	return nil
}

func (r *stubRequisicionRepo) ListHistorial(_ context.Context, id uint) ([]model.HistorialEstado, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.HistorialEstado
	for _, h := range r.s.historial {
		if h.RequisicionID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

// ── CotizacionRepository ─────────────────────────────────────────────────────

type stubCotizacionRepo struct{ s *memStore }

var _ repository.CotizacionRepository = (*stubCotizacionRepo)(nil)

func (r *stubCotizacionRepo) FindSolicitudesTx(_ context.Context, _ *gorm.DB, reqID uint) ([]model.SolicitudCotizacion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.SolicitudCotizacion
	for k, sc := range r.s.solicitudes {
		if k[0] == reqID {
			if p, ok := r.s.proveedores[sc.ProveedorID]; ok {
				sc.Proveedor = &p
			}
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProveedorID < out[j].ProveedorID })
	return out, nil
}

func (r *stubCotizacionRepo) SaveSolicitudTx(_ context.Context, _ *gorm.DB, sc *model.SolicitudCotizacion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := *sc
	row.Proveedor = nil
	r.s.solicitudes[[2]uint{sc.RequisicionID, sc.ProveedorID}] = row
	return nil
}

func (r *stubCotizacionRepo) ExpirarInvitadasTx(_ context.Context, _ *gorm.DB, reqID uint, _ time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, sc := range r.s.solicitudes {
		if k[0] == reqID && sc.Estado == model.InvitacionInvitado {
			sc.Estado = model.InvitacionExpirado
			r.s.solicitudes[k] = sc
			n++
		}
	}
	return n, nil
}

func (r *stubCotizacionRepo) FindPreciosTx(_ context.Context, _ *gorm.DB, reqID uint) ([]model.PrecioCotizacion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.PrecioCotizacion
	for k, p := range r.s.precios {
		if k[0] == reqID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PartidaID != out[j].PartidaID {
			return out[i].PartidaID < out[j].PartidaID
		}
		return out[i].ProveedorID < out[j].ProveedorID
	})
	return out, nil
}

func (r *stubCotizacionRepo) SavePrecioTx(_ context.Context, _ *gorm.DB, p *model.PrecioCotizacion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := [3]uint{p.RequisicionID, p.PartidaID, p.ProveedorID}
	row := *p
	if prev, ok := r.s.precios[k]; ok {
		row.EsGanador = prev.EsGanador
	}
	r.s.precios[k] = row
	return nil
}

func (r *stubCotizacionRepo) CountPreciosTx(_ context.Context, _ *gorm.DB, reqID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k := range r.s.precios {
		if k[0] == reqID {
			n++
		}
	}
	return n, nil
}

func (r *stubCotizacionRepo) LimpiarGanadoresTx(_ context.Context, _ *gorm.DB, reqID, partidaID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, p := range r.s.precios {
		if k[0] == reqID && k[1] == partidaID {
			p.EsGanador = false
			r.s.precios[k] = p
		}
	}
	return nil
}

func (r *stubCotizacionRepo) MarcarGanadorTx(_ context.Context, _ *gorm.DB, reqID, partidaID, proveedorID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := [3]uint{reqID, partidaID, proveedorID}
	p, ok := r.s.precios[k]
	if !ok {
		return 0, nil
	}
	p.EsGanador = true
	r.s.precios[k] = p
	return 1, nil
}

// ── OrdenRepository ──────────────────────────────────────────────────────────

type stubOrdenRepo struct{ s *memStore }

var _ repository.OrdenRepository = (*stubOrdenRepo)(nil)

func (r *stubOrdenRepo) ReplaceSeleccionesTx(_ context.Context, _ *gorm.DB, reqID uint, sel []model.SeleccionGanador) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.selecciones[reqID] = append([]model.SeleccionGanador(nil), sel...)
	return nil
}

func (r *stubOrdenRepo) ListSeleccionesTx(_ context.Context, _ *gorm.DB, reqID uint) ([]model.SeleccionGanador, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]model.SeleccionGanador(nil), r.s.selecciones[reqID]...), nil
}

func (r *stubOrdenRepo) FindOrdenMetasTx(_ context.Context, _ *gorm.DB, reqID uint) ([]model.OrdenCompraMeta, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.OrdenCompraMeta
	for k, m := range r.s.metas {
		if k[0] == reqID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubOrdenRepo) SaveOrdenMetaTx(_ context.Context, _ *gorm.DB, m *model.OrdenCompraMeta) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.metas[[2]uint{m.RequisicionID, m.ProveedorID}] = *m
	return nil
}

// ── ProveedorRepository / UsuarioRepository ──────────────────────────────────

type stubProveedorRepo struct{ s *memStore }

var _ repository.ProveedorRepository = (*stubProveedorRepo)(nil)

func (r *stubProveedorRepo) FindByID(_ context.Context, id uint) (*model.Proveedor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.proveedores[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *stubProveedorRepo) FindByIDs(_ context.Context, ids []uint) ([]model.Proveedor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Proveedor
	for _, id := range ids {
		if p, ok := r.s.proveedores[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type stubUsuarioRepo struct{ s *memStore }

var _ repository.UsuarioRepository = (*stubUsuarioRepo)(nil)

func (r *stubUsuarioRepo) FindByID(_ context.Context, id uint) (*model.Usuario, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.usuarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

// ── Notificador ──────────────────────────────────────────────────────────────

type stubNotificador struct {
	mu       sync.Mutex
	payloads []interface{}
}

func (n *stubNotificador) EnqueueEmail(_ context.Context, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, payload)
	return nil
}

func (n *stubNotificador) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.payloads)
}
