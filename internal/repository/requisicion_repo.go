package repository

import (
	"context"
	"time"

	"requisiciones/internal/model"
	"requisiciones/internal/workflow"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequisicionRepository owns requisitions, their line items and the status
// history. Every *Tx method accepts a nil tx and then runs on the pool.
type RequisicionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, r *model.Requisicion) error
	NextFolio(ctx context.Context, tx *gorm.DB) (int64, error)
	FindByID(ctx context.Context, id uint) (*model.Requisicion, error)
	// FindByIDForUpdate reads the row with SELECT ... FOR UPDATE. Must be called
	// inside a transaction; the lock is held until commit or rollback.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*model.Requisicion, error)
	// UpdateEstadoTx moves the status only if it still equals desde and
	// returns the number of rows changed.
	UpdateEstadoTx(ctx context.Context, tx *gorm.DB, id uint, desde, hacia workflow.Estado, motivoRechazo *string) (int64, error)
	CerrarCotizacionTx(ctx context.Context, tx *gorm.DB, id uint, nota *string, ahora time.Time) (int64, error)
	ReabrirCotizacionTx(ctx context.Context, tx *gorm.DB, id uint) (int64, error)
	ReplacePartidasTx(ctx context.Context, tx *gorm.DB, id uint, partidas []model.Partida) error
	AsignarOperadorTx(ctx context.Context, tx *gorm.DB, id uint, operadorID uint) error
	CreateHistorialTx(ctx context.Context, tx *gorm.DB, h *model.HistorialEstado) error
	ListHistorial(ctx context.Context, id uint) ([]model.HistorialEstado, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type requisicionRepo struct{ db *gorm.DB }

func NewRequisicionRepository(db *gorm.DB) RequisicionRepository { return &requisicionRepo{db: db} }

func (r *requisicionRepo) DB() *gorm.DB { return r.db }

func (r *requisicionRepo) Create(ctx context.Context, tx *gorm.DB, req *model.Requisicion) error {
	return conn(ctx, r.db, tx).Create(req).Error
}

func (r *requisicionRepo) NextFolio(ctx context.Context, tx *gorm.DB) (int64, error) {
	var n int64
	err := conn(ctx, r.db, tx).Raw("SELECT nextval('requisiciones_folio_seq')").Scan(&n).Error
	return n, err
}

func (r *requisicionRepo) FindByID(ctx context.Context, id uint) (*model.Requisicion, error) {
	var req model.Requisicion
	err := r.db.WithContext(ctx).
		Preload("Partidas", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&req, id).Error
	return &req, err
}

func (r *requisicionRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*model.Requisicion, error) {
	var req model.Requisicion
	db := conn(ctx, r.db, tx)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, id).Error; err != nil {
		return nil, err
	}
	// Line items are only replaced under this same lock, so a plain read is consistent.
	if err := db.Where("requisicion_id = ?", id).Order("id ASC").Find(&req.Partidas).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requisicionRepo) UpdateEstadoTx(
	ctx context.Context,
	tx *gorm.DB,
	id uint,
	desde, hacia workflow.Estado,
	motivoRechazo *string,
) (int64, error) {
	cambios := map[string]interface{}{"estado": hacia, "updated_at": time.Now()}
	if motivoRechazo != nil {
		cambios["motivo_rechazo"] = *motivoRechazo
	}
	res := conn(ctx, r.db, tx).Model(&model.Requisicion{}).
		Where("id = ? AND estado = ?", id, desde).
		Updates(cambios)
	return res.RowsAffected, res.Error
}

func (r *requisicionRepo) CerrarCotizacionTx(ctx context.Context, tx *gorm.DB, id uint, nota *string, ahora time.Time) (int64, error) {
	res := conn(ctx, r.db, tx).Model(&model.Requisicion{}).
		Where("id = ? AND estado = ? AND cotizacion_cerrada_en IS NULL", id, workflow.EstadoCotizacion).
		Updates(map[string]interface{}{
			"cotizacion_cerrada_en": ahora,
			"nota_cierre":           nota,
			"updated_at":            ahora,
		})
	return res.RowsAffected, res.Error
}

func (r *requisicionRepo) ReabrirCotizacionTx(ctx context.Context, tx *gorm.DB, id uint) (int64, error) {
	res := conn(ctx, r.db, tx).Model(&model.Requisicion{}).
		Where("id = ? AND estado = ? AND cotizacion_cerrada_en IS NOT NULL", id, workflow.EstadoCotizacion).
		Updates(map[string]interface{}{
			"cotizacion_cerrada_en": gorm.Expr("NULL"),
			"nota_cierre":           gorm.Expr("NULL"),
			"updated_at":            time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *requisicionRepo) ReplacePartidasTx(ctx context.Context, tx *gorm.DB, id uint, partidas []model.Partida) error {
	db := conn(ctx, r.db, tx)
	if err := db.Where("requisicion_id = ?", id).Delete(&model.Partida{}).Error; err != nil {
		return err
	}
	if len(partidas) == 0 {
		return nil
	}
	for i := range partidas {
		partidas[i].ID = 0
		partidas[i].RequisicionID = id
	}
	return db.Create(&partidas).Error
}

func (r *requisicionRepo) AsignarOperadorTx(ctx context.Context, tx *gorm.DB, id uint, operadorID uint) error {
	return conn(ctx, r.db, tx).Model(&model.Requisicion{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"operador_id": operadorID, "updated_at": time.Now()}).Error
}

func (r *requisicionRepo) CreateHistorialTx(ctx context.Context, tx *gorm.DB, h *model.HistorialEstado) error {
	return conn(ctx, r.db, tx).Create(h).Error
}

// ListHistorial returns the status history oldest-first (append-only table).
func (r *requisicionRepo) ListHistorial(ctx context.Context, id uint) ([]model.HistorialEstado, error) {
	var rows []model.HistorialEstado
	err := r.db.WithContext(ctx).
		Where("requisicion_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
