package repository

import (
	"context"

	"requisiciones/internal/model"

	"gorm.io/gorm"
)

type ProveedorRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Proveedor, error)
	// FindByIDs returns the subset of ids that exist, in id order.
	FindByIDs(ctx context.Context, ids []uint) ([]model.Proveedor, error)
}

type proveedorRepo struct{ db *gorm.DB }

func NewProveedorRepository(db *gorm.DB) ProveedorRepository { return &proveedorRepo{db: db} }

func (r *proveedorRepo) FindByID(ctx context.Context, id uint) (*model.Proveedor, error) {
	var p model.Proveedor
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *proveedorRepo) FindByIDs(ctx context.Context, ids []uint) ([]model.Proveedor, error) {
	var proveedores []model.Proveedor
	if len(ids) == 0 {
		return proveedores, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&proveedores).Error
	return proveedores, err
}
