package repository

import (
	"context"

	"requisiciones/internal/model"

	"gorm.io/gorm"
)

type UsuarioRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Usuario, error)
}

type usuarioRepo struct{ db *gorm.DB }

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository { return &usuarioRepo{db: db} }

func (r *usuarioRepo) FindByID(ctx context.Context, id uint) (*model.Usuario, error) {
	var u model.Usuario
	err := r.db.WithContext(ctx).First(&u, id).Error
	return &u, err
}
