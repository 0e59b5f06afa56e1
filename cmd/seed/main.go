// cmd/seed/main.go: creates/updates demo users (one per role) and providers.
// Uso: go run ./cmd/seed
package main

import (
	"context"
	"fmt"

	"requisiciones/internal/config"
	"requisiciones/internal/infra"
	"requisiciones/internal/model"
	"requisiciones/internal/workflow"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm/clause"
)

func strPtr(s string) *string { return &s }
func uintPtr(v uint) *uint    { return &v }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("migrations")
	}

	usuarios := []model.Usuario{
		{ID: 1, Nombre: "Solicitante Demo", Email: strPtr("solicitante@example.com"), Rol: string(workflow.RolSolicitante), Activo: true},
		{ID: 10, Nombre: "Coordinador Demo", Email: strPtr("coordinador@example.com"), Rol: string(workflow.RolCoordinador), UREID: uintPtr(1), Activo: true},
		{ID: 20, Nombre: "Secretario Demo", Email: strPtr("secretario@example.com"), Rol: string(workflow.RolSecretario), Activo: true},
		{ID: 30, Nombre: "Compras Demo", Email: strPtr("compras@example.com"), Rol: string(workflow.RolCompras), Activo: true},
		{ID: 40, Nombre: "Admin Compras Demo", Email: strPtr("admin.compras@example.com"), Rol: string(workflow.RolAdminCompras), Activo: true},
	}
	proveedores := []model.Proveedor{
		{ID: 501, RazonSocial: "Papelería del Centro SA de CV", RFC: "PCE010101AAA", Email: strPtr("ventas@papeleria.example.com"), Activo: true},
		{ID: 502, RazonSocial: "Suministros Norte SA de CV", RFC: "SNO020202BBB", Email: strPtr("cotiza@suministros.example.com"), Activo: true},
		{ID: 503, RazonSocial: "Servicios Integrales Sur", RFC: "SIS030303CCC", Activo: true},
	}

	ctx := context.Background()
	upsert := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}
	if err := db.WithContext(ctx).Clauses(upsert).Create(&usuarios).Error; err != nil {
		log.Fatal().Err(err).Msg("seed usuarios")
	}
	if err := db.WithContext(ctx).Clauses(upsert).Create(&proveedores).Error; err != nil {
		log.Fatal().Err(err).Msg("seed proveedores")
	}
	// Explicit ids bypass the sequences; move them past the seeded rows.
	for _, t := range []string{"usuarios", "proveedores"} {
		if err := db.WithContext(ctx).Exec(fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s','id'), (SELECT MAX(id) FROM %s))", t, t)).Error; err != nil {
			log.Fatal().Err(err).Str("table", t).Msg("reset sequence")
		}
	}
	fmt.Printf("✅ %d usuarios y %d proveedores creados/actualizados\n", len(usuarios), len(proveedores))
}
