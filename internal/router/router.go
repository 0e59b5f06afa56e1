package router

import (
	"context"
	"time"

	"requisiciones/internal/config"
	"requisiciones/internal/handler"
	"requisiciones/internal/infra"
	"requisiciones/internal/middleware"
	"requisiciones/internal/repository"
	"requisiciones/internal/service"
	"requisiciones/internal/workflow"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// notif may be nil to disable notifications; mailCB feeds /health.
// ctx bounds the background goroutines started by the middleware.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, notif service.Notificador, mailCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())

	// ── Repositories ─────────────────────────────────────────────────────────
	requisicionRepo := repository.NewRequisicionRepository(db)
	cotizacionRepo := repository.NewCotizacionRepository(db)
	ordenRepo := repository.NewOrdenRepository(db)
	proveedorRepo := repository.NewProveedorRepository(db)
	usuarioRepo := repository.NewUsuarioRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	requisicionSvc := service.NewRequisicionService(requisicionRepo, cotizacionRepo, ordenRepo, usuarioRepo, notif)
	cotizacionSvc := service.NewCotizacionService(requisicionRepo, cotizacionRepo, ordenRepo, proveedorRepo, usuarioRepo, notif)
	seleccionSvc := service.NewSeleccionService(requisicionRepo, cotizacionRepo, ordenRepo, proveedorRepo, usuarioRepo, notif)

	// ── Handlers ─────────────────────────────────────────────────────────────
	requisicionesH := handler.NewRequisicionesHandler(requisicionSvc)
	cotizacionH := handler.NewCotizacionHandler(cotizacionSvc)
	ordenesH := handler.NewOrdenesHandler(seleccionSvc, cfg.Institucion)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, mailCB))

	// Protected routes. Only creation is gated by role here; every other
	// operation checks status, then role and ownership, inside the services
	// so a stale client always learns the current status first.
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), middleware.RateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute))
	reqs := v1.Group("/requisiciones")
	{
		reqs.POST("", middleware.RequireRole(workflow.RolSolicitante), requisicionesH.Crear)
		reqs.GET("/:id", requisicionesH.Obtener)
		reqs.PUT("/:id/partidas", requisicionesH.ReemplazarPartidas)
		reqs.POST("/:id/estado", requisicionesH.AvanzarEstado)
		reqs.PUT("/:id/operador", requisicionesH.AsignarOperador)

		cot := reqs.Group("/:id/cotizacion")
		{
			cot.POST("/invitaciones", cotizacionH.Invitar)
			cot.POST("/precios", cotizacionH.GuardarPrecios)
			cot.POST("/proveedores/:proveedor_id/declinar", cotizacionH.Declinar)
			cot.POST("/cerrar", cotizacionH.Cerrar)
			cot.POST("/reabrir", cotizacionH.Reabrir)
			cot.POST("/revision", cotizacionH.EnviarARevision)
			cot.GET("/comparativo", cotizacionH.Comparativo)
			cot.GET("/comparativo.xlsx", cotizacionH.ComparativoXLSX)
		}

		reqs.POST("/:id/seleccion", ordenesH.EnviarSeleccion)
		reqs.GET("/:id/ordenes", ordenesH.ResumenOrdenes)
		reqs.PUT("/:id/ordenes/:proveedor_id", ordenesH.GuardarOrdenMeta)
		reqs.GET("/:id/ordenes/:proveedor_id/pdf", ordenesH.OrdenPDF)
		reqs.POST("/:id/comprada", ordenesH.MarcarComprada)
	}

	// Swagger UI: only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
