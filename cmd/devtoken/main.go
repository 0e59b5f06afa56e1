// cmd/devtoken/main.go: mints a signed actor token for local testing.
// Uso: go run ./cmd/devtoken -id 30 -rol compras
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"requisiciones/internal/config"
	"requisiciones/internal/middleware"
	"requisiciones/internal/workflow"
)

func main() {
	id := flag.Uint("id", 1, "user id")
	rol := flag.String("rol", string(workflow.RolSolicitante), "solicitante | coordinador | secretario | compras | admin_compras")
	ure := flag.Uint("ure", 0, "URE scope for coordinador/secretario (0 = unscoped)")
	nombre := flag.String("nombre", "", "display name")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required")
		os.Exit(1)
	}
	if !workflow.Rol(*rol).Valido() {
		fmt.Fprintf(os.Stderr, "rol desconocido: %s\n", *rol)
		os.Exit(2)
	}

	actor := workflow.Actor{ID: *id, Rol: workflow.Rol(*rol)}
	if *ure != 0 {
		u := *ure
		actor.UREID = &u
	}
	token, err := middleware.FirmarToken(cfg.JWTSecret, actor, *nombre, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
