package service

import (
	"context"
	"fmt"
	"time"

	"requisiciones/internal/model"
	"requisiciones/internal/repository"
	"requisiciones/internal/worker"
	"requisiciones/internal/workflow"

	"github.com/rs/zerolog/log"
)

// Notificador enqueues outgoing email. Implemented by *worker.Dispatcher.
type Notificador interface {
	EnqueueEmail(ctx context.Context, payload interface{}) error
}

// avisos builds notification emails after a transaction commits.
// Every method is best-effort: failures are logged and never returned.
type avisos struct {
	notif    Notificador
	usuarios repository.UsuarioRepository
}

func newAvisos(notif Notificador, usuarios repository.UsuarioRepository) *avisos {
	return &avisos{notif: notif, usuarios: usuarios}
}

func (a *avisos) activo() bool {
	return a != nil && a.notif != nil
}

func (a *avisos) enviar(ctx context.Context, to, subject, body string) {
	if to == "" {
		return
	}
	payload := worker.EmailJobPayload{ToEmail: to, Subject: subject, Body: body}
	if err := a.notif.EnqueueEmail(ctx, payload); err != nil {
		log.Warn().Err(err).Str("to", to).Msg("notificación no encolada")
	}
}

func (a *avisos) emailUsuario(ctx context.Context, id uint) string {
	if a.usuarios == nil {
		return ""
	}
	u, err := a.usuarios.FindByID(ctx, id)
	if err != nil || u.Email == nil || !u.Activo {
		return ""
	}
	return *u.Email
}

// cambioEstado tells the requester about a status change.
func (a *avisos) cambioEstado(ctx context.Context, r *model.Requisicion, anterior workflow.Estado) {
	if !a.activo() || anterior == r.Estado {
		return
	}
	subject := fmt.Sprintf("Requisición %s: %s", r.Folio, r.Estado)
	body := fmt.Sprintf("La requisición %s (%s) pasó de %s a %s.", r.Folio, r.Nombre, anterior, r.Estado)
	if r.Estado == workflow.EstadoRechazada && r.MotivoRechazo != nil {
		body += "\nMotivo: " + *r.MotivoRechazo
	}
	a.enviar(ctx, a.emailUsuario(ctx, r.CreadorID), subject, body)
}

// invitacion asks each newly invited provider for a quotation.
func (a *avisos) invitacion(ctx context.Context, r *model.Requisicion, proveedores []model.Proveedor, fechaLimite *time.Time) {
	if !a.activo() {
		return
	}
	for _, p := range proveedores {
		if p.Email == nil {
			continue
		}
		body := fmt.Sprintf("%s:\nLe invitamos a cotizar la requisición %s (%s).", p.RazonSocial, r.Folio, r.Nombre)
		if fechaLimite != nil {
			body += "\nFecha límite: " + fechaLimite.Format("2006-01-02 15:04")
		}
		a.enviar(ctx, *p.Email, "Solicitud de cotización "+r.Folio, body)
	}
}

// operadorAsignado tells the purchasing agent a requisition is now theirs.
func (a *avisos) operadorAsignado(ctx context.Context, r *model.Requisicion, operador *model.Usuario) {
	if !a.activo() || operador.Email == nil {
		return
	}
	body := fmt.Sprintf("Se le asignó la requisición %s (%s), estado %s.", r.Folio, r.Nombre, r.Estado)
	a.enviar(ctx, *operador.Email, "Requisición asignada "+r.Folio, body)
}
