package service_test

import (
	"context"
	"testing"
	"time"

	"requisiciones/internal/dto"
	"requisiciones/internal/model"
	"requisiciones/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscenarioA_SinPreciosNoPasaARevision(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, _, _ := h.enCotizacion(t)

	inv, err := h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1, P2}})
	require.NoError(t, err)
	require.Len(t, inv.Solicitudes, 2)
	for _, sc := range inv.Solicitudes {
		assert.Equal(t, model.InvitacionInvitado, sc.Estado)
	}

	cierre, err := h.cot.Cerrar(ctx, compras, id, dto.CerrarCotizacionRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), cierre.Afectadas)
	assert.Equal(t, model.InvitacionExpirado, h.solicitud(id, P1).Estado)
	assert.Equal(t, model.InvitacionExpirado, h.solicitud(id, P2).Estado)

	_, err = h.cot.EnviarARevision(ctx, compras, id)
	requireKind(t, err, workflow.KindIncomplete, workflow.EstadoCotizacion)
	assert.Equal(t, workflow.EstadoCotizacion, h.estado(id))
}

func TestEscenarioB_RespondidoSobreviveAlCierre(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, l1, _ := h.enCotizacion(t)

	_, err := h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1, P2}})
	require.NoError(t, err)

	res, err := h.cot.GuardarPrecios(ctx, compras, id, dto.GuardarPreciosRequest{Celdas: []dto.CeldaPrecioInput{
		{PartidaID: l1, ProveedorID: P1, PrecioUnitario: decPtr("45.90")},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Guardadas)
	assert.Equal(t, []uint{P1}, res.Respondieron)
	assert.Equal(t, model.InvitacionRespondido, h.solicitud(id, P1).Estado)

	cierre, err := h.cot.Cerrar(ctx, compras, id, dto.CerrarCotizacionRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cierre.Afectadas)
	assert.Equal(t, model.InvitacionRespondido, h.solicitud(id, P1).Estado)
	assert.Equal(t, model.InvitacionExpirado, h.solicitud(id, P2).Estado)

	tr, err := h.cot.EnviarARevision(ctx, compras, id)
	require.NoError(t, err)
	assert.Equal(t, int(workflow.EstadoRevision), tr.Estado)
	assert.False(t, tr.SinCambios)
}

func TestCerrar_Idempotente(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, _, _ := h.enCotizacion(t)
	_, err := h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1}})
	require.NoError(t, err)

	primero, err := h.cot.Cerrar(ctx, compras, id, dto.CerrarCotizacionRequest{Nota: strPtr("fin de plazo")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), primero.Afectadas)
	assert.False(t, primero.SinCambios)
	cerradaEn := h.requisicion(id).CotizacionCerradaEn
	require.NotNil(t, cerradaEn)

	segundo, err := h.cot.Cerrar(ctx, compras, id, dto.CerrarCotizacionRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), segundo.Afectadas)
	assert.True(t, segundo.SinCambios)
	assert.Equal(t, *cerradaEn, *h.requisicion(id).CotizacionCerradaEn)
	assert.Equal(t, "fin de plazo", *h.requisicion(id).NotaCierre)
}

func TestCerrar_FueraDeCotizacion(t *testing.T) {
	h := newHarness()
	r := h.crear(t)
	_, err := h.cot.Cerrar(context.Background(), compras, r.ID, dto.CerrarCotizacionRequest{})
	requireKind(t, err, workflow.KindInvalidState, workflow.EstadoBorrador)
}

func TestCerrar_RechazadaEsEstadoInvalido(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, _, _ := h.enCotizacion(t)
	_, err := h.req.AvanzarEstado(ctx, admin, id, dto.AvanzarEstadoRequest{Estado: int(workflow.EstadoRechazada), Comentario: "duplicada"})
	require.NoError(t, err)

	resp, err := h.cot.Cerrar(ctx, compras, id, dto.CerrarCotizacionRequest{})
	requireKind(t, err, workflow.KindInvalidState, workflow.EstadoRechazada)
	assert.Nil(t, resp)
	assert.Nil(t, h.requisicion(id).CotizacionCerradaEn)
}

func TestCerrar_EnRevisionEsSinCambios(t *testing.T) {
	h := newHarness()
	id, _, _ := h.enRevision(t)
	resp, err := h.cot.Cerrar(context.Background(), compras, id, dto.CerrarCotizacionRequest{})
	require.NoError(t, err)
	assert.True(t, resp.SinCambios)
	assert.Equal(t, int(workflow.EstadoRevision), resp.Estado)
}

func TestEnviarARevision_Idempotente(t *testing.T) {
	h := newHarness()
	id, _, _ := h.enRevision(t)
	antes := h.requisicion(id)

	tr, err := h.cot.EnviarARevision(context.Background(), compras, id)
	require.NoError(t, err)
	assert.True(t, tr.SinCambios)
	assert.Equal(t, int(workflow.EstadoRevision), tr.Estado)

	despues := h.requisicion(id)
	assert.Equal(t, antes.Estado, despues.Estado)
	assert.Equal(t, *antes.CotizacionCerradaEn, *despues.CotizacionCerradaEn)
}

func TestEnviarARevision_RecepcionAbierta(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, l1, _ := h.enCotizacion(t)
	_, err := h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1}})
	require.NoError(t, err)
	_, err = h.cot.GuardarPrecios(ctx, compras, id, dto.GuardarPreciosRequest{Celdas: []dto.CeldaPrecioInput{
		{PartidaID: l1, ProveedorID: P1, PrecioUnitario: decPtr("1")},
	}})
	require.NoError(t, err)

	_, err = h.cot.EnviarARevision(ctx, compras, id)
	requireKind(t, err, workflow.KindInvalidState, workflow.EstadoCotizacion)
}

func TestInvitar_RecepcionCerradaEsConflicto(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, _, _ := h.enCotizacion(t)
	_, err := h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1}})
	require.NoError(t, err)
	_, err = h.cot.Cerrar(ctx, compras, id, dto.CerrarCotizacionRequest{})
	require.NoError(t, err)
	antes := h.solicitud(id, P1)

	_, err = h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1, P2}})
	requireKind(t, err, workflow.KindConflict, workflow.EstadoCotizacion)

	assert.Equal(t, antes, h.solicitud(id, P1))
	_, existe := h.store.solicitudes[[2]uint{id, P2}]
	assert.False(t, existe)

	_, err = h.cot.GuardarPrecios(ctx, compras, id, dto.GuardarPreciosRequest{Celdas: []dto.CeldaPrecioInput{
		{PartidaID: 1, ProveedorID: P1, PrecioUnitario: decPtr("1")},
	}})
	requireKind(t, err, workflow.KindConflict, workflow.EstadoCotizacion)
}

func TestInvitar_FueraDeCotizacion(t *testing.T) {
	h := newHarness()
	r := h.crear(t)
	_, err := h.cot.Invitar(context.Background(), compras, r.ID, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1}})
	requireKind(t, err, workflow.KindInvalidState, workflow.EstadoBorrador)
}

func TestInvitar_ProveedorInexistente(t *testing.T) {
	h := newHarness()
	id, _, _ := h.enCotizacion(t)
	_, err := h.cot.Invitar(context.Background(), compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1, 9999}})
	requireKind(t, err, workflow.KindNotFound, workflow.EstadoCotizacion)
	assert.Contains(t, err.Error(), "9999")
	assert.Empty(t, h.store.solicitudes)
}

func TestInvitar_ReinvitacionConservaRespuestaYPrimeraFecha(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, l1, _ := h.enCotizacion(t)

	plazo1 := time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC)
	_, err := h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1, P2, P1}, FechaLimite: &plazo1})
	require.NoError(t, err)
	primera := h.solicitud(id, P2).InvitadoEn
	require.NotNil(t, primera)

	_, err = h.cot.GuardarPrecios(ctx, compras, id, dto.GuardarPreciosRequest{Celdas: []dto.CeldaPrecioInput{
		{PartidaID: l1, ProveedorID: P1, DescripcionOfrecida: strPtr("entrega en 5 días")},
	}})
	require.NoError(t, err)
	respondidoEn := h.solicitud(id, P1).RespondidoEn
	require.NotNil(t, respondidoEn)

	plazo2 := plazo1.Add(48 * time.Hour)
	_, err = h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1, P2}, FechaLimite: &plazo2})
	require.NoError(t, err)

	p1 := h.solicitud(id, P1)
	assert.Equal(t, model.InvitacionRespondido, p1.Estado)
	assert.Equal(t, *respondidoEn, *p1.RespondidoEn)
	assert.Equal(t, plazo2, *p1.FechaLimite)

	p2 := h.solicitud(id, P2)
	assert.Equal(t, model.InvitacionInvitado, p2.Estado)
	assert.Equal(t, *primera, *p2.InvitadoEn)
	assert.Equal(t, plazo2, *p2.FechaLimite)
}

func TestGuardarPrecios_DescartaNoInvitadosYVacios(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, l1, l2 := h.enCotizacion(t)
	_, err := h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1, P2}})
	require.NoError(t, err)

	res, err := h.cot.GuardarPrecios(ctx, compras, id, dto.GuardarPreciosRequest{Celdas: []dto.CeldaPrecioInput{
		{PartidaID: l1, ProveedorID: P1, PrecioUnitario: decPtr("10")},
		{PartidaID: l2, ProveedorID: P3, PrecioUnitario: decPtr("1")}, // not invited
		{PartidaID: l2, ProveedorID: P2, DescripcionOfrecida: strPtr("   ")},
		{PartidaID: l2, ProveedorID: P2, Notas: strPtr("solo nota")},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Guardadas)
	assert.Equal(t, 3, res.Descartadas)
	assert.Equal(t, []uint{P1}, res.Respondieron)
	assert.Len(t, h.store.precios, 1)
	assert.Equal(t, model.InvitacionInvitado, h.solicitud(id, P2).Estado)
}

func TestGuardarPrecios_Validaciones(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, l1, _ := h.enCotizacion(t)
	_, err := h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1}})
	require.NoError(t, err)

	_, err = h.cot.GuardarPrecios(ctx, compras, id, dto.GuardarPreciosRequest{Celdas: []dto.CeldaPrecioInput{
		{PartidaID: l1, ProveedorID: P1, PrecioUnitario: decPtr("-1")},
	}})
	assert.Equal(t, workflow.KindValidation, workflow.KindOf(err))

	_, err = h.cot.GuardarPrecios(ctx, compras, id, dto.GuardarPreciosRequest{Celdas: []dto.CeldaPrecioInput{
		{PartidaID: 424242, ProveedorID: P1, PrecioUnitario: decPtr("1")},
	}})
	requireKind(t, err, workflow.KindNotFound, workflow.EstadoCotizacion)
	assert.Empty(t, h.store.precios)
}

func TestGuardarPrecios_ActualizaCeldaSinTocarRespondidoEn(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, l1, _ := h.enCotizacion(t)
	_, err := h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1}})
	require.NoError(t, err)

	celda := dto.CeldaPrecioInput{PartidaID: l1, ProveedorID: P1, PrecioUnitario: decPtr("10")}
	_, err = h.cot.GuardarPrecios(ctx, compras, id, dto.GuardarPreciosRequest{Celdas: []dto.CeldaPrecioInput{celda}})
	require.NoError(t, err)
	primera := *h.solicitud(id, P1).RespondidoEn

	celda.PrecioUnitario = decPtr("9.5")
	_, err = h.cot.GuardarPrecios(ctx, compras, id, dto.GuardarPreciosRequest{Celdas: []dto.CeldaPrecioInput{celda}})
	require.NoError(t, err)

	assert.Equal(t, primera, *h.solicitud(id, P1).RespondidoEn)
	require.Len(t, h.store.precios, 1)
	for _, p := range h.store.precios {
		assert.True(t, p.PrecioUnitario.Decimal.Equal(dec("9.5")))
	}
}

func TestReabrir(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, _, _ := h.enCotizacion(t)

	abierta, err := h.cot.Reabrir(ctx, compras, id)
	require.NoError(t, err)
	assert.True(t, abierta.SinCambios)

	_, err = h.cot.Cerrar(ctx, compras, id, dto.CerrarCotizacionRequest{Nota: strPtr("cerrada antes")})
	require.NoError(t, err)
	resp, err := h.cot.Reabrir(ctx, compras, id)
	require.NoError(t, err)
	assert.False(t, resp.SinCambios)
	assert.Nil(t, resp.CotizacionCerradaEn)
	row := h.requisicion(id)
	assert.Nil(t, row.CotizacionCerradaEn)
	assert.Nil(t, row.NotaCierre)

	// Invitations are accepted again once reopened.
	_, err = h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1}})
	require.NoError(t, err)
}

func TestReabrir_EnRevisionSeRechaza(t *testing.T) {
	h := newHarness()
	id, _, _ := h.enRevision(t)
	_, err := h.cot.Reabrir(context.Background(), compras, id)
	requireKind(t, err, workflow.KindInvalidState, workflow.EstadoRevision)
	assert.NotNil(t, h.requisicion(id).CotizacionCerradaEn)
}

func TestDeclinar(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id, l1, _ := h.enCotizacion(t)
	_, err := h.cot.Invitar(ctx, compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1, P2}})
	require.NoError(t, err)
	_, err = h.cot.GuardarPrecios(ctx, compras, id, dto.GuardarPreciosRequest{Celdas: []dto.CeldaPrecioInput{
		{PartidaID: l1, ProveedorID: P1, PrecioUnitario: decPtr("3")},
	}})
	require.NoError(t, err)

	resp, err := h.cot.Declinar(ctx, compras, id, P2)
	require.NoError(t, err)
	assert.Equal(t, model.InvitacionDeclinado, resp.Estado)

	resp, err = h.cot.Declinar(ctx, compras, id, P1)
	require.NoError(t, err)
	assert.Equal(t, model.InvitacionRespondido, resp.Estado, "responded is sticky")

	_, err = h.cot.Declinar(ctx, compras, id, P3)
	requireKind(t, err, workflow.KindNotFound, workflow.EstadoCotizacion)

	// Declined rows are not touched by the close.
	cierre, err := h.cot.Cerrar(ctx, compras, id, dto.CerrarCotizacionRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), cierre.Afectadas)
	assert.Equal(t, model.InvitacionDeclinado, h.solicitud(id, P2).Estado)
}

func TestComparativo_MarcaElMenorPrecio(t *testing.T) {
	h := newHarness()
	id, l1, l2 := h.enRevision(t)

	resp, err := h.cot.Comparativo(context.Background(), solicitante, id)
	require.NoError(t, err)
	assert.True(t, resp.Cerrada)
	require.Len(t, resp.Proveedores, 2)
	require.Len(t, resp.Filas, 2)

	fila1 := resp.Filas[0]
	assert.Equal(t, l1, fila1.PartidaID)
	require.Len(t, fila1.Celdas, 2)
	assert.True(t, fila1.Celdas[0].EsMenor)
	assert.Nil(t, fila1.Celdas[1].PrecioUnitario)
	assert.True(t, fila1.Celdas[0].Importe.Equal(dec("201")))

	fila2 := resp.Filas[1]
	assert.Equal(t, l2, fila2.PartidaID)
	assert.False(t, fila2.Celdas[0].EsMenor)
	assert.True(t, fila2.Celdas[1].EsMenor)
	assert.Equal(t, "genérico", *fila2.Celdas[1].DescripcionOfrecida)
}

func TestComparativo_AntesDeCotizacion(t *testing.T) {
	h := newHarness()
	r := h.crear(t)
	_, err := h.cot.Comparativo(context.Background(), solicitante, r.ID)
	requireKind(t, err, workflow.KindInvalidState, workflow.EstadoBorrador)
}

func TestInvitar_NotificaProveedoresConCorreo(t *testing.T) {
	h := newHarness()
	id, _, _ := h.enCotizacion(t)
	antes := h.notif.count()

	_, err := h.cot.Invitar(context.Background(), compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1, P3}})
	require.NoError(t, err)
	assert.Equal(t, antes+1, h.notif.count(), "P3 has no email")

	_, err = h.cot.Invitar(context.Background(), compras, id, dto.InvitarProveedoresRequest{ProveedorIDs: []uint{P1}})
	require.NoError(t, err)
	assert.Equal(t, antes+1, h.notif.count(), "re-inviting an invited provider sends nothing")
}
