// Package workflow holds the requisition status enumeration, the fixed
// transition table and the domain error kinds shared by the service layer.
// It has no persistence dependencies so every guard here is a pure function
// of (current status, actor, input).
package workflow

import "fmt"

// Estado is the persisted status code of a requisition.
// The numeric values are part of the stored data and must never change.
type Estado int

const (
	EstadoBorrador      Estado = 7  // requester edits the draft
	EstadoCoordinacion  Estado = 8  // waiting for the coordinator
	EstadoSecretaria    Estado = 9  // budget authorization by the secretary
	EstadoRechazada     Estado = 10 // terminal
	EstadoComprada      Estado = 11 // terminal
	EstadoCotizacion    Estado = 12 // purchasing collects vendor quotes
	EstadoProcesoCompra Estado = 13 // order being issued
	EstadoRevision      Estado = 14 // requester picks the winners
)

// Todos lists every legal status in pipeline order.
var Todos = []Estado{
	EstadoBorrador,
	EstadoCoordinacion,
	EstadoSecretaria,
	EstadoCotizacion,
	EstadoRevision,
	EstadoProcesoCompra,
	EstadoComprada,
	EstadoRechazada,
}

var nombres = map[Estado]string{
	EstadoBorrador:      "borrador",
	EstadoCoordinacion:  "en_coordinacion",
	EstadoSecretaria:    "en_secretaria",
	EstadoRechazada:     "rechazada",
	EstadoComprada:      "comprada",
	EstadoCotizacion:    "en_cotizacion",
	EstadoProcesoCompra: "en_proceso_compra",
	EstadoRevision:      "en_revision",
}

// rango gives the position in the pipeline. Codes are not monotonic
// (14 comes before 13) so comparisons must go through Rango.
var rango = map[Estado]int{
	EstadoBorrador:      1,
	EstadoCoordinacion:  2,
	EstadoSecretaria:    3,
	EstadoCotizacion:    4,
	EstadoRevision:      5,
	EstadoProcesoCompra: 6,
	EstadoComprada:      7,
}

// Valido reports whether e is a member of the enumeration.
func (e Estado) Valido() bool {
	_, ok := nombres[e]
	return ok
}

// String returns the snake_case name used in logs and API payloads.
func (e Estado) String() string {
	if n, ok := nombres[e]; ok {
		return n
	}
	return fmt.Sprintf("desconocido(%d)", int(e))
}

// Terminal reports whether no further transition can leave e.
func (e Estado) Terminal() bool {
	return e == EstadoRechazada || e == EstadoComprada
}

// Rango returns the pipeline position of e, or 0 for rejected/unknown states.
func (e Estado) Rango() int {
	return rango[e]
}

// AlMenos reports whether e has reached otro in the pipeline.
// A rejected requisition has not reached any state.
func (e Estado) AlMenos(otro Estado) bool {
	r := e.Rango()
	return r > 0 && r >= otro.Rango()
}

// ParseEstado converts a raw code coming from a client or the database.
func ParseEstado(code int) (Estado, error) {
	e := Estado(code)
	if !e.Valido() {
		return 0, Validation("estado %d no existe", code)
	}
	return e, nil
}
