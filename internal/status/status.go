// Package status deriva el estado de entrega de una orden a partir de sus
// timestamps. No hay transiciones guardadas: el estado se evalúa cada vez.
package status

import (
	"fmt"
	"time"

	"delivery-dashboard/internal/model"
)

type Status string

const (
	Pending    Status = "Pending"
	Delivering Status = "Delivering"
	Delivered  Status = "Delivered"
	// Unknown: algún timestamp de envío está presente pero no se pudo leer.
	Unknown Status = "Unknown"
)

// Evaluate es una función pura de (now, placed, start, finish). placed no
// interviene en el resultado: una orden sin inicio de envío sigue Pending
// aunque tenga finishedAt, incluso si finishedAt no se puede leer.
func Evaluate(now time.Time, _, start, finish model.Timestamp) Status {
	if start.Absent() {
		return Pending
	}
	if start.Malformed() || finish.Malformed() {
		return Unknown
	}
	if finish.Valid() && !finish.Time.After(now) {
		return Delivered
	}
	if !start.Time.After(now) {
		return Delivering
	}
	return Pending
}

// Rank ordena los estados en el sentido Pending → Delivering → Delivered.
func (s Status) Rank() int {
	switch s {
	case Pending:
		return 1
	case Delivering:
		return 2
	case Delivered:
		return 3
	default:
		return 0
	}
}

type Duration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

func (d Duration) TotalMinutes() int { return d.Hours*60 + d.Minutes }

func (d Duration) String() string { return fmt.Sprintf("%dh %dm", d.Hours, d.Minutes) }

// DeliveryDurationOf devuelve finish - start truncado al minuto. Sin ambos
// timestamps, o si finish es anterior a start, no hay duración.
func DeliveryDurationOf(start, finish model.Timestamp) (Duration, bool) {
	if !start.Valid() || !finish.Valid() {
		return Duration{}, false
	}
	elapsed := finish.Time.Sub(start.Time)
	if elapsed < 0 {
		return Duration{}, false
	}
	total := int(elapsed / time.Minute)
	return Duration{Hours: total / 60, Minutes: total % 60}, true
}
