package entity

import "time"

// Company representa una organización/tenant del sistema. Toda numeración,
// cadena de registros y política fiscal se aísla por empresa.
type Company struct {
	ID        string
	Name      string
	Status    string // active, suspended, inactive
	CreatedAt time.Time
	UpdatedAt time.Time
}
