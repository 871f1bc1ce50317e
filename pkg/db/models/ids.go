package models

import "github.com/google/uuid"

// assignID fills a zero primary key before insert so rows carry Go-generated ids
// regardless of the database default.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
