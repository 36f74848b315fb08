package session

import "github.com/google/uuid"

type uuidIDs struct{}

func (uuidIDs) Generate() string {
	return uuid.NewString()
}
