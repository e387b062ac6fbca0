// utils/utils.go

package utils

import (
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CodeAlphabet is uppercase letters and digits without I, O, 0 and 1.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the length of a room code.
const CodeLength = 6

// GenerateCode returns a random room code.
func GenerateCode() (string, error) {
	return gonanoid.Generate(CodeAlphabet, CodeLength)
}

// NewConnectionID returns an opaque identifier for a client connection.
func NewConnectionID() string {
	return uuid.New().String()
}

func Now() time.Time {
	return time.Now()
}
