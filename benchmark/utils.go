package benchmark

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
)

// GenerateRandomName creates a random hex string of 2*length characters
func GenerateRandomName(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// ObjectName returns the name of the file written by task index of a run.
// Indexes are worker ordinals, so names never collide within a run.
func ObjectName(prefix string, index int) string {
	return prefix + "/" + strconv.Itoa(index)
}
