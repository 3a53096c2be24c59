package services

import "math/rand/v2"

// RandomSource picks a uniform integer in [0, n).
type RandomSource interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int {
	return rand.IntN(n)
}

func DefaultRandomSource() RandomSource {
	return globalRandom{}
}
