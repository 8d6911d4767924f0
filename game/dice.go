package game

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Dice produces die values in 1..6.
type Dice interface {
	Roll() int
}

// RandomDice draws uniformly from 1..6.
type RandomDice struct {
	rng   *rand.Rand
	mutex sync.Mutex
}

// NewRandomDice returns a die seeded with seed, or with the current time when seed is 0.
func NewRandomDice(seed int64) *RandomDice {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomDice{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)))}
}

func (d *RandomDice) Roll() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.rng.IntN(6) + 1
}

// DiceFunc adapts a function to the Dice interface.
type DiceFunc func() int

func (f DiceFunc) Roll() int { return f() }
