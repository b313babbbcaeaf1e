package weighbridge

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// simInterval is how often the simulation emits a synthetic indicator line.
const simInterval = 2 * time.Second

// simSource generates plausible indicator traffic when no hardware is
// available. It alternates randomly between holding a weight (so the
// stability window can settle) and jittering or jumping (so it cannot),
// occasionally returning to zero, and emits through the same byte path as
// the serial port.
type simSource struct {
	interval time.Duration
	rng      *rand.Rand

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newSimSource(interval time.Duration) *simSource {
	if interval <= 0 {
		interval = simInterval
	}
	return &simSource{
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *simSource) Start(handler func([]byte)) error {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		weight := 0.0
		holding := false
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				switch {
				case s.rng.Float64() < 0.15:
					// Truck drove off.
					weight = 0
					holding = true
				case holding && s.rng.Float64() < 0.7:
					// Keep holding: tiny drift within any sane tolerance.
					weight += s.rng.Float64()*0.02 - 0.01
				case s.rng.Float64() < 0.5:
					// New load on the deck.
					weight = 500 + s.rng.Float64()*39500
					holding = true
				default:
					// Unsettled signal.
					weight += s.rng.Float64()*40 - 20
					holding = false
				}
				if weight < 0 {
					weight = 0
				}
				handler([]byte(fmt.Sprintf("%.1f KG\r\n", weight)))
			}
		}
	}()

	return nil
}

func (s *simSource) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}
