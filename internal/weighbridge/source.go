package weighbridge

import (
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
)

// LineSource delivers raw bytes from a weight indicator. Exactly one Start
// per source; Stop waits for the delivery goroutine to finish. Hardware and
// simulation implement the same interface so everything downstream of the
// byte path is identical regardless of where the bytes come from.
type LineSource interface {
	Start(handler func(chunk []byte)) error
	Stop()
}

type serialSource struct {
	cfg    Config
	logger *log.Logger

	port   serial.Port
	closed chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newSerialSource(cfg Config, logger *log.Logger) *serialSource {
	return &serialSource{
		cfg:    cfg,
		logger: logger,
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func serialMode(cfg Config) *serial.Mode {
	mode := &serial.Mode{BaudRate: cfg.BaudRate, DataBits: cfg.DataBits}
	switch cfg.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}
	if cfg.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	} else {
		mode.StopBits = serial.OneStopBit
	}
	return mode
}

func (s *serialSource) Start(handler func([]byte)) error {
	port, err := serial.Open(s.cfg.PortName, serialMode(s.cfg))
	if err != nil {
		return err
	}
	s.port = port

	go func() {
		defer close(s.done)
		buf := make([]byte, 256)
		for {
			n, err := port.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				handler(chunk)
			}
			if err != nil {
				select {
				case <-s.closed:
					return
				default:
				}
				// Transient read failure: drop the chunk, keep the
				// link alive.
				s.logger.Printf("weighbridge: serial read error on %s: %v", s.cfg.PortName, err)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()

	return nil
}

func (s *serialSource) Stop() {
	s.once.Do(func() {
		close(s.closed)
		if s.port != nil {
			_ = s.port.Close()
		}
		<-s.done
	})
}
