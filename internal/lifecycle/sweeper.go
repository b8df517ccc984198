package lifecycle

import (
	"log"
	"time"
)

// SweeperConfig defines expiration sweeper configuration
type SweeperConfig struct {
	Enabled     bool
	IntervalSec int // non-positive values fall back to the default interval
}

const defaultSweepInterval = 300 * time.Second

// Sweeper periodically transitions lapsed subdomains to expired. The lazy
// check in Resolve keeps answers correct between ticks; the sweep keeps
// stored status accurate for listings.
type Sweeper struct {
	service     *Service
	config      SweeperConfig
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewSweeper creates a new expiration sweeper
func NewSweeper(service *Service, config SweeperConfig) *Sweeper {
	return &Sweeper{
		service:     service,
		config:      config,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the sweeper
func (s *Sweeper) Start() {
	if !s.config.Enabled {
		log.Println("[Sweeper] Disabled, skipping")
		close(s.stoppedChan)
		return
	}

	log.Printf("[Sweeper] Starting with interval=%ds", s.config.IntervalSec)

	go s.run()
}

// Stop stops the sweeper
func (s *Sweeper) Stop() {
	if !s.config.Enabled {
		return
	}

	log.Println("[Sweeper] Stopping...")
	close(s.stopChan)
	<-s.stoppedChan
	log.Println("[Sweeper] Stopped")
}

// run is the main sweeper loop
func (s *Sweeper) run() {
	defer close(s.stoppedChan)

	interval := time.Duration(s.config.IntervalSec) * time.Second
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	s.tick()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopChan:
			return
		}
	}
}

// tick runs one sweep pass
func (s *Sweeper) tick() {
	count, err := s.service.SweepExpired()
	if err != nil {
		log.Printf("[Sweeper] Sweep failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[Sweeper] Expired %d subdomains", count)
	}
}
