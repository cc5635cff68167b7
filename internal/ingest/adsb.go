package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sdr-enthusiasts/acarshub-server/internal/datalink"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

// ADSBPoller periodically fetches an aircraft.json position feed
// (tar1090/readsb shape) and applies each batch to the engine.
type ADSBPoller struct {
	url      string
	interval time.Duration
	client   *http.Client
	handler  *datalink.MessageHandler
	logger   *logger.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewADSBPoller creates a poller for the given feed URL.
func NewADSBPoller(url string, interval time.Duration, handler *datalink.MessageHandler, log *logger.Logger) *ADSBPoller {
	return &ADSBPoller{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
		handler:  handler,
		logger:   log.Named("ingest-adsb"),
		stopCh:   make(chan struct{}),
	}
}

// Start runs an initial fetch and begins the background polling loop.
func (p *ADSBPoller) Start(ctx context.Context) error {
	p.logger.Info("Starting ADS-B poller",
		logger.String("url", p.url),
		logger.Duration("interval", p.interval))

	if err := p.fetchAndProcess(ctx); err != nil {
		p.logger.Error("Initial ADS-B fetch failed", logger.Error(err))
	}

	p.wg.Add(1)
	go p.fetchLoop(ctx)

	return nil
}

// Stop stops the polling loop.
func (p *ADSBPoller) Stop() {
	close(p.stopCh)
	p.wg.Wait()
	p.logger.Info("ADS-B poller stopped")
}

func (p *ADSBPoller) fetchLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.fetchAndProcess(ctx); err != nil {
				p.logger.Error("Failed to fetch ADS-B data", logger.Error(err))
			}
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *ADSBPoller) fetchAndProcess(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch position data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("position feed returned status %d", resp.StatusCode)
	}

	var batch datalink.PositionBatch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return fmt.Errorf("failed to decode position data: %w", err)
	}

	p.handler.OnPositions(&batch)
	return nil
}
