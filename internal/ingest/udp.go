package ingest

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/sdr-enthusiasts/acarshub-server/internal/datalink"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

// maxDatagramSize bounds one decoder datagram; the decoders never send
// anything close to this.
const maxDatagramSize = 16384

// UDPListener receives decoder JSON datagrams for one protocol and
// feeds them to the engine.
type UDPListener struct {
	protocol string
	port     int
	handler  *datalink.MessageHandler
	logger   *logger.Logger

	conn   *net.UDPConn
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewUDPListener creates a listener for the given protocol and port.
func NewUDPListener(protocol string, port int, handler *datalink.MessageHandler, log *logger.Logger) *UDPListener {
	return &UDPListener{
		protocol: protocol,
		port:     port,
		handler:  handler,
		logger:   log.Named("ingest-" + protocol),
		stopCh:   make(chan struct{}),
	}
}

// Start binds the socket and begins reading datagrams.
func (l *UDPListener) Start(ctx context.Context) error {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: l.port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s listener on port %d: %w", l.protocol, l.port, err)
	}
	l.conn = conn

	l.logger.Info("Listening for messages",
		logger.String("protocol", l.protocol),
		logger.Int("port", l.port))

	l.wg.Add(1)
	go l.readLoop(ctx)

	return nil
}

// Stop closes the socket and waits for the read loop to exit.
func (l *UDPListener) Stop() {
	close(l.stopCh)
	if l.conn != nil {
		l.conn.Close()
	}
	l.wg.Wait()
	l.logger.Info("Listener stopped", logger.String("protocol", l.protocol))
}

func (l *UDPListener) readLoop(ctx context.Context) {
	defer l.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.stopCh:
				return
			case <-ctx.Done():
				return
			default:
			}
			l.logger.Error("UDP read error", logger.Error(err))
			return
		}

		msg, err := DecodeMessage(l.protocol, buf[:n])
		if err != nil {
			l.logger.Warn("Dropping undecodable datagram",
				logger.Error(err),
				logger.String("from", addr.String()),
				logger.Int("bytes", n))
			continue
		}

		result := l.handler.OnMessage(msg, false)
		l.logger.Debug("Message processed",
			logger.String("uid", result.UID),
			logger.Bool("has_alerts", result.HasAlerts),
			logger.Bool("should_display", result.ShouldDisplay))
	}
}
