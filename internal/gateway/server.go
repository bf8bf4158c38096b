package gateway

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/echovox/udp-voice-gateway/internal/config"
	"github.com/echovox/udp-voice-gateway/internal/observability"
	"github.com/echovox/udp-voice-gateway/internal/orchestrator"
	"github.com/echovox/udp-voice-gateway/internal/session"
	"github.com/echovox/udp-voice-gateway/internal/stt"
)

// datagram is one received UDP packet with its source address
type datagram struct {
	payload []byte
	addr    *net.UDPAddr
}

// Server owns the UDP socket and the full ingest path: receive loop,
// packet workers, per-session silence watchers, the stale-session sweep,
// and response sending. Transcription and pipeline dispatch go through the
// injected collaborators.
type Server struct {
	config      *config.Config
	logger      zerolog.Logger
	registry    *session.Registry
	transcriber stt.Transcriber
	pipeline    orchestrator.Pipeline

	conn *net.UDPConn

	ctx    context.Context
	cancel context.CancelFunc

	// packetChan is written only by the receive loop; watchChan is written
	// only by packet workers that won a TryArmWatcher
	packetChan  chan *datagram
	watchChan   chan *session.Session
	receiveDone chan struct{}

	stopOnce sync.Once
}

// NewServer creates a gateway server around the given collaborators
func NewServer(cfg *config.Config, transcriber stt.Transcriber, pipeline orchestrator.Pipeline) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		config:      cfg,
		logger:      observability.WithComponent("gateway"),
		registry:    session.NewRegistry(),
		transcriber: transcriber,
		pipeline:    pipeline,
		ctx:         ctx,
		cancel:      cancel,
		packetChan:  make(chan *datagram, cfg.PacketQueueSize),
		watchChan:   make(chan *session.Session, cfg.WatcherQueueSize),
		receiveDone: make(chan struct{}),
	}
}

// Start binds the UDP socket and launches the receive loop, the worker
// pools, and the stale-session sweep
func (s *Server) Start() error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.config.BindAddress, s.config.UDPPort))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP port %d: %w", s.config.UDPPort, err)
	}
	s.conn = conn

	if err := s.conn.SetReadBuffer(s.config.ReadBufferBytes); err != nil {
		s.logger.Warn().Err(err).Int("buffer_bytes", s.config.ReadBufferBytes).
			Msg("Failed to set UDP read buffer size")
	}

	for i := 0; i < s.config.PacketWorkers; i++ {
		go s.packetWorker(i)
	}
	for i := 0; i < s.config.WatcherWorkers; i++ {
		go s.watcherWorker(i)
	}
	go s.sweepLoop()
	go s.receiveLoop()

	s.logger.Info().
		Str("address", conn.LocalAddr().String()).
		Int("packet_workers", s.config.PacketWorkers).
		Int("watcher_workers", s.config.WatcherWorkers).
		Dur("debounce", s.config.DebounceDuration()).
		Msg("UDP gateway started")

	return nil
}

// Addr returns the bound socket address, useful when the port was 0
func (s *Server) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// ActiveSessions returns the number of sessions currently registered
func (s *Server) ActiveSessions() int {
	return s.registry.Len()
}

// Stop shuts the gateway down without draining: the receive loop is told to
// stop and waited for, the packet queue is closed behind it, and every
// remaining session is abandoned. In-flight finalizations are not waited
// on; watcher workers notice the cancelled context on their own.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info().Msg("Stopping UDP gateway...")

		s.cancel()

		if s.conn == nil {
			return
		}
		if err := s.conn.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing UDP socket")
		}

		// The receive loop is the sole sender on packetChan; close it only
		// once the loop has exited
		<-s.receiveDone
		close(s.packetChan)

		abandoned := s.registry.Clear()
		observability.SetActiveSessions(0)

		s.logger.Info().Int("abandoned_sessions", abandoned).Msg("UDP gateway stopped")
	})
}

// receiveLoop reads datagrams and dispatches them to the packet workers.
// It never touches the registry itself, so a slow session cannot stall
// intake from other clients.
func (s *Server) receiveLoop() {
	defer close(s.receiveDone)

	buffer := make([]byte, s.config.ReadBufferBytes)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug().Msg("Receive loop stopping")
			return
		default:
		}

		// Bounded read so the loop can observe shutdown
		if err := s.conn.SetReadDeadline(time.Now().Add(s.config.ReceiveTimeoutDuration())); err != nil {
			s.logger.Error().Err(err).Msg("Failed to set read deadline")
			continue
		}

		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-s.ctx.Done():
				return
			default:
				observability.RecordError("socket_read", "gateway")
				s.logger.Error().Err(err).Msg("Failed to read UDP packet")
				continue
			}
		}

		observability.RecordPacketReceived(n)

		// The read buffer is reused; hand the workers their own copy
		payload := make([]byte, n)
		copy(payload, buffer[:n])

		select {
		case s.packetChan <- &datagram{payload: payload, addr: remoteAddr}:
		default:
			observability.RecordPacketDropped("queue_full")
			s.logger.Warn().
				Str("remote_addr", remoteAddr.String()).
				Int("packet_bytes", n).
				Msg("Packet queue full, dropping packet")
		}
	}
}

// packetWorker drains the packet queue until it is closed on shutdown
func (s *Server) packetWorker(id int) {
	s.logger.Debug().Int("worker_id", id).Msg("Packet worker started")

	for pkt := range s.packetChan {
		s.handlePacket(pkt)
	}

	s.logger.Debug().Int("worker_id", id).Msg("Packet worker stopped")
}

// handlePacket appends one datagram to its session, creating the session on
// first contact and arming a silence watcher when none is running
func (s *Server) handlePacket(pkt *datagram) {
	key := pkt.addr.String()

	sess, created := s.registry.GetOrCreate(key, pkt.addr)
	if created {
		observability.RecordSessionCreated()
		s.logger.Debug().Str("session", key).Msg("Session started")
	}

	total := sess.Append(pkt.payload)
	s.logger.Debug().
		Str("session", key).
		Int("packet_bytes", len(pkt.payload)).
		Int("buffered_bytes", total).
		Msg("Packet buffered")

	if !sess.TryArmWatcher() {
		return
	}

	select {
	case s.watchChan <- sess:
	default:
		// Give a later packet the chance to re-arm; the sweep is the backstop
		sess.DisarmWatcher()
		observability.RecordError("watcher_queue_full", "gateway")
		s.logger.Warn().Str("session", key).Msg("Watcher queue full, session left to the sweep")
	}
}

// watcherWorker runs silence watchers for sessions as they are armed
func (s *Server) watcherWorker(id int) {
	s.logger.Debug().Int("worker_id", id).Msg("Watcher worker started")

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug().Int("worker_id", id).Msg("Watcher worker stopped")
			return
		case sess := <-s.watchChan:
			s.watchSession(sess)
		}
	}
}

// watchSession sleeps in debounce-interval steps until a full interval
// passes with no new packet, then finalizes the session. A shutdown during
// the sleep abandons the watch without finalizing.
func (s *Server) watchSession(sess *session.Session) {
	debounce := s.config.DebounceDuration()
	timer := time.NewTimer(debounce)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}

		if sess.SinceLastPacket() >= debounce {
			s.finalizeSession(sess)
			return
		}
		timer.Reset(debounce)
	}
}

// sweepLoop periodically evicts sessions whose watcher was lost
func (s *Server) sweepLoop() {
	ticker := time.NewTicker(s.config.SweepIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweepStaleSessions()
		}
	}
}

// sweepStaleSessions claims and drops sessions idle beyond the liveness
// threshold. No response is sent; a client this stale is long gone. Under
// normal operation the debounce path fires first and the sweep finds
// nothing.
func (s *Server) sweepStaleSessions() {
	liveness := s.config.LivenessDuration()

	for _, sess := range s.registry.Snapshot() {
		idle := sess.SinceLastPacket()
		if idle < liveness {
			continue
		}
		if !sess.BeginFinalize() {
			continue
		}

		s.registry.Remove(sess.Key())
		observability.RecordStaleSessionSwept()
		observability.RecordSessionFinalized("swept", sess.Age(), sess.TotalBytes())

		s.logger.Warn().
			Str("session", sess.Key()).
			Dur("idle", idle).
			Int("buffered_bytes", sess.TotalBytes()).
			Msg("Swept stale session")
	}
}

// sendResponse writes one response datagram back to the client. Send
// failures are logged and swallowed; they never affect session cleanup.
func (s *Server) sendResponse(addr *net.UDPAddr, message string) {
	if _, err := s.conn.WriteToUDP([]byte(message), addr); err != nil {
		observability.RecordResponseSent(false)
		observability.RecordResponseSendFailure()
		s.logger.Warn().Err(err).Str("client", addr.String()).Msg("Failed to send response")
		return
	}
	observability.RecordResponseSent(true)
}
