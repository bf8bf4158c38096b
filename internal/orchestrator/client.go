package orchestrator

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/echovox/udp-voice-gateway/internal/config"
	"github.com/echovox/udp-voice-gateway/internal/observability"
	"github.com/echovox/udp-voice-gateway/internal/resilience"
)

// processMethod is the fully qualified unary method for assistant dispatch
const processMethod = "/assistant.v1.Assistant/Process"

// Client manages the gRPC connection to the assistant orchestrator
type Client struct {
	config         *config.Config
	conn           *grpc.ClientConn
	mu             sync.RWMutex
	isConnected    bool
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// NewClient creates a new orchestrator client and dials the endpoint
func NewClient(cfg *config.Config) (*Client, error) {
	client := &Client{
		config: cfg,
		circuitBreaker: resilience.NewCircuitBreaker(
			"orchestrator",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		logger: observability.WithComponent("orchestrator"),
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to orchestrator: %w", err)
	}

	return client, nil
}

// connect establishes the gRPC connection to the orchestrator
func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isConnected && c.conn != nil {
		return nil // Already connected
	}

	// Configure connection options
	var opts []grpc.DialOption

	if c.config.OrchestratorTLSEnabled {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	// Keepalive settings for long-lived connections
	opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
		Time:                10 * time.Second,
		Timeout:             3 * time.Second,
		PermitWithoutStream: true,
	}))

	// Every call on this connection, health checks included, uses the JSON codec
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)))

	ctx, cancel := context.WithTimeout(context.Background(), c.config.OrchestratorTimeoutDuration())
	defer cancel()

	conn, err := grpc.DialContext(ctx, c.config.OrchestratorURL, opts...)
	if err != nil {
		return fmt.Errorf("failed to dial orchestrator at %s: %w", c.config.OrchestratorURL, err)
	}

	c.conn = conn
	c.isConnected = true

	c.logger.Info().Str("url", c.config.OrchestratorURL).Msg("Connected to orchestrator")
	return nil
}

// Process sends the transcript downstream and returns the assistant's final
// reply. Each invocation carries its own correlation ID; retry across
// invocations is the caller's concern.
func (c *Client) Process(ctx context.Context, correlationID, text string) (string, error) {
	c.mu.RLock()
	connected := c.isConnected
	conn := c.conn
	c.mu.RUnlock()

	if !connected || conn == nil {
		if err := c.connect(); err != nil {
			return "", err
		}
		c.mu.RLock()
		conn = c.conn
		c.mu.RUnlock()
	}

	req := &PipelineRequest{
		CorrelationID:  correlationID,
		Text:           text,
		ToolsEnabled:   c.config.PipelineToolsEnabled,
		RecursionLimit: c.config.PipelineRecursionLimit,
	}
	resp := &PipelineResponse{}

	start := time.Now()
	err := c.circuitBreaker.Call(func() error {
		return conn.Invoke(ctx, processMethod, req, resp)
	})

	// Update circuit breaker metrics
	observability.UpdateCircuitBreakerState("orchestrator", int(c.circuitBreaker.GetState()))
	observability.RecordPipelineRequest(err == nil, time.Since(start))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("orchestrator")
		if resilience.IsRetryableNetworkError(err) {
			c.logger.Warn().Err(err).Str("correlation_id", correlationID).
				Msg("Pipeline dispatch hit a transient network error")
		}
		return "", fmt.Errorf("pipeline dispatch failed: %w", err)
	}

	if resp.Message == "" {
		return "", fmt.Errorf("pipeline returned an empty response message")
	}

	c.logger.Debug().
		Str("correlation_id", correlationID).
		Int32("total_tokens", resp.TotalTokens).
		Dur("elapsed", time.Since(start)).
		Msg("Pipeline dispatch completed")

	return resp.Message, nil
}

// HealthCheck asks the orchestrator's standard gRPC health service whether
// it is serving. Surfaced by the readiness endpoint.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	c.mu.RLock()
	connected := c.isConnected
	conn := c.conn
	c.mu.RUnlock()

	if !connected || conn == nil {
		return false, fmt.Errorf("orchestrator client is not connected")
	}

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return false, fmt.Errorf("health check failed: %w", err)
	}

	return resp.Status == grpc_health_v1.HealthCheckResponse_SERVING, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.isConnected = false
		c.conn = nil
		return err
	}

	return nil
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}
