package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// ClientConfig holds gRPC client configuration
type ClientConfig struct {
	Target            string
	CallTimeout       time.Duration // Applied to calls without a deadline; 0 disables
	MaxRecvMsgSize    int
	MaxSendMsgSize    int
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration

	// Dialer replaces the default TCP dialer (used for in-process listeners)
	Dialer func(ctx context.Context, addr string) (net.Conn, error)
}

// DefaultClientConfig returns a default client configuration
func DefaultClientConfig(target string) ClientConfig {
	return ClientConfig{
		Target:            target,
		CallTimeout:       5 * time.Second,
		MaxRecvMsgSize:    4 * 1024 * 1024, // 4MB
		MaxSendMsgSize:    4 * 1024 * 1024, // 4MB
		KeepaliveInterval: 30 * time.Second,
		KeepaliveTimeout:  10 * time.Second,
	}
}

// Dial creates a new gRPC client connection. The connection is lazy: no
// network traffic happens until the first call.
func Dial(cfg ClientConfig, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("dial: empty target")
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(cfg.MaxRecvMsgSize),
			grpc.MaxCallSendMsgSize(cfg.MaxSendMsgSize),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveInterval,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithChainUnaryInterceptor(
			ClientTimeoutInterceptor(cfg.CallTimeout),
			ClientRequestIDInterceptor(),
			ClientLoggingInterceptor(),
		),
	}
	if cfg.Dialer != nil {
		dialOpts = append(dialOpts, grpc.WithContextDialer(cfg.Dialer))
	}

	// Append custom options
	dialOpts = append(dialOpts, opts...)

	target := cfg.Target
	if cfg.Dialer != nil {
		// Custom dialers receive the address verbatim
		target = "passthrough:///" + target
	}

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.Target, err)
	}

	return conn, nil
}

// ConnectionPool manages one connection per endpoint (thread-safe)
type ConnectionPool struct {
	mu          sync.RWMutex
	connections map[string]*grpc.ClientConn
	config      ClientConfig
	closed      bool
}

// NewConnectionPool creates a new connection pool
func NewConnectionPool(cfg ClientConfig) *ConnectionPool {
	return &ConnectionPool{
		connections: make(map[string]*grpc.ClientConn),
		config:      cfg,
	}
}

// ErrPoolClosed is returned by Get after Close
var ErrPoolClosed = fmt.Errorf("connection pool closed")

// Get returns a connection to the target, creating one if necessary.
// The connection is checked for health before returning.
func (p *ConnectionPool) Get(target string) (*grpc.ClientConn, error) {
	p.mu.RLock()
	conn, exists := p.connections[target]
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		return nil, ErrPoolClosed
	}
	if exists && isConnectionHealthy(conn) {
		return conn, nil
	}

	// Need to create or recreate connection
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	// Double-check after acquiring write lock
	if conn, exists := p.connections[target]; exists {
		if isConnectionHealthy(conn) {
			return conn, nil
		}
		// Connection unhealthy, close and recreate
		conn.Close()
		delete(p.connections, target)
	}

	cfg := p.config
	cfg.Target = target
	newConn, err := Dial(cfg)
	if err != nil {
		return nil, err
	}

	p.connections[target] = newConn
	return newConn, nil
}

// isConnectionHealthy checks if the connection is in a usable state
func isConnectionHealthy(conn *grpc.ClientConn) bool {
	state := conn.GetState()
	return state == connectivity.Ready || state == connectivity.Idle || state == connectivity.Connecting
}

// GetStatus returns the connection status for all targets
func (p *ConnectionPool) GetStatus() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := make(map[string]string, len(p.connections))
	for target, conn := range p.connections {
		status[target] = conn.GetState().String()
	}
	return status
}

// Len returns the number of pooled connections
func (p *ConnectionPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.connections)
}

// Close closes all connections in the pool. Get fails afterwards.
func (p *ConnectionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	var lastErr error
	for target, conn := range p.connections {
		if err := conn.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close connection to %s: %w", target, err)
		}
		delete(p.connections, target)
	}
	return lastErr
}
