package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Endpoint helpers
// --------------------------------------------------------------------------

// SplitEndpoint splits an endpoint URL of the form "scheme://address" into its
// scheme and address parts. Endpoints without a scheme default to "tcp".
func SplitEndpoint(endpoint string) (scheme string, addr string, err error) {
	if endpoint == "" {
		return "", "", fmt.Errorf("empty endpoint")
	}

	parts := strings.SplitN(endpoint, "://", 2)
	if len(parts) == 1 {
		return "tcp", parts[0], nil
	}

	if parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid endpoint: %s", endpoint)
	}

	return parts[0], parts[1], nil
}

// --------------------------------------------------------------------------
// Client configuration structs
// --------------------------------------------------------------------------

// PoolConf holds the connection pool parameters of a client.
type PoolConf struct {
	// MaxConnections is the upper bound on connections the pool may own
	// (idle + borrowed + mid-dial)
	MaxConnections int
	// MinIdle is the idle stock the maintenance task tops up towards
	MinIdle int
	// MaxIdleTimeMs controls the maintenance interval (the sweep runs every half)
	MaxIdleTimeMs int
	// AcquireTimeoutMs bounds how long Acquire blocks waiting for a release
	AcquireTimeoutMs int
	// ConnectTimeoutMs bounds a single dial attempt
	ConnectTimeoutMs int
}

// ReconnectConf holds the exponential backoff reconnect policy of a client.
type ReconnectConf struct {
	Enabled        bool
	InitialDelayMs int
	MaxDelayMs     int
	Multiplier     float64
	// MaxRetries limits consecutive failed attempts, -1 means unlimited
	MaxRetries int
}

// HeartbeatConf holds the keep-alive probing policy of a client.
type HeartbeatConf struct {
	Enabled    bool
	IntervalMs int
	TimeoutMs  int
	// ProbeType is the frame type sent as the liveness probe (e.g. "ping")
	ProbeType string
	// ExpectedType, if set, must match the type of the probe response
	ExpectedType string
}

// RequestConf holds the request/response invoker policy of a client.
type RequestConf struct {
	// DefaultTimeoutMs applies to invocations that pass no explicit timeout
	DefaultTimeoutMs int
	// SweepIntervalMs is the period of the pending-request timeout sweep
	SweepIntervalMs int
}

// ClientConfig is the fully resolved specification of one outbound client.
// It must be populated before the connection runtime is constructed.
type ClientConfig struct {
	// Endpoint of the remote peer in the form scheme://address
	Endpoint string

	Pool      PoolConf
	Reconnect ReconnectConf
	Heartbeat HeartbeatConf
	Request   RequestConf

	// Socket tuning, applied by stream transports on dial
	Transport SocketConf

	// Logging configuration
	LogLevel string
}

// DefaultClientConfig returns a ClientConfig with conservative defaults for
// everything but the endpoint.
func DefaultClientConfig(endpoint string) ClientConfig {
	return ClientConfig{
		Endpoint: endpoint,
		Pool: PoolConf{
			MaxConnections:   4,
			MinIdle:          1,
			MaxIdleTimeMs:    30_000,
			AcquireTimeoutMs: 5_000,
			ConnectTimeoutMs: 5_000,
		},
		Reconnect: ReconnectConf{
			Enabled:        true,
			InitialDelayMs: 100,
			MaxDelayMs:     30_000,
			Multiplier:     2.0,
			MaxRetries:     -1,
		},
		Heartbeat: HeartbeatConf{
			Enabled:      true,
			IntervalMs:   10_000,
			TimeoutMs:    2_000,
			ProbeType:    "ping",
			ExpectedType: "pong",
		},
		Request: RequestConf{
			DefaultTimeoutMs: 10_000,
			SweepIntervalMs:  100,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for values the runtime cannot work with.
func (c *ClientConfig) Validate() error {
	if _, _, err := SplitEndpoint(c.Endpoint); err != nil {
		return err
	}
	if c.Pool.MaxConnections <= 0 {
		return fmt.Errorf("pool max connections must be > 0, got %d", c.Pool.MaxConnections)
	}
	if c.Pool.MinIdle > c.Pool.MaxConnections {
		return fmt.Errorf("pool min idle (%d) exceeds max connections (%d)", c.Pool.MinIdle, c.Pool.MaxConnections)
	}
	if c.Pool.MaxIdleTimeMs <= 0 {
		return fmt.Errorf("pool max idle time must be > 0, got %d", c.Pool.MaxIdleTimeMs)
	}
	if c.Pool.AcquireTimeoutMs <= 0 {
		return fmt.Errorf("pool acquire timeout must be > 0, got %d", c.Pool.AcquireTimeoutMs)
	}
	if c.Pool.ConnectTimeoutMs <= 0 {
		return fmt.Errorf("pool connect timeout must be > 0, got %d", c.Pool.ConnectTimeoutMs)
	}
	if c.Reconnect.Enabled && c.Reconnect.Multiplier < 1 {
		return fmt.Errorf("reconnect multiplier must be >= 1, got %f", c.Reconnect.Multiplier)
	}
	if c.Heartbeat.Enabled && c.Heartbeat.IntervalMs <= 0 {
		return fmt.Errorf("heartbeat interval must be > 0, got %d", c.Heartbeat.IntervalMs)
	}
	if c.Request.DefaultTimeoutMs <= 0 {
		return fmt.Errorf("request default timeout must be > 0, got %d", c.Request.DefaultTimeoutMs)
	}
	if c.Request.SweepIntervalMs <= 0 {
		return fmt.Errorf("request sweep interval must be > 0, got %d", c.Request.SweepIntervalMs)
	}
	return nil
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client")
	addField("Endpoint", c.Endpoint)
	addField("Log Level", c.LogLevel)

	addSection("Pool")
	addField("Max Connections", strconv.Itoa(c.Pool.MaxConnections))
	addField("Min Idle", strconv.Itoa(c.Pool.MinIdle))
	addField("Max Idle Time", fmt.Sprintf("%d ms", c.Pool.MaxIdleTimeMs))
	addField("Acquire Timeout", fmt.Sprintf("%d ms", c.Pool.AcquireTimeoutMs))
	addField("Connect Timeout", fmt.Sprintf("%d ms", c.Pool.ConnectTimeoutMs))

	addSection("Reconnect")
	addField("Enabled", strconv.FormatBool(c.Reconnect.Enabled))
	if c.Reconnect.Enabled {
		addField("Initial Delay", fmt.Sprintf("%d ms", c.Reconnect.InitialDelayMs))
		addField("Max Delay", fmt.Sprintf("%d ms", c.Reconnect.MaxDelayMs))
		addField("Multiplier", strconv.FormatFloat(c.Reconnect.Multiplier, 'f', -1, 64))
		if c.Reconnect.MaxRetries < 0 {
			addField("Max Retries", "unlimited")
		} else {
			addField("Max Retries", strconv.Itoa(c.Reconnect.MaxRetries))
		}
	}

	addSection("Heartbeat")
	addField("Enabled", strconv.FormatBool(c.Heartbeat.Enabled))
	if c.Heartbeat.Enabled {
		addField("Interval", fmt.Sprintf("%d ms", c.Heartbeat.IntervalMs))
		addField("Timeout", fmt.Sprintf("%d ms", c.Heartbeat.TimeoutMs))
		addField("Probe Type", c.Heartbeat.ProbeType)
		addField("Expected Type", c.Heartbeat.ExpectedType)
	}

	addSection("Requests")
	addField("Default Timeout", fmt.Sprintf("%d ms", c.Request.DefaultTimeoutMs))
	addField("Sweep Interval", fmt.Sprintf("%d ms", c.Request.SweepIntervalMs))

	return sb.String()
}

// --------------------------------------------------------------------------
// Server configuration structs
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the multi-listener server.
type ServerConfig struct {
	// Endpoints the server listens on, each in the form scheme://address.
	// The scheme selects the transport (tcp, unix, udp, ws).
	Endpoints []string

	// TimeoutSecond is the per-connection read/write deadline
	TimeoutSecond int64

	// MaxWorkersPerConn limits concurrent in-flight requests per connection
	MaxWorkersPerConn int

	// Socket tuning for stream transports
	Transport SocketConf

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.MaxWorkersPerConn))
	addField("Log Level", c.LogLevel)

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Socket tuning
// --------------------------------------------------------------------------

// SocketConf holds low-level socket options applied by stream transports.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}
