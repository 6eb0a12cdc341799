package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/serializer"
	"github.com/kanal-io/kanal/rpc/transport"
	"github.com/kanal-io/kanal/rpc/transport/tcp"
	"github.com/kanal-io/kanal/rpc/transport/udp"
	"github.com/kanal-io/kanal/rpc/transport/unix"
	"github.com/kanal-io/kanal/rpc/transport/ws"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger for the client connection runtime
var Logger = logger.GetLogger("rpc/client")

// NewDialer builds the dialer matching the endpoint's scheme.
func NewDialer(endpoint string, socket common.SocketConf) (transport.Dialer, error) {
	scheme, addr, err := common.SplitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "tcp":
		return tcp.NewTCPDialer(addr, socket), nil
	case "unix":
		return unix.NewUnixDialer(addr, socket), nil
	case "udp":
		return udp.NewUDPDialer(addr, socket), nil
	case "ws":
		return ws.NewWSDialer(addr, socket), nil
	default:
		return nil, fmt.Errorf("unsupported endpoint scheme: %s", scheme)
	}
}

// Client bundles the connection runtime for one endpoint: a bounded
// connection pool, a reconnect manager feeding it replacements, a heartbeat
// probing the path, and a request invoker correlating responses.
type Client struct {
	config common.ClientConfig

	pool      *ConnectionPool
	reconnect *ReconnectManager
	heartbeat *HeartbeatManager
	invoker   *RequestInvoker
	sched     *Scheduler

	closeOnce sync.Once
}

// NewClient creates and starts a client for the configured endpoint. The
// first connection is dialed lazily on the first call or by the pool's idle
// top-up, whichever comes first.
func NewClient(config common.ClientConfig, ser serializer.IFrameSerializer) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	common.InitLoggers(config.LogLevel)

	dialer, err := NewDialer(config.Endpoint, config.Transport)
	if err != nil {
		return nil, err
	}

	sched := NewScheduler()
	invoker := NewRequestInvoker(ser, config.Request, sched)
	pool := NewConnectionPool(config.Pool, dialer, invoker.HandleInbound, sched)

	connectTimeout := time.Duration(config.Pool.ConnectTimeoutMs) * time.Millisecond
	reconnect := NewReconnectManager(config.Reconnect, pool, dialer, invoker.HandleInbound, connectTimeout, sched)
	pool.SetReconnector(reconnect)

	heartbeat := NewHeartbeatManager(config.Heartbeat, pool, invoker, sched)
	heartbeat.Start()

	Logger.Infof("client created for %s (transport %s)", config.Endpoint, dialer.GetName())

	return &Client{
		config:    config,
		pool:      pool,
		reconnect: reconnect,
		heartbeat: heartbeat,
		invoker:   invoker,
		sched:     sched,
	}, nil
}

// Call sends a request and blocks until the correlated response arrives or
// the request times out.
func (c *Client) Call(msgType string, payload any, timeout time.Duration) (common.Frame, error) {
	future, err := c.CallAsync(msgType, payload, timeout)
	if err != nil {
		return nil, err
	}
	return future.Result()
}

// CallAsync sends a request and returns a future for the response. The
// connection is released back to the pool before the response arrives; the
// invoker matches it by correlation id on whichever connection delivers it.
func (c *Client) CallAsync(msgType string, payload any, timeout time.Duration) (*Future, error) {
	conn, err := c.pool.Acquire()
	if err != nil {
		return nil, err
	}

	future := c.invoker.Invoke(conn, msgType, payload, timeout)
	c.pool.Release(conn)
	return future, nil
}

// Notify sends a one-way frame without expecting a response.
func (c *Client) Notify(msgType string, payload any) error {
	conn, err := c.pool.Acquire()
	if err != nil {
		return err
	}
	defer c.pool.Release(conn)

	c.invoker.InvokeOneWay(conn, msgType, payload)
	return nil
}

// SetPushHandler registers the handler for unsolicited server frames.
func (c *Client) SetPushHandler(handler PushHandler) {
	c.invoker.SetPushHandler(handler)
}

// Pool exposes the connection pool, mainly for introspection.
func (c *Client) Pool() *ConnectionPool { return c.pool }

// Reconnect exposes the reconnect manager.
func (c *Client) Reconnect() *ReconnectManager { return c.reconnect }

// Heartbeat exposes the heartbeat manager.
func (c *Client) Heartbeat() *HeartbeatManager { return c.heartbeat }

// Invoker exposes the request invoker.
func (c *Client) Invoker() *RequestInvoker { return c.invoker }

// Close shuts the runtime down in dependency order: probes stop first, then
// reconnects, then pending requests fail, then the connections close.
// Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.heartbeat.Stop()
		c.reconnect.Stop()
		c.invoker.Close()
		c.pool.Close()
		c.sched.Stop()
		Logger.Infof("client for %s closed", c.config.Endpoint)
	})
}
