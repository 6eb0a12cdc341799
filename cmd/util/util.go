package util

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/serializer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the common client connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "tcp://localhost:8080", WrapString("The endpoint of the kanal server in the form scheme://address (schemes: tcp, unix, udp, ws)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10_000, WrapString("Default request timeout in milliseconds"))

	key = "pool-max-connections"
	cmd.PersistentFlags().Int(key, 4, WrapString("Upper bound on pooled connections to the endpoint"))

	key = "pool-min-idle"
	cmd.PersistentFlags().Int(key, 1, WrapString("Idle connection floor the pool keeps topped up"))

	key = "pool-acquire-timeout"
	cmd.PersistentFlags().Int(key, 5_000, WrapString("How long to wait for a free connection when the pool is at capacity (in milliseconds)"))

	key = "pool-connect-timeout"
	cmd.PersistentFlags().Int(key, 5_000, WrapString("Timeout for a single dial attempt (in milliseconds)"))

	key = "reconnect"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to re-establish lost connections automatically"))

	key = "reconnect-max-retries"
	cmd.PersistentFlags().Int(key, -1, WrapString("How many consecutive reconnect attempts may fail before giving up (-1 for unlimited)"))

	key = "heartbeat"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to probe the endpoint with periodic ping frames"))

	key = "heartbeat-interval"
	cmd.PersistentFlags().Int(key, 10_000, WrapString("Heartbeat probe interval (in milliseconds)"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the write buffer for the transport (in KB, stream transports only)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the read buffer for the transport (in KB, stream transports only)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, tcp only)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time (in seconds, tcp only)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("kanal")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	conf := common.DefaultClientConfig(viper.GetString("endpoint"))

	conf.Request.DefaultTimeoutMs = viper.GetInt("timeout")
	conf.Pool.MaxConnections = viper.GetInt("pool-max-connections")
	conf.Pool.MinIdle = viper.GetInt("pool-min-idle")
	conf.Pool.AcquireTimeoutMs = viper.GetInt("pool-acquire-timeout")
	conf.Pool.ConnectTimeoutMs = viper.GetInt("pool-connect-timeout")
	conf.Reconnect.Enabled = viper.GetBool("reconnect")
	conf.Reconnect.MaxRetries = viper.GetInt("reconnect-max-retries")
	conf.Heartbeat.Enabled = viper.GetBool("heartbeat")
	conf.Heartbeat.IntervalMs = viper.GetInt("heartbeat-interval")
	conf.LogLevel = viper.GetString("log-level")

	conf.Transport = common.SocketConf{
		WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
	}

	return conf
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IFrameSerializer, error) {
	switch viper.GetString("serializer") {
	case "", "json":
		return serializer.NewJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
