package serve

import (
	"fmt"
	"strings"

	cmdUtil "github.com/kanal-io/kanal/cmd/util"
	"github.com/joho/godotenv"
	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the kanal server",
		Long:    `Start the kanal server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is KANAL_<flag> (e.g. KANAL_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoints"
	ServeCmd.PersistentFlags().String(key, "tcp://0.0.0.0:8080", cmdUtil.WrapString("Comma-separated list of endpoints to listen on, each in the form scheme://address (schemes: tcp, unix, udp, ws)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Per-connection read/write timeout in seconds"))

	key = "max-workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("Maximum number of concurrently processed requests per connection"))

	key = "transport-write-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("The size of the write buffer for the transport (in KB, stream transports only)"))

	key = "transport-read-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("The size of the read buffer for the transport (in KB, stream transports only)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse endpoints
	serveCmdConfig.Endpoints = []string{}
	for _, endpoint := range strings.Split(viper.GetString("endpoints"), ",") {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" {
			continue
		}
		if _, _, err := common.SplitEndpoint(endpoint); err != nil {
			return fmt.Errorf("invalid endpoint %s: %v", endpoint, err)
		}
		serveCmdConfig.Endpoints = append(serveCmdConfig.Endpoints, endpoint)
	}
	if len(serveCmdConfig.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required")
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MaxWorkersPerConn = viper.GetInt("max-workers-per-conn")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.SocketConf{
		WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
	}

	return nil
}

// run starts the kanal server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	serv := server.NewServer(*serveCmdConfig, s)

	// Echo handler, answers every "echo" frame with its own payload.
	// Useful as a smoke test target together with the call command.
	serv.Handle("echo", func(req common.Frame) (common.Frame, error) {
		return common.NewFrame("echo", map[string]any(req)), nil
	})

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("kanal")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
