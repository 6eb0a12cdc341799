package call

import (
	"fmt"
	"time"

	cmdUtil "github.com/kanal-io/kanal/cmd/util"
	jsoniter "github.com/json-iterator/go"
	"github.com/kanal-io/kanal/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	CallCmd = &cobra.Command{
		Use:   "call TYPE [PAYLOAD]",
		Short: "Send a single frame to a kanal server",
		Long:  `Send one frame of the given type to a kanal server and print the response. The optional payload is a JSON object merged into the frame.`,
		Args:  cobra.RangeArgs(1, 2),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmdUtil.BindCommandFlags(cmd)
		},
		RunE: run,
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitClientConfig)

	cmdUtil.SetupClientFlags(CallCmd)

	key := "one-way"
	CallCmd.Flags().Bool(key, false, cmdUtil.WrapString("Send the frame without waiting for a response"))
}

func run(_ *cobra.Command, args []string) error {
	msgType := args[0]

	// parse the optional payload
	var payload map[string]any
	if len(args) == 2 {
		if err := jsoniter.ConfigFastest.UnmarshalFromString(args[1], &payload); err != nil {
			return fmt.Errorf("invalid payload: %v", err)
		}
	}

	ser, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	conf := cmdUtil.GetClientConfig()
	// A one-shot command has no use for background probing
	conf.Heartbeat.Enabled = false

	c, err := client.NewClient(conf, ser)
	if err != nil {
		return err
	}
	defer c.Close()

	if viper.GetBool("one-way") {
		return c.Notify(msgType, payload)
	}

	timeout := time.Duration(conf.Request.DefaultTimeoutMs) * time.Millisecond
	resp, err := c.Call(msgType, payload, timeout)
	if err != nil {
		return err
	}

	out, err := jsoniter.ConfigFastest.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	return nil
}
