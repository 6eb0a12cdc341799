package perf

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	cmdUtil "github.com/kanal-io/kanal/cmd/util"
	"github.com/kanal-io/kanal/rpc/client"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for kanal servers",
		Long:    "",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfRequests    = 10_000
	perfNumThreads  = 10
	perfPayloadSize = 64
	perfFrameType   = "echo"
)

func init() {
	cobra.OnInitialize(cmdUtil.InitClientConfig)

	cmdUtil.SetupClientFlags(PerfCmd)

	// add flags
	key := "requests"
	PerfCmd.Flags().Int(key, 10_000, cmdUtil.WrapString("Total number of requests to send"))
	key = "threads"
	PerfCmd.Flags().Int(key, 10, cmdUtil.WrapString("Number of threads to use for the benchmark"))
	key = "payload-size"
	PerfCmd.Flags().Int(key, 64, cmdUtil.WrapString("Size of the request payload (in bytes)"))
	key = "type"
	PerfCmd.Flags().String(key, "echo", cmdUtil.WrapString("Frame type to send (the target server must have a handler for it)"))
	key = "csv"
	PerfCmd.Flags().String(key, "", cmdUtil.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfRequests = viper.GetInt("requests")
	perfNumThreads = viper.GetInt("threads")
	perfPayloadSize = viper.GetInt("payload-size")
	perfFrameType = viper.GetString("type")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for kanal servers")

	ser, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	conf := cmdUtil.GetClientConfig()

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(conf.String())
	fmt.Printf("Requests: %d\n", perfRequests)
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Payload: %d bytes\n", perfPayloadSize)
	fmt.Println()

	c, err := client.NewClient(conf, ser)
	if err != nil {
		return err
	}
	defer c.Close()

	payload := map[string]any{"data": strings.Repeat("x", perfPayloadSize)}
	timeout := time.Duration(conf.Request.DefaultTimeoutMs) * time.Millisecond

	fmt.Println("starting benchmark...")

	timer := metrics.NewTimer()
	errorCounter := metrics.NewCounter()

	var wg sync.WaitGroup
	perThread := perfRequests / perfNumThreads

	start := time.Now()
	for i := 0; i < perfNumThreads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perThread; j++ {
				reqStart := time.Now()
				_, err := c.Call(perfFrameType, payload, timeout)
				timer.Update(time.Since(reqStart))
				if err != nil {
					errorCounter.Inc(1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	printResult(timer, errorCounter, elapsed)

	// Optionally save as csv
	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := saveCSV(csvPath, timer, errorCounter, elapsed); err != nil {
			return fmt.Errorf("failed to save csv: %v", err)
		}
		fmt.Printf("results saved to %s\n", csvPath)
	}

	return nil
}

func printResult(timer metrics.Timer, errs metrics.Counter, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("Results:")
	fmt.Printf("  %-12s: %d\n", "requests", timer.Count())
	fmt.Printf("  %-12s: %d\n", "errors", errs.Count())
	fmt.Printf("  %-12s: %s\n", "elapsed", elapsed.Round(time.Millisecond))
	fmt.Printf("  %-12s: %.0f req/s\n", "throughput", float64(timer.Count())/elapsed.Seconds())
	fmt.Printf("  %-12s: %s\n", "mean", time.Duration(timer.Mean()).Round(time.Microsecond))
	fmt.Printf("  %-12s: %s\n", "p50", time.Duration(timer.Percentile(0.5)).Round(time.Microsecond))
	fmt.Printf("  %-12s: %s\n", "p95", time.Duration(timer.Percentile(0.95)).Round(time.Microsecond))
	fmt.Printf("  %-12s: %s\n", "p99", time.Duration(timer.Percentile(0.99)).Round(time.Microsecond))
	fmt.Printf("  %-12s: %s\n", "max", time.Duration(timer.Max()).Round(time.Microsecond))
}

func saveCSV(path string, timer metrics.Timer, errs metrics.Counter, elapsed time.Duration) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	rows := [][]string{
		{"metric", "value"},
		{"requests", fmt.Sprintf("%d", timer.Count())},
		{"errors", fmt.Sprintf("%d", errs.Count())},
		{"elapsed_ms", fmt.Sprintf("%d", elapsed.Milliseconds())},
		{"throughput_rps", fmt.Sprintf("%.0f", float64(timer.Count())/elapsed.Seconds())},
		{"mean_us", fmt.Sprintf("%.0f", timer.Mean()/1000)},
		{"p50_us", fmt.Sprintf("%.0f", timer.Percentile(0.5)/1000)},
		{"p95_us", fmt.Sprintf("%.0f", timer.Percentile(0.95)/1000)},
		{"p99_us", fmt.Sprintf("%.0f", timer.Percentile(0.99)/1000)},
		{"max_us", fmt.Sprintf("%d", timer.Max()/1000)},
	}

	return w.WriteAll(rows)
}
