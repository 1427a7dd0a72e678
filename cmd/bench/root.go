package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dStream/cmd/util"
	"github.com/ValentinKolb/dStream/lib/index"
	"github.com/ValentinKolb/dStream/lib/index/engines/memidx"
	"github.com/ValentinKolb/dStream/lib/result"
	"github.com/ValentinKolb/dStream/lib/result/codec"
	"github.com/ValentinKolb/dStream/lib/sched"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// BenchCmd measures the throughput of the library on the local machine
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Benchmark delivery sessions and the update sink",
		Long:    "",
		RunE:    run,
		PreRunE: processBenchConfig,
	}
	benchRecords   = 10000
	benchFields    = 8
	benchDemand    = int64(64)
	benchBatches   = 1000
	benchBatchSize = 10
	benchSkip      = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	BenchCmd.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. stream,sink)"))
	key = "records"
	BenchCmd.PersistentFlags().Int(key, 10000, util.WrapString("Number of records the benchmark producer yields"))
	key = "fields"
	BenchCmd.PersistentFlags().Int(key, 8, util.WrapString("Number of fields per record"))
	key = "demand"
	BenchCmd.PersistentFlags().Int(key, 64, util.WrapString("Demand chunk requested per Request call"))
	key = "batches"
	BenchCmd.PersistentFlags().Int(key, 1000, util.WrapString("Number of update batches for the sink benchmark"))
	key = "batch-size"
	BenchCmd.PersistentFlags().Int(key, 10, util.WrapString("Mutations per update batch"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))

	util.SetupSinkFlags(BenchCmd)
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	benchRecords = viper.GetInt("records")
	benchFields = viper.GetInt("fields")
	benchDemand = int64(viper.GetInt("demand"))
	benchBatches = viper.GetInt("batches")
	benchBatchSize = viper.GetInt("batch-size")
	benchSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Benchmark tool for dStream")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Records: %d (x%d fields)\n", benchRecords, benchFields)
	fmt.Printf("Demand chunk: %d\n", benchDemand)
	fmt.Printf("Batches: %d (x%d mutations)\n", benchBatches, benchBatchSize)
	fmt.Println()

	recordCodec, err := util.GetCodec()
	if err != nil {
		return err
	}
	sinkConf, err := util.GetSinkConfig()
	if err != nil {
		return err
	}

	fmt.Println("starting benchmarks...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	rows := makeRows(benchRecords, benchFields)
	fieldNames := makeFieldNames(benchFields)

	streamResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("stream") {
			return
		}

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			sub := &countingSubscriber{}
			session := result.NewSession(result.NewStaticProducer(fieldNames, rows), sub)
			for sub.completed == 0 {
				if err := session.Request(benchDemand); err != nil {
					log.Printf("(stream) - error requesting records: %v\n", err)
					return
				}
			}
			session.Close()
		}
	})

	results["stream"] = streamResult
	printResult("stream", streamResult)

	// Unbounded demand skips the record buffer entirely
	directResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("stream-direct") {
			return
		}

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			sub := &countingSubscriber{}
			session := result.NewSession(result.NewStaticProducer(fieldNames, rows), sub)
			if err := session.Request(result.DemandAll); err != nil {
				log.Printf("(stream-direct) - error requesting records: %v\n", err)
				return
			}
			session.Close()
		}
	})

	results["stream-direct"] = directResult
	printResult("stream-direct", directResult)

	encodeResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("encode") {
			return
		}

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			sub := codec.NewWriterSubscriber(io.Discard, recordCodec)
			session := result.NewSession(result.NewStaticProducer(fieldNames, rows), sub)
			if err := session.Request(result.DemandAll); err != nil {
				log.Printf("(encode) - error requesting records: %v\n", err)
				return
			}
			if err := sub.Err(); err != nil {
				log.Printf("(encode) - error encoding records: %v\n", err)
			}
			session.Close()
		}
	})

	results["encode"] = encodeResult
	printResult("encode", encodeResult)

	// Per-barrier latency distribution for the sink benchmark
	refreshTimer := metrics.NewTimer()
	defer refreshTimer.Stop()

	sinkResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("sink") {
			return
		}

		scheduler := sched.NewPoolScheduler(util.GetSchedulerWorkers())
		provider := index.NewProvider(scheduler, index.Config{Sink: sinkConf})
		idx := memidx.NewMemIndex()
		if err := provider.Register("bench", idx, true); err != nil {
			log.Printf("(sink) - error registering index: %v\n", err)
			return
		}

		b.Cleanup(func() {
			provider.Shutdown()
			scheduler.Shutdown()
		})

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			for j := 0; j < benchBatches; j++ {
				batch := index.NewBatch(idx)
				for k := 0; k < benchBatchSize; k++ {
					batch.Insert(fmt.Sprintf("doc-%d-%d", j, k), fmt.Sprintf("term-%d", k))
				}
				if err := provider.EnqueueUpdates("bench", batch); err != nil {
					log.Printf("(sink) - error enqueueing batch: %v\n", err)
					return
				}
			}
			start := time.Now()
			if err := provider.RefreshAndAwait("bench", 0); err != nil {
				log.Printf("(sink) - error awaiting refresh: %v\n", err)
				return
			}
			refreshTimer.UpdateSince(start)
		}
	})

	results["sink"] = sinkResult
	printResult("sink", sinkResult)

	if refreshTimer.Count() > 0 {
		snap := refreshTimer.Snapshot()
		fmt.Printf("%-20sbarrier mean %s, p95 %s, p99 %s\n", "",
			time.Duration(int64(snap.Mean())),
			time.Duration(int64(snap.Percentile(0.95))),
			time.Duration(int64(snap.Percentile(0.99))))
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range benchSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// makeRows builds the benchmark record set
func makeRows(records, fields int) [][]any {
	rows := make([][]any, records)
	for i := range rows {
		row := make([]any, fields)
		for j := range row {
			row[j] = fmt.Sprintf("value-%d-%d", i, j)
		}
		rows[i] = row
	}
	return rows
}

func makeFieldNames(fields int) []string {
	names := make([]string, fields)
	for i := range names {
		names[i] = fmt.Sprintf("f%d", i)
	}
	return names
}

// countingSubscriber discards records, it only tracks lifecycle events
type countingSubscriber struct {
	records   int
	completed int
	err       error
}

func (s *countingSubscriber) OnResult(fieldCount int) error { return nil }
func (s *countingSubscriber) OnRecord() error               { return nil }
func (s *countingSubscriber) OnField(index int, value any) error {
	return nil
}
func (s *countingSubscriber) OnRecordCompleted() error {
	s.records++
	return nil
}
func (s *countingSubscriber) OnError(err error) { s.err = err }
func (s *countingSubscriber) OnResultCompleted() {
	s.completed++
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Records", "Fields", "Demand", "Batches", "BatchSize", "Codec",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strconv.Itoa(benchRecords),
			strconv.Itoa(benchFields),
			strconv.FormatInt(benchDemand, 10),
			strconv.Itoa(benchBatches),
			strconv.Itoa(benchBatchSize),
			viper.GetString("codec"),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
