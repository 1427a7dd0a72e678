package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dStream/lib/result/codec"
	"github.com/ValentinKolb/dStream/lib/sink"
	"github.com/ValentinKolb/dStream/lib/util"
	"github.com/joho/godotenv"
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

// SetupSinkFlags adds the update sink tuning flags to a command
func SetupSinkFlags(cmd *cobra.Command) {
	key := "sink-queue-length"
	cmd.PersistentFlags().Int(key, sink.DefaultMaxQueueLength, WrapString("Maximum number of batches the update sink may hold before new producers are throttled"))

	key = "sink-policy"
	cmd.PersistentFlags().String(key, "block", WrapString("What a producer experiences when the sink is full (block, reject)"))

	key = "sink-barrier-timeout"
	cmd.PersistentFlags().Int(key, 60, WrapString("Upper bound in seconds for waiting on the refresh barrier"))

	key = "sink-discard-on-shutdown"
	cmd.PersistentFlags().Bool(key, false, WrapString("Drop still queued batches on shutdown instead of applying them"))

	key = "workers"
	cmd.PersistentFlags().Int(key, 4, WrapString("Number of scheduler worker goroutines"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dstream")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetSinkConfig reads the update sink configuration from viper
func GetSinkConfig() (sink.Config, error) {
	var policy util.AdmissionPolicy
	switch viper.GetString("sink-policy") {
	case "block":
		policy = util.AdmitBlock
	case "reject":
		policy = util.AdmitReject
	default:
		return sink.Config{}, fmt.Errorf("invalid sink policy %s", viper.GetString("sink-policy"))
	}

	return sink.Config{
		MaxQueueLength:    viper.GetInt("sink-queue-length"),
		Policy:            policy,
		BarrierTimeout:    time.Duration(viper.GetInt("sink-barrier-timeout")) * time.Second,
		DiscardOnShutdown: viper.GetBool("sink-discard-on-shutdown"),
	}, nil
}

// GetSchedulerWorkers retrieves the configured scheduler pool size
func GetSchedulerWorkers() int {
	return viper.GetInt("workers")
}

// GetCodec creates a record codec based on configuration
func GetCodec() (codec.IRecordCodec, error) {
	switch viper.GetString("codec") {
	case "json":
		return codec.NewJSONCodec(), nil
	case "binary":
		return codec.NewBinaryCodec(), nil
	default:
		return nil, fmt.Errorf("invalid codec %s", viper.GetString("codec"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
