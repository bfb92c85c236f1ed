package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	host      string
	apiKey    string
	model     string
	vendor    string
	noStream  bool
	noSpinner bool
	noBoard   bool
	verbose   bool

	batchDebounceMS   int
	taskStaleTimeoutS int
	Version   = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "loom",
	Version: Version,
	Short:   "Loom - AI-powered CLI assistant",
	Long: `Loom is an interactive AI-powered assistant for software development
tasks. It connects to an OpenAI-compatible LLM server, streams responses,
and runs the model's tool calls against your working directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Start interactive REPL mode
		startREPL()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.loom/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "LLM server URL (e.g., http://localhost:11434)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "key", "", "API key (optional for local servers)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model name (optional, auto-detected from server)")
	rootCmd.PersistentFlags().StringVar(&vendor, "vendor", "", "LLM vendor (auto, vllm, ollama, llama.cpp)")
	rootCmd.PersistentFlags().BoolVar(&noStream, "no-stream", false, "disable streaming output (show response all at once)")
	rootCmd.PersistentFlags().BoolVar(&noSpinner, "no-spinner", false, "disable spinner animations")
	rootCmd.PersistentFlags().BoolVar(&noBoard, "no-board", false, "disable the live background task board")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&batchDebounceMS, "batch-debounce-ms", 50, "how long to wait for more tool calls before running a batch")
	rootCmd.PersistentFlags().IntVar(&taskStaleTimeoutS, "task-stale-timeout-s", 60, "seconds without progress before a background task is marked timed out")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("key", rootCmd.PersistentFlags().Lookup("key"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("vendor", rootCmd.PersistentFlags().Lookup("vendor"))
	viper.BindPFlag("no_stream", rootCmd.PersistentFlags().Lookup("no-stream"))
	viper.BindPFlag("no_spinner", rootCmd.PersistentFlags().Lookup("no-spinner"))
	viper.BindPFlag("no_board", rootCmd.PersistentFlags().Lookup("no-board"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("batch_debounce_ms", rootCmd.PersistentFlags().Lookup("batch-debounce-ms"))
	viper.BindPFlag("task_stale_timeout_s", rootCmd.PersistentFlags().Lookup("task-stale-timeout-s"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := home + "/.loom"
		os.MkdirAll(configDir, 0755)

		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetDefault("log_level", "info")
	viper.SetDefault("batch_debounce_ms", 50)
	viper.SetDefault("task_stale_timeout_s", 60)

	viper.SetEnvPrefix("LOOM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initLogging routes structured logs to ~/.loom/loom.log. The REPL owns
// the terminal, so logs never go to stdout or stderr.
func initLogging() {
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	if viper.GetBool("verbose") {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	home, err := os.UserHomeDir()
	if err != nil {
		logrus.SetOutput(io.Discard)
		return
	}
	logFile, err := os.OpenFile(home+"/.loom/loom.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logrus.SetOutput(io.Discard)
		return
	}
	logrus.SetOutput(logFile)
}
