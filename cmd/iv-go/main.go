package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chriscow/interview-agents-go/internal/config"
	"github.com/chriscow/interview-agents-go/pkg/plugin"
	_ "github.com/chriscow/interview-agents-go/pkg/plugin/fake"   // Import to register fake plugins
	_ "github.com/chriscow/interview-agents-go/pkg/plugin/openai" // Import to register OpenAI plugins
	"github.com/chriscow/interview-agents-go/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "iv-go",
	Short: "Tio Tor - a spoken mock-interview coach",
	Long: `iv-go runs spoken mock interviews in Brazilian Portuguese. It asks generated
questions per topic, records and transcribes the answers, scores them and
closes with a summary.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

var pluginCmd = &cobra.Command{
	Use:   "plugins [kind]",
	Short: "List registered plugins",
	Long: `List all registered plugins or plugins of a specific kind.
Available kinds: stt, tts, llm, vad`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := ""
		if len(args) > 0 {
			kind = args[0]
		}

		plugins := plugin.List(kind)
		if len(plugins) == 0 {
			if kind == "" {
				fmt.Println("No plugins registered")
			} else {
				fmt.Printf("No plugins registered for kind: %s\n", kind)
			}
			return nil
		}

		fmt.Printf("%-6s %-10s %-8s %s\n", "KIND", "NAME", "VERSION", "DESCRIPTION")
		fmt.Println("------------------------------------------------------------")
		for _, p := range plugins {
			v := p.Version
			if v == "" {
				v = "N/A"
			}
			fmt.Printf("%-6s %-10s %-8s %s\n", p.Kind, p.Name, v, p.Description)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "iv-go.yaml"
		if len(args) > 0 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

// setupLogger configures the default logger from IV_LOG_FORMAT and
// IV_LOG_LEVEL. Logs go to stderr so stdout stays readable.
func setupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{}
	switch os.Getenv("IV_LOG_LEVEL") {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	var handler slog.Handler
	if os.Getenv("IV_LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads the .env file and then the configuration named by the
// persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if envFile, _ := cmd.Flags().GetString("env"); envFile != "" {
		if err := config.LoadEnv(envFile); err != nil {
			return nil, err
		}
	}
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to an iv-go.yaml configuration file")
	rootCmd.PersistentFlags().String("env", ".env", "Path to a .env file")

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	addSessionFlags(runCmd)
	runCmd.Flags().Bool("headless", false, "Use the headless player and a WAV file as the microphone")
	runCmd.Flags().String("input", "", "WAV file replayed as the microphone (implies --headless)")
	runCmd.Flags().String("save-answers", "", "Directory where recorded answers are saved as WAV")

	addSessionFlags(simulateCmd)
	simulateCmd.Flags().Float64("playback-scale", 0, "Headless playback time multiplier (0 = instant)")
	simulateCmd.Flags().Int("score", 85, "Score given to every answer")

	serveCmd.Flags().String("addr", "", "Listen address (default from config)")

	rootCmd.AddCommand(versionCmd, pluginCmd, configCmd, runCmd, simulateCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
