package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/tagex/internal/config"
	"github.com/ppiankov/tagex/internal/logging"
)

// version is set at build time with -ldflags "-X ...cli.version=..."
var version = "dev"

var (
	cfgFile string
	verbose bool

	cfg    config.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tagex",
	Short: "tagex - rule-driven field extraction from free text",
	Long: `tagex segments unstructured text into typed tokens, tags them with
declarative pattern rules and resolves a field schema into JSON records.

Every extracted value carries provenance: the index of the token it was
read from and the field path it was assigned to.

A rule set file (YAML, TOML or JSON) holds the recognizers, the rules and
the field schema.`,
	SilenceErrors:      true,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tagex %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.tagex/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := config.Dir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// TAGEX_LOG_LEVEL overrides log.level
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setup loads the configuration and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if verbose {
		loaded.Log.Level = "debug"
	}
	cfg = loaded

	l, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	logger = l.Named("tagex")
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	return logging.Sync(logger)
}

// sanitizeFilename turns a document reference into a file name
func sanitizeFilename(s string) string {
	s = strings.TrimSuffix(s, "/")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	} else {
		s = filepath.Base(s)
	}

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" || s == "." || s == "-" {
		s = "stdin"
	}
	return s
}
