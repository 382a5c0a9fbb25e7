package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"techsupport-web/internal/config"
)

// cfg starts from the environment; flags on each command override it
var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:   "techsupport-web",
	Short: "Web front end for the technical support assistant",
	Long: `techsupport-web serves the caller-facing support chat, the theme
preference and the knowledge-base admin screen, relaying every turn and
every knowledge-base change to the remote support service.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			log.WithError(err).Fatal("cannot parse log-level")
		}
		log.SetLevel(level)
		log.Debug("debug logging enabled")
	},
}

func main() {
	formatter := new(log.TextFormatter)
	formatter.TimestampFormat = "2006-01-02T15:04:05.999Z07:00"
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)

	rootCmd.AddCommand(
		NewServeCommand(),
		NewHealthCommand(),
	)

	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"Log level (trace,debug,info,warn,error)")
	rootCmd.PersistentFlags().StringVar(&cfg.APIBaseURL, "api-base-url", cfg.APIBaseURL,
		"Base URL of the remote support service")

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("could not execute root command")
	}
}
