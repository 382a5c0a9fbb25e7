package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"techsupport-web/internal/config"
	"techsupport-web/internal/server"
)

type ServeFlags struct {
	Port          string
	AllowedOrigin string
	ThemeFile     string
	LocaleFile    string
	SessionTTL    time.Duration
	Metrics       bool
}

func NewServeFlags(c config.Config) *ServeFlags {
	return &ServeFlags{
		Port:          c.Port,
		AllowedOrigin: c.AllowedOrigin,
		ThemeFile:     c.ThemeFile,
		LocaleFile:    c.LocaleFile,
		SessionTTL:    c.SessionTTL,
		Metrics:       c.MetricsOn,
	}
}

func (f *ServeFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.Port, "port", f.Port, "Port to listen on")
	fs.StringVar(&f.AllowedOrigin, "allowed-origin", f.AllowedOrigin, "Origin allowed by CORS")
	fs.StringVar(&f.ThemeFile, "theme-file", f.ThemeFile, "File the theme preference is persisted to")
	fs.StringVar(&f.LocaleFile, "locale-file", f.LocaleFile, "YAML file overriding the built-in texts")
	fs.DurationVar(&f.SessionTTL, "session-idle-ttl", f.SessionTTL, "Evict visitors idle for longer than this (0 disables)")
	fs.BoolVar(&f.Metrics, "metrics", f.Metrics, "Serve prometheus metrics on /metrics")
}

func (f *ServeFlags) Validate() error {
	if f.Port == "" {
		return errors.New("--port must not be empty")
	}
	if f.SessionTTL < 0 {
		return errors.New("--session-idle-ttl must not be negative")
	}
	return nil
}

func (f *ServeFlags) apply(c config.Config) config.Config {
	c.Port = f.Port
	c.AllowedOrigin = f.AllowedOrigin
	c.ThemeFile = f.ThemeFile
	c.LocaleFile = f.LocaleFile
	c.SessionTTL = f.SessionTTL
	c.MetricsOn = f.Metrics
	return c
}

func NewServeCommand() *cobra.Command {
	f := NewServeFlags(cfg)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.Validate(); err != nil {
				return errors.WithMessage(err, "error validating options")
			}
			s, err := server.NewServer(f.apply(cfg))
			if err != nil {
				return errors.WithMessage(err, "couldn't create server")
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go s.RunJanitor(ctx)

			srv := &http.Server{
				Addr:              ":" + f.Port,
				Handler:           s.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.WithError(err).Warn("error shutting down server")
				}
			}()

			log.WithFields(log.Fields{"addr": srv.Addr, "backend": cfg.APIBaseURL}).Info("serving techsupport-web")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	f.BindFlags(cmd.Flags())
	return cmd
}
