package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/SGGuide/internal/api"
	"github.com/BTreeMap/SGGuide/internal/config"
	"github.com/BTreeMap/SGGuide/internal/flow"
	"github.com/BTreeMap/SGGuide/internal/lockfile"
	"github.com/BTreeMap/SGGuide/internal/messaging"
	"github.com/BTreeMap/SGGuide/internal/scheduler"
	"github.com/BTreeMap/SGGuide/internal/store"
	"github.com/BTreeMap/SGGuide/internal/twiliowhatsapp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// webhookPath is where Twilio posts inbound WhatsApp messages.
const webhookPath = "/twilio/webhook"

type serveFlags struct {
	addr          string
	dsn           string
	sessionTTL    time.Duration
	secureCookies bool
	publicURL     string
}

func newServeCmd(a *app) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web chat, the session API and the optional WhatsApp webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := cmd.Flags().Changed
			override(changed("addr"), &a.cfg.Addr, f.addr)
			override(changed("db-dsn"), &a.cfg.DatabaseURL, f.dsn)
			override(changed("session-ttl"), &a.cfg.SessionTTL, f.sessionTTL)
			override(changed("secure-cookies"), &a.cfg.SecureCookies, f.secureCookies)
			override(changed("public-url"), &a.cfg.PublicURL, f.publicURL)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.addr, "addr", "", "listen address (overrides $API_ADDR)")
	fs.StringVar(&f.dsn, "db-dsn", "", "session database: PostgreSQL DSN or SQLite path; in memory when empty (overrides $DATABASE_URL)")
	fs.DurationVar(&f.sessionTTL, "session-ttl", config.DefaultSessionTTL, "delete sessions idle for longer than this (overrides $SGGUIDE_SESSION_TTL)")
	fs.BoolVar(&f.secureCookies, "secure-cookies", false, "mark the session cookie Secure (overrides $SGGUIDE_SECURE_COOKIES)")
	fs.StringVar(&f.publicURL, "public-url", "", "external base URL used to verify Twilio signatures (overrides $SGGUIDE_PUBLIC_URL)")
	return cmd
}

// serve runs the HTTP server, the idle-session janitor and, when Twilio is
// configured, the WhatsApp responder until ctx is cancelled or one of them
// fails.
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	v, driver, err := a.chatDriver()
	if err != nil {
		return err
	}

	if cfg.Debug || (cfg.DatabaseURL != "" && store.DetectDSNType(cfg.DatabaseURL) == "sqlite3") {
		lock, err := lockfile.AcquireLock(cfg.StateDir)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close session store", "error", err)
		}
	}()

	sessions := flow.NewSessionManager(st, v)
	g, gctx := errgroup.WithContext(ctx)

	apiOpts := []api.Option{
		api.WithAddr(cfg.Addr),
		api.WithSecureCookies(cfg.SecureCookies),
	}
	if cfg.Twilio.Enabled() {
		svc, err := newTwilioService(cfg)
		if err != nil {
			return err
		}
		defer svc.Stop()
		if err := svc.Start(gctx); err != nil {
			return fmt.Errorf("twilio service: %w", err)
		}
		conv := messaging.NewConversation(sessions, driver)
		rh := messaging.NewResponseHandler(svc, conv.Respond)
		g.Go(func() error { return rh.Run(gctx) })
		apiOpts = append(apiOpts, api.WithTwilioWebhook(http.HandlerFunc(svc.WebhookHandler)))
		slog.Info("WhatsApp channel enabled", "webhook", webhookPath)
	}

	srv, err := api.NewServer(sessions, driver, apiOpts...)
	if err != nil {
		return err
	}
	janitor := scheduler.NewJanitor(sessions, cfg.SessionTTL, scheduler.WithSchedule(cfg.PurgeSchedule))

	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return janitor.Run(gctx) })

	slog.Info("SGGuide started", "variant", v.Name, "addr", cfg.Addr, "dsn_type", dsnType(cfg.DatabaseURL), "session_ttl", cfg.SessionTTL)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("SGGuide stopped with error", "error", err)
		return err
	}
	slog.Info("SGGuide exited successfully")
	return nil
}

func newTwilioService(cfg config.Config) (*messaging.TwilioService, error) {
	client, err := twiliowhatsapp.NewClient(
		twiliowhatsapp.WithAccountSID(cfg.Twilio.AccountSID),
		twiliowhatsapp.WithAuthToken(cfg.Twilio.AuthToken),
		twiliowhatsapp.WithFromWhats(cfg.Twilio.FromNumber),
	)
	if err != nil {
		return nil, fmt.Errorf("twilio client: %w", err)
	}
	var opts []messaging.TwilioOption
	if cfg.PublicURL != "" {
		webhookURL := strings.TrimSuffix(cfg.PublicURL, "/") + webhookPath
		opts = append(opts, messaging.WithSignatureVerifier(twiliowhatsapp.NewSignatureVerifier(cfg.Twilio.AuthToken, webhookURL)))
	} else {
		slog.Warn("SGGUIDE_PUBLIC_URL not set, Twilio webhook signatures are not verified")
	}
	return messaging.NewTwilioService(client, opts...), nil
}

func dsnType(dsn string) string {
	if dsn == "" {
		return "memory"
	}
	return store.DetectDSNType(dsn)
}
