package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/BTreeMap/SGGuide/internal/config"
	"github.com/BTreeMap/SGGuide/internal/flow"
	"github.com/BTreeMap/SGGuide/internal/genai"
	"github.com/BTreeMap/SGGuide/internal/models"
	"github.com/spf13/cobra"
)

// app carries the configuration shared by every subcommand. Flags override
// values loaded from the environment.
type app struct {
	cfg config.Config

	envFile  string
	logLevel string
	apiKey   string
	baseURL  string
	model    string
	variant  string
	stateDir string
	debug    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "sgguide",
		Short:         "Singapore career and study guide chatbot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", "", "path to a .env file (default ./.env)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides $LOG_LEVEL)")
	pf.StringVar(&a.apiKey, "api-key", "", "completion API key (overrides $OPENROUTER_API_KEY and $OPENAI_API_KEY)")
	pf.StringVar(&a.baseURL, "base-url", "", "OpenAI-compatible API base URL (overrides $SGGUIDE_BASE_URL)")
	pf.StringVar(&a.model, "model", "", "model identifier (overrides $SGGUIDE_MODEL)")
	pf.StringVar(&a.variant, "variant", "", "bot variant (overrides $SGGUIDE_VARIANT)")
	pf.StringVar(&a.stateDir, "state-dir", "", "state directory for the instance lock file and debug logs (overrides $SGGUIDE_STATE_DIR)")
	pf.BoolVar(&a.debug, "debug", false, "write every completion request and response to the state directory (overrides $SGGUIDE_DEBUG)")

	root.AddCommand(newServeCmd(a), newChatCmd(a))
	return root
}

// load reads the environment, applies flag overrides and installs the logger.
func (a *app) load(cmd *cobra.Command) error {
	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	override(changed("log-level"), &cfg.LogLevel, a.logLevel)
	override(changed("api-key"), &cfg.APIKey, a.apiKey)
	override(changed("base-url"), &cfg.BaseURL, a.baseURL)
	override(changed("model"), &cfg.Model, a.model)
	override(changed("variant"), &cfg.Variant, a.variant)
	override(changed("state-dir"), &cfg.StateDir, a.stateDir)
	override(changed("debug"), &cfg.Debug, a.debug)

	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	initializeLogger(cmd.ErrOrStderr(), level)

	a.cfg = cfg
	return nil
}

func override[T any](changed bool, dst *T, v T) {
	if changed {
		*dst = v
	}
}

func initializeLogger(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// chatDriver builds the completion client and driver for the configured
// variant. A missing API key is fatal.
func (a *app) chatDriver() (*flow.Variant, *flow.ChatDriver, error) {
	v, err := flow.LookupVariant(a.cfg.Variant)
	if err != nil {
		return nil, nil, err
	}
	client, err := genai.NewClient(
		genai.WithAPIKey(a.cfg.APIKey),
		genai.WithBaseURL(a.cfg.BaseURL),
		genai.WithModel(a.cfg.Model),
		genai.WithAttribution("https://github.com/BTreeMap/SGGuide", "SGGuide"),
		genai.WithDebugMode(a.cfg.Debug),
		genai.WithStateDir(a.cfg.StateDir),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("completion client: %w", err)
	}

	params := models.DefaultCompletionParams()
	params.Model = a.cfg.Model
	driver := flow.NewChatDriver(client, flow.WithCompletionParams(params), flow.WithFollowUpPolicy(v.FollowUps))
	return v, driver, nil
}
