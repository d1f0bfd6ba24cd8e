package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/parleybot/parley/directory"
	"github.com/parleybot/parley/history"
	"github.com/parleybot/parley/internal/logutil"
	"github.com/parleybot/parley/internal/report"
	"github.com/parleybot/parley/persona"
	"github.com/parleybot/parley/providers/openai"
	"github.com/parleybot/parley/relay"
	"github.com/parleybot/parley/speech"
	"github.com/parleybot/parley/store"
	"github.com/parleybot/parley/telegram"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			dir := directory.New(nil)
			users, err := dir.Reload(ctx, st)
			if err != nil {
				return fmt.Errorf("load user directory: %w", err)
			}
			if len(users) == 0 {
				logger.Warn("directory_empty", "hint", "add users with: parley users add")
			}

			completer, err := completerFromViper()
			if err != nil {
				return err
			}
			synth := synthesizerFromViper(logger)

			token := strings.TrimSpace(viper.GetString("telegram.token"))
			if token == "" {
				return fmt.Errorf("missing telegram.token (set via PARLEY_TELEGRAM_TOKEN)")
			}
			api, err := telegram.NewClient(nil, viper.GetString("telegram.base_url"), token)
			if err != nil {
				return err
			}
			transport := &telegram.Transport{API: api}

			reporter := report.NewLogger(logger)
			log := history.NewLogWithWindow(st, viper.GetInt("history.window"))
			router := &relay.Router{
				Directory: dir,
				Exchange: &relay.Exchange{
					Log:               log,
					Persona:           personaFromViper(),
					Completer:         completer,
					Dispatcher:        relay.NewDispatcher(synth, reporter),
					Registrar:         st,
					Directory:         dir,
					Source:            st,
					Reporter:          reporter,
					Logger:            logger,
					HeartbeatInterval: viper.GetDuration("heartbeat.interval"),
				},
				Commands: &relay.CommandProcessor{
					Directory: dir,
					Source:    st,
					Log:       log,
					Store:     st,
					Reporter:  reporter,
					Logger:    logger,
				},
				Transport: transport,
				Reporter:  reporter,
				Logger:    logger,
			}

			poller := &telegram.Poller{
				API:           api,
				Router:        router,
				Reporter:      reporter,
				Logger:        logger,
				PollTimeout:   viper.GetDuration("telegram.poll_timeout"),
				MaxVoiceBytes: viper.GetInt64("telegram.max_voice_bytes"),
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return poller.Run(gctx) })
			if viper.GetBool("console.enabled") {
				// Detached: a blocked stdin read must not hold up
				// shutdown. Console exit stops the poller via the
				// signal context.
				go func() {
					runConsole(gctx, os.Stdin, cmd.OutOrStdout(), dir, st, logger)
					stop()
				}()
			}
			return g.Wait()
		},
	}
	return cmd
}

func openStore() (*store.Store, error) {
	dsn, err := store.ResolveDSN(viper.GetString("db.dsn"))
	if err != nil {
		return nil, err
	}
	cfg := store.DefaultConfig()
	cfg.DSN = dsn
	return store.Open(cfg)
}

func completerFromViper() (*openai.Client, error) {
	c, err := openai.New(
		viper.GetString("llm.endpoint"),
		viper.GetString("llm.api_key"),
		viper.GetString("llm.model"),
	)
	if err != nil {
		return nil, err
	}
	if timeout := viper.GetDuration("llm.request_timeout"); timeout > 0 {
		c.HTTP = &http.Client{Timeout: timeout}
	}
	return c, nil
}

// synthesizerFromViper builds the speech client, falling back to the
// completion credentials. Without any key the relay runs text-only.
func synthesizerFromViper(logger *slog.Logger) speech.Synthesizer {
	key := strings.TrimSpace(viper.GetString("speech.api_key"))
	if key == "" {
		key = strings.TrimSpace(viper.GetString("llm.api_key"))
	}
	endpoint := strings.TrimSpace(viper.GetString("speech.endpoint"))
	if endpoint == "" {
		endpoint = viper.GetString("llm.endpoint")
	}
	synth, err := speech.NewClient(endpoint, key)
	if err != nil {
		logger.Warn("speech_disabled", "error", err.Error())
		return nil
	}
	return synth
}

func personaFromViper() persona.Persona {
	p := persona.Persona{
		Name:  viper.GetString("persona.name"),
		Style: persona.Style(viper.GetString("persona.style")),
	}
	path := strings.TrimSpace(viper.GetString("persona.presets_file"))
	if path == "" {
		return p
	}
	presets, err := persona.LoadPresets(path)
	if err != nil {
		slog.Warn("persona_presets_unreadable", "path", path, "error", err.Error())
		return p
	}
	return persona.Preset(presets, p.Name)
}
