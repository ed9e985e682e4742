package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/theanmol-raj/qnagen/internal/prompt"
	"github.com/theanmol-raj/qnagen/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload and download web front end",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		tmpl, err := prompt.Load(cfg.TemplateFile)
		if err != nil {
			return err
		}
		defaults, err := cfg.ProviderConfig()
		if err != nil {
			return err
		}

		h := openHistory()
		defer h.close()

		// Any request may pick the gateway, so its client is always built.
		dispatcher := newDispatcher(ctx, h.events, true)

		srv := server.New(server.Deps{
			Generator:          dispatcher,
			Runs:               h.runs,
			Logger:             slog.Default(),
			Defaults:           defaults,
			Template:           tmpl,
			StrictPlaceholders: cfg.StrictPlaceholders,
			MaxUploadBytes:     int64(cfg.Server.MaxUploadMB) << 20,
		})

		slog.Info("listening", "addr", cfg.Server.Addr, "provider", defaults.Kind, "model", defaults.Model)
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
}
