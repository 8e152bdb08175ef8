package serve

import (
	"fmt"
	"os"

	"github.com/salim-benhamadi/FLOW/internal/conf"
	"github.com/salim-benhamadi/FLOW/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Command creates the serve command, which runs the API and metrics servers.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the FLOW service",
		Long:  "Open the database, apply pending migrations and serve the API and metrics endpoints until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Run(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the API server")
	cmd.Flags().BoolVar(&settings.Metrics.Enabled, "metrics", viper.GetBool("metrics.enabled"), "Expose a Prometheus metrics endpoint")
	cmd.Flags().StringVar(&settings.Metrics.Listen, "listen", viper.GetString("metrics.listen"), "Listen address and port of the metrics endpoint")
	cmd.Flags().BoolVar(&settings.Sentry.Enabled, "telemetry", viper.GetBool("sentry.enabled"), "Enable error telemetry reporting")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
