package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mediatally/mediatally/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Serve the schema description, its DDL and drift checks of the configured services over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (default from config, 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (default from config, 127.0.0.1)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(cmd *cobra.Command) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	srvCfg := server.Config{
		Host:            a.cfg.Server.Host,
		Port:            a.cfg.Server.Port,
		ShutdownTimeout: a.cfg.ShutdownTimeout(),
		CORSOrigins:     a.cfg.Server.CORS.Origins,
		RateLimit:       a.cfg.Server.RateLimit.Requests,
		RateLimitWindow: a.cfg.RateLimitWindow(),
	}
	if h := viper.GetString("server.host"); h != "" {
		srvCfg.Host = h
	}
	if p := viper.GetInt("server.port"); p != 0 {
		srvCfg.Port = p
	}

	srv := server.New(srvCfg, a.svc, a.registry, a.logger)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "→ mediatally %s\n", versionString())
	fmt.Fprintf(w, "→ Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Fprintf(w, "→ Schema:     http://%s:%d/api/v1/schema\n", srvCfg.Host, srvCfg.Port)
	fmt.Fprintf(w, "→ Health:     http://%s:%d/healthz\n", srvCfg.Host, srvCfg.Port)
	fmt.Fprintf(w, "→ Services:   %d configured\n", len(a.svc.Services()))
	fmt.Fprintln(w)

	return srv.ListenAndServe()
}
