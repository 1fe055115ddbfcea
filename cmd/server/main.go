package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/feedback-mcp-gateway/auth"
	"github.com/jrsteele09/feedback-mcp-gateway/authcodes"
	"github.com/jrsteele09/feedback-mcp-gateway/clients"
	"github.com/jrsteele09/feedback-mcp-gateway/feedback"
	"github.com/jrsteele09/feedback-mcp-gateway/internal/config"
	"github.com/jrsteele09/feedback-mcp-gateway/internal/logging"
	"github.com/jrsteele09/feedback-mcp-gateway/server"
	"github.com/jrsteele09/feedback-mcp-gateway/session"
	"github.com/jrsteele09/feedback-mcp-gateway/token"
	"github.com/jrsteele09/feedback-mcp-gateway/tools"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type flags struct {
	transport string
	port      string
	baseURL   string
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "feedback-mcp-gateway",
		Short:         "MCP gateway for the feedback service",
		Long:          "Serves feedback tools over MCP, either on stdio or over streamable HTTP behind OAuth 2.1.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f.options()...)
		},
	}

	root.Flags().StringVar(&f.transport, "transport", "", "MCP transport: http or stdio (env MCP_TRANSPORT)")
	root.Flags().StringVar(&f.port, "port", "", "HTTP listen port (env PORT)")
	root.Flags().StringVar(&f.baseURL, "base-url", "", "public base URL used as OAuth issuer (env BASE_URL)")
	root.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return root
}

func (f flags) options() []config.Option {
	var opts []config.Option
	if f.transport != "" {
		opts = append(opts, config.WithTransport(config.TransportType(f.transport)))
	}
	if f.port != "" {
		opts = append(opts, config.WithPort(f.port))
	}
	if f.baseURL != "" {
		opts = append(opts, config.WithBaseURL(f.baseURL))
	}
	if f.logLevel != "" {
		opts = append(opts, config.WithLogLevel(f.logLevel))
	}
	return opts
}

func run(parent context.Context, options ...config.Option) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New(options...)
	logging.Setup(c.GetLogLevel(), c.GetEnv())
	displayAppname(c.GetAppName())

	api, err := feedback.New(c)
	if err != nil {
		return err
	}
	newMCPServer := func() *mcpserver.MCPServer {
		return tools.NewMCPServer(c.GetAppName(), version, api)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch c.GetTransport() {
	case config.TransportStdio:
		log.Info().Msg("serving MCP on stdio")
		return errors.Wrap(mcpserver.ServeStdio(newMCPServer()), "[run] stdio")
	default:
		return serveHTTP(ctx, c, newMCPServer)
	}
}

func serveHTTP(ctx context.Context, c config.Config, newMCPServer session.ServerFactory) error {
	tokens := token.New(token.NewInMemoryRepo(),
		token.WithTokenExpiry(c.GetDefaultAccessTokenExpiry()),
		token.WithRefreshTokenExpiry(c.GetDefaultRefreshTokenExpiry()),
		token.WithTokenLength(c.GetTokenLength()),
	)
	authService, err := auth.NewAuthorizationService(c.GetBaseURL(),
		auth.Repos{
			Clients: clients.NewInMemoryRepo(),
			Codes:   authcodes.NewInMemoryRepo(),
		},
		tokens,
		auth.WithAuthCodeTimeout(c.GetAuthCodeTimeout()),
		auth.WithTokenLength(c.GetTokenLength()),
	)
	if err != nil {
		return errors.Wrap(err, "[serveHTTP] authorization service")
	}

	stateless := c.GetSessionMode() == config.SessionModeStateless
	registryOpts := []session.Option{
		session.WithIdleTimeout(c.GetSessionIdleTimeout()),
		session.WithMaxSessions(c.GetMaxSessions()),
		session.WithSweepInterval(c.GetMaintenanceInterval()),
	}
	if stateless {
		registryOpts = append(registryOpts, session.WithStateless())
	}
	registry := session.NewRegistry(
		session.NewMCPTransportFactory(newMCPServer, c.GetMCPPath(), stateless),
		registryOpts...,
	)

	srv, err := server.New(c, authService, registry)
	if err != nil {
		return errors.Wrap(err, "[serveHTTP] server")
	}

	if !c.GetAuthEnabled() {
		log.Warn().Msg("AUTH_ENABLED=false: the MCP endpoint accepts unauthenticated requests")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	g.Go(func() error { return srv.RunMaintenance(gctx) })
	g.Go(func() error { return registry.Run(gctx) })
	return g.Wait()
}

// displayAppname prints the banner to stderr so stdout stays free for stdio frames.
func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(os.Stderr, myFigure.String())
}
