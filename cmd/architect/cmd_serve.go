package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bateristico/agent-architect/internal/jsonrpc"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var catalogPath string
	var tcpAddr string
	var tcpAllowRemote bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a JSON-RPC 2.0 server for game clients and editors",
		Long: `Start a JSON-RPC 2.0 server exposing the scoring engine.

By default, the server communicates over stdin/stdout using newline-delimited JSON.
Set server.address in .architect.yaml or use --tcp to listen on TCP instead.
TCP defaults to loopback (127.0.0.1). Use --tcp-allow-remote to bind
to all interfaces.

Supported methods:
  catalog.get            Get components, combos and levels
  catalog.validate       Validate a catalog, level or placement document
  engine.evaluate        Evaluate one scenario
  level.run              Run a level once
  level.estimate         Estimate a level over many trials
  estimate.start         Start an estimation in the background (returns run ID)
  combos.detect          Detect achieved and near-complete combos
  combos.wouldComplete   Check whether a component completes a combo
  run.status             Get background run status
  run.cancel             Cancel a background run

Background runs push estimate.progress and estimate.finished notifications
to the client that started them. The server stops on interrupt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadProject(catalogPath)
			if err != nil {
				return err
			}

			logger := slog.Default()
			rf := runnerFlags{}
			runner, err := rf.runner(cmd, pc)
			if err != nil {
				return err
			}

			registry := jsonrpc.NewMethodRegistry()
			hctx := jsonrpc.NewHandlerContext(pc.cat, runner)
			jsonrpc.RegisterHandlers(registry, hctx)
			server := jsonrpc.NewServer(registry, logger)

			if tcpAddr == "" && pc.cfg.Server.Address != "" && pc.cfg.Server.Address != "stdio" {
				tcpAddr = pc.cfg.Server.Address
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if tcpAddr != "" {
				tcpAddr = resolveTCPAddr(tcpAddr, tcpAllowRemote, logger)

				listener, err := jsonrpc.NewTCPListener(tcpAddr, server)
				if err != nil {
					return fmt.Errorf("failed to start TCP server: %w", err)
				}
				defer listener.Close() //nolint:errcheck
				fmt.Fprintf(os.Stderr, "JSON-RPC server listening on %s\n", listener.Addr())
				return listener.Serve(ctx)
			}

			fmt.Fprintf(os.Stderr, "JSON-RPC server running on stdio (%d methods)\n", len(registry.Methods()))
			logger.Debug("registered methods", "methods", registry.Methods())
			server.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog YAML file (default: built-in catalog)")
	cmd.Flags().StringVar(&tcpAddr, "tcp", "", "TCP address to listen on (e.g., :9000)")
	cmd.Flags().BoolVar(&tcpAllowRemote, "tcp-allow-remote", false,
		"Allow binding to non-loopback addresses (WARNING: exposes the server to the network with no authentication)")

	return cmd
}

// resolveTCPAddr keeps TCP addresses on loopback unless --tcp-allow-remote is set.
func resolveTCPAddr(addr string, allowRemote bool, logger *slog.Logger) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// a bare port like "9000"
		host = ""
		port = addr
	}

	if allowRemote {
		logger.Warn("TCP server binding to all interfaces with no authentication", "address", addr)
		return addr
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		logger.Info("JSON-RPC server listening on TCP (local only)")
		return net.JoinHostPort("127.0.0.1", port)
	}

	return addr
}
