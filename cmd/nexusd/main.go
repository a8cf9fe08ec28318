package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nexuscore/nexus/hook"
	"github.com/nexuscore/nexus/logging"
	"github.com/nexuscore/nexus/nexus"
	"github.com/nexuscore/nexus/sslot"
	"github.com/nexuscore/nexus/xcmd"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string
	// DemoEndpointID is the RPC-ID the demo hook is registered under; the
	// demo request handler itself is registered under request type 0.
	DemoEndpointID uint8
}

var rootCmd = &cobra.Command{
	Use:   "nexusd",
	Short: "Nexus RPC session-management runtime",
	Run: func(rawCmd *cobra.Command, _ []string) {
		if err := run(cmd); err != nil {
			if errors.Is(err, xcmd.Interrupted{}) {
				return
			}
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.ConfigPath, "config", "c", "", "Path to the configuration file (required)")
	rootCmd.MarkFlagRequired("config")
	rootCmd.Flags().Uint8Var(&cmd.DemoEndpointID, "demo-endpoint", 1, "RPC-ID to register the demo hook under")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	cfg, err := nexus.LoadConfig(cmd.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, _, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	n, err := nexus.New(cfg, nexus.WithLog(log))
	if err != nil {
		return fmt.Errorf("failed to initialize nexus: %w", err)
	}
	defer n.Close()

	const demoReqType uint8 = 0
	if err := n.RegisterReqFunc(demoReqType, demoHandler(log)); err != nil {
		return fmt.Errorf("failed to register demo handler: %w", err)
	}

	h := hook.NewHook(cmd.DemoEndpointID, cfg.SMQueueCapacity)
	if err := n.RegisterHook(h); err != nil {
		return fmt.Errorf("failed to register demo hook: %w", err)
	}

	log.Infow("nexusd running",
		"hostname", cfg.Hostname,
		"mgmt_udp_port", cfg.MgmtUDPPort,
		"num_bg_threads", cfg.NumBgThreads,
		"demo_endpoint", cmd.DemoEndpointID,
	)

	ctx := context.Background()
	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})
	wg.Go(func() error {
		err := xcmd.WaitInterrupted(ctx)
		log.Infof("caught signal: %v", err)
		return err
	})

	return wg.Wait()
}

func demoHandler(log *zap.SugaredLogger) nexus.ReqFunc {
	return func(ctx any, slot *sslot.SessionSlot) {
		log.Infow("dispatching demo request", "ctx", ctx)
		slot.Respond(fmt.Sprintf("echo: %v", ctx), nil)
	}
}
