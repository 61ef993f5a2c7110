package main

import (
	"fmt"
	"net"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/clients/predator"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/logger"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	protocol          string
	url               string
	callerID          string
	authToken         string
	timeoutMS         int64
	verbose           bool
	legacyResultFetch bool
	logLevel          string
}

type app struct {
	flags  globalFlags
	client predator.Client
}

func newRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "predatorctl",
		Short:         "predatorctl talks to an inference server over gRPC or REST.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.connect()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.client == nil {
				return nil
			}
			return a.client.Close()
		},
	}
	f := rootCmd.PersistentFlags()
	f.StringVar(&a.flags.protocol, "protocol", predator.ProtocolGRPC, "transport, grpc or http")
	f.StringVarP(&a.flags.url, "url", "u", "localhost:8001", "server address as host:port")
	f.StringVar(&a.flags.callerID, "caller-id", "", "value of the caller id header")
	f.StringVar(&a.flags.authToken, "auth-token", "", "value of the auth token header")
	f.Int64Var(&a.flags.timeoutMS, "timeout-ms", predator.DefaultDeadlineMS, "per call deadline in milliseconds")
	f.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log requests and responses")
	f.BoolVar(&a.flags.legacyResultFetch, "legacy-result-fetch", false, "REST only: read the infer result with a second GET")
	f.StringVar(&a.flags.logLevel, "log-level", "WARN", "log level")

	rootCmd.AddCommand(
		a.newLiveCommand(),
		a.newReadyCommand(),
		a.newModelReadyCommand(),
		a.newMetadataCommand(),
		a.newModelMetadataCommand(),
		a.newModelConfigCommand(),
		a.newStatsCommand(),
		a.newIndexCommand(),
		a.newLoadCommand(),
		a.newUnloadCommand(),
		a.newInferCommand(),
	)
	return rootCmd
}

func (a *app) config() (*predator.Config, error) {
	host, port, err := net.SplitHostPort(a.flags.url)
	if err != nil {
		return nil, fmt.Errorf("invalid --url %q: %w", a.flags.url, err)
	}
	return &predator.Config{
		Protocol:          a.flags.protocol,
		Host:              host,
		Port:              port,
		DeadlineMS:        a.flags.timeoutMS,
		PlainText:         true,
		NetworkTimeoutMS:  a.flags.timeoutMS,
		CallerId:          a.flags.callerID,
		CallerToken:       a.flags.authToken,
		Verbose:           a.flags.verbose,
		LegacyResultFetch: a.flags.legacyResultFetch,
	}, nil
}

func (a *app) connect() error {
	level := a.flags.logLevel
	if a.flags.verbose {
		level = "DEBUG"
	}
	if err := logger.InitLogger(level); err != nil {
		return err
	}
	conf, err := a.config()
	if err != nil {
		return err
	}
	a.client, err = predator.NewClient(conf)
	return err
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(b))
	return nil
}

func (a *app) newLiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "live",
		Short: "Check server liveness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			live, err := a.client.IsServerLive(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println(live)
			return nil
		},
	}
}

func (a *app) newReadyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ready, err := a.client.IsServerReady(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println(ready)
			return nil
		},
	}
}

type modelFlags struct {
	name    string
	version string
}

func (m *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&m.name, "model", "m", "", "model name")
	cmd.Flags().StringVar(&m.version, "version", "", "model version, empty lets the server choose")
	_ = cmd.MarkFlagRequired("model")
}

func (a *app) newModelReadyCommand() *cobra.Command {
	var m modelFlags
	cmd := &cobra.Command{
		Use:   "model-ready",
		Short: "Check model readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ready, err := a.client.IsModelReady(cmd.Context(), m.name, m.version)
			if err != nil {
				return err
			}
			cmd.Println(ready)
			return nil
		},
	}
	m.register(cmd)
	return cmd
}

func (a *app) newMetadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Print server metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.ServerMetadataJSON(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func (a *app) newModelMetadataCommand() *cobra.Command {
	var m modelFlags
	cmd := &cobra.Command{
		Use:   "model-metadata",
		Short: "Print model metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.ModelMetadataJSON(cmd.Context(), m.name, m.version)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	m.register(cmd)
	return cmd
}

func (a *app) newModelConfigCommand() *cobra.Command {
	var m modelFlags
	cmd := &cobra.Command{
		Use:   "model-config",
		Short: "Print model configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.ModelConfigJSON(cmd.Context(), m.name, m.version)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	m.register(cmd)
	return cmd
}

func (a *app) newStatsCommand() *cobra.Command {
	var m modelFlags
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print model statistics, for every model when --model is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.ModelStatisticsJSON(cmd.Context(), m.name, m.version)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVarP(&m.name, "model", "m", "", "model name")
	cmd.Flags().StringVar(&m.version, "version", "", "model version")
	return cmd
}

func (a *app) newIndexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "List the model repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.client.RepositoryIndexJSON(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func (a *app) newLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load MODEL",
		Short: "Load a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.LoadModel(cmd.Context(), args[0])
		},
	}
}

func (a *app) newUnloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unload MODEL",
		Short: "Unload a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.UnloadModel(cmd.Context(), args[0])
		},
	}
}
