package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rulesage/internal/app"
	"github.com/kailas-cloud/rulesage/internal/config"
	logpkg "github.com/kailas-cloud/rulesage/internal/logger"
	"github.com/kailas-cloud/rulesage/internal/version"
)

type rootFlags struct {
	env        string
	configPath string
	logLevel   string
	jsonOut    bool
}

type queryFlags struct {
	k           int
	debug       bool
	showContext bool
}

func newRootCmd() *cobra.Command {
	var rf rootFlags

	root := &cobra.Command{
		Use:           "rulesage-cli",
		Short:         "Query the rulebook corpus from the terminal",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&rf.env, "env", config.GetEnv(), "config environment (loads config/<env>.yaml)")
	root.PersistentFlags().StringVar(&rf.configPath, "config", "", "explicit config file path (overrides --env)")
	root.PersistentFlags().StringVar(&rf.logLevel, "log-level", "", "log level override: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&rf.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(newRetrieveCmd(&rf), newAskCmd(&rf))
	return root
}

func newRetrieveCmd(rf *rootFlags) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Show the ranked chunks for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rf, func(a *app.App) error {
				resp, err := a.Retrieval.Retrieve(cmd.Context(), strings.Join(args, " "), qf.k)
				if err != nil {
					return fmt.Errorf("retrieve: %w", err)
				}
				out := cmd.OutOrStdout()
				if rf.jsonOut {
					return writeJSON(out, retrievalView(&resp, qf.debug))
				}
				printRetrieval(out, &resp, qf.debug)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&qf.k, "top-k", "k", 0, "result count (0 = configured default)")
	cmd.Flags().BoolVar(&qf.debug, "debug", false, "print the ranking trace")
	return cmd
}

func newAskCmd(rf *rootFlags) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from retrieved rulebook context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rf, func(a *app.App) error {
				ans, err := a.Answer.Ask(cmd.Context(), strings.Join(args, " "), qf.k)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				out := cmd.OutOrStdout()
				if rf.jsonOut {
					return writeJSON(out, answerView(&ans, qf.debug, qf.showContext))
				}
				printAnswer(out, &ans, qf.debug, qf.showContext)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&qf.k, "top-k", "k", 0, "retrieved chunk count (0 = configured default)")
	cmd.Flags().BoolVar(&qf.debug, "debug", false, "print the ranking trace")
	cmd.Flags().BoolVar(&qf.showContext, "show-context", false, "print the context sent to the model")
	return cmd
}

func withApp(ctx context.Context, rf *rootFlags, fn func(*app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		cfg config.Config
		err error
	)
	if rf.configPath != "" {
		cfg, err = config.LoadFile(rf.configPath)
	} else {
		cfg, err = config.Load(rf.env)
	}
	if err != nil {
		return err
	}

	logger, err := logpkg.NewLogger("cli", rf.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Debug("init failed", zap.Error(err))
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	return fn(a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
