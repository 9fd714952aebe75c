package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"

	"numerologist/cmd/context-service/internal/biz"
	"numerologist/cmd/context-service/internal/conf"
	"numerologist/cmd/context-service/internal/data"
	"numerologist/pkg/logger"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "contextctl",
		Short: "Inspect and manage conversation context for the voice numerologist",
		Long: strings.TrimSpace(`contextctl talks to the same PostgreSQL and Redis as context-service.

Use it to count tokens offline, render a user's conversation context, or drop a
stale cache entry.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./configs/context-service.yaml", "Config file path")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newCountTokensCommand())
	root.AddCommand(newShowCommand(opts))
	root.AddCommand(newInvalidateCommand(opts))

	return root
}

func newCountTokensCommand() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "count-tokens [text]",
		Short: "Count tokens of text (reads stdin when no argument is given)",
		Example: strings.Join([]string{
			`  contextctl count-tokens "Previous conversations with this user:"`,
			`  echo "hello" | contextctl count-tokens --model gpt-4`,
		}, "\n"),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 1 {
				text = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimRight(string(b), "\n")
			}

			counter := biz.NewTiktokenCounter(log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelWarn)))
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", counter.CountTokens(text, model))
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", biz.DefaultTokenModel, "Tokenizer model")

	return cmd
}

func newShowCommand(opts *rootOptions) *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "show <user_id>",
		Short: "Print the conversation context injected into a user's voice session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := newEnvironment(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			if fresh {
				env.contexts.InvalidateConversationContextCache(ctx, args[0])
			}

			text := env.contexts.GetConversationContext(ctx, args[0])
			if text == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "(no context)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			fmt.Fprintf(cmd.ErrOrStderr(), "tokens: %d\n", env.counter.CountTokens(text, env.model))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Drop the cached entry before rendering")

	return cmd
}

func newInvalidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <user_id>...",
		Short: "Delete cached conversation context for one or more users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := newEnvironment(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, userID := range args {
				env.contexts.InvalidateConversationContextCache(cmd.Context(), userID)
				fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s\n", userID)
			}
			return nil
		},
	}
}

type environment struct {
	contexts *biz.ContextUsecase
	counter  biz.TokenCounter
	model    string
}

// newEnvironment 按服务配置连接存储并组装上下文用例
func newEnvironment(opts *rootOptions) (*environment, func(), error) {
	cfg, manager, err := conf.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	zl, err := logger.NewZap(logger.Config{ServiceName: "contextctl", Level: level, Format: "console"})
	if err != nil {
		manager.Close()
		return nil, nil, err
	}
	kl := logger.NewKratosLogger(zl)

	db, closeDB, err := data.NewDB(&cfg.Database, kl)
	if err != nil {
		manager.Close()
		return nil, nil, err
	}
	rdb, closeRedis, err := data.NewRedisClient(&cfg.Redis, kl)
	if err != nil {
		closeDB()
		manager.Close()
		return nil, nil, err
	}

	counter := biz.NewTiktokenCounter(kl)
	store := data.NewContextStore(data.NewCache(rdb, &cfg.Context), &cfg.Resilience, kl)
	contexts := biz.NewContextUsecase(
		store,
		biz.NewHistoryRetriever(data.NewConversationRepository(db), kl),
		biz.NewContextFormatter(counter, biz.TokenModel(cfg.Context.Model), kl),
		biz.ContextConfig{
			TTL:          cfg.Context.CacheTTL,
			HistoryLimit: cfg.Context.HistoryLimit,
			MaxTokens:    cfg.Context.MaxTokens,
			Timeout:      cfg.Context.Timeout,
		},
		kl,
	)

	cleanup := func() {
		closeRedis()
		closeDB()
		_ = zl.Sync()
		manager.Close()
	}
	return &environment{contexts: contexts, counter: counter, model: cfg.Context.Model}, cleanup, nil
}
