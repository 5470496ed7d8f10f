package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/briefing-buddy/backend/internal/config"
	"github.com/briefing-buddy/backend/internal/logging"
	"github.com/briefing-buddy/backend/internal/webhook"
)

var (
	webhookURL string
	timeout    string
	showRaw    bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "webhookprobe",
		Short:         "Probe the Briefing Buddy automation webhook",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&webhookURL, "url", "", "webhook URL (overrides WEBHOOK_URL)")
	rootCmd.PersistentFlags().StringVar(&timeout, "timeout", "", "request timeout, e.g. 30s (overrides WEBHOOK_TIMEOUT)")
	rootCmd.PersistentFlags().BoolVar(&showRaw, "raw", false, "print the raw response body")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log retries and request details")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(pingCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadClient 读取 .env 与命令行参数并构造 webhook 客户端
func loadClient() (*webhook.Client, *config.Config, error) {
	_ = godotenv.Load()

	if webhookURL != "" {
		os.Setenv("WEBHOOK_URL", webhookURL)
	}
	if timeout != "" {
		os.Setenv("WEBHOOK_TIMEOUT", timeout)
	}
	// 探测工具不需要持久化
	os.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logCfg := config.LogConfig{Level: "warn", Format: "console"}
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, err
	}

	client := webhook.NewClient(webhook.Options{
		URL:       cfg.Webhook.URL,
		Timeout:   cfg.Webhook.Timeout,
		Retries:   cfg.Webhook.Retries,
		RateLimit: cfg.Webhook.RateLimit,
		RateBurst: cfg.Webhook.RateBurst,
	}, logger.Named("webhook"))

	logger.Debug("webhook client ready", zap.String("url", cfg.Webhook.URL), zap.Duration("timeout", cfg.Webhook.Timeout))
	return client, cfg, nil
}
