// product-upload 微信小店商品批量上传工具
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/calvinCq/product-upload/config"
	"github.com/calvinCq/product-upload/core"
	"github.com/calvinCq/product-upload/shop"
)

var (
	flagConfig   string
	flagLogLevel string
	flagLogJSON  bool

	logger *slog.Logger
)

func main() {
	root := &cobra.Command{
		Use:           "product-upload",
		Short:         "微信小店商品批量上传工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(flagLogLevel, flagLogJSON)
			return err
		},
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "配置文件路径（默认查找 ./config.yaml）")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "日志级别：debug/info/warn/error")
	root.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "以 JSON 格式输出日志")

	root.AddCommand(newUploadCmd(), newTokenCmd(), newCategoriesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func newLogger(level string, jsonOut bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if jsonOut {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}

// loadShop 加载配置并构建店铺客户端
func loadShop() (*config.Config, *shop.Client, error) {
	cfg, err := config.Load(flagConfig, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	retry := core.DefaultRetryPolicy()
	retry.MaxRetries = cfg.Upload.MaxRetries

	s, err := shop.New(shop.Config{
		AppID:      cfg.API.AppID,
		AppSecret:  cfg.API.AppSecret,
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
		Logger:     logger,
		Retry:      &retry,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, s, nil
}
