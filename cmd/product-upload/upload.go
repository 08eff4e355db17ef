package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/calvinCq/product-upload/productdata"
	"github.com/calvinCq/product-upload/uploader"
	"github.com/calvinCq/product-upload/wordfilter"
)

func newUploadCmd() *cobra.Command {
	var (
		flagFile           string
		flagConcurrent     bool
		flagMaxConcurrency int
		flagInterval       time.Duration
		flagResults        string
		flagReport         string
		flagCleanWords     bool
		flagMetricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "批量上传商品",
		Long: `从 JSON 或 CSV 文件读取商品数据并批量上传到微信小店。

默认逐个上传并在商品之间等待固定间隔；--concurrent 切换为
有界并发模式。收到 Ctrl+C 后停止派发剩余商品，已有结果照常落盘。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, shopClient, err := loadShop()
			if err != nil {
				return err
			}

			products, err := productdata.LoadProducts(flagFile)
			if err != nil {
				return err
			}
			if len(products) == 0 {
				return fmt.Errorf("no products in %s", flagFile)
			}
			if len(products) > cfg.Upload.BatchSize {
				logger.Warn("batch larger than configured batch_size",
					slog.Int("products", len(products)),
					slog.Int("batch_size", cfg.Upload.BatchSize),
				)
			}

			if flagCleanWords {
				products = cleanProducts(products)
			}

			items, err := productdata.Items(products)
			if err != nil {
				return err
			}

			var metrics *uploader.Metrics
			if flagMetricsAddr != "" {
				reg := prometheus.NewRegistry()
				metrics = uploader.NewMetrics(reg)
				go serveMetrics(flagMetricsAddr, reg)
			}

			interval := cfg.Upload.Interval
			if cmd.Flags().Changed("interval") {
				interval = flagInterval
			}
			maxConcurrency := cfg.Upload.MaxConcurrency
			if cmd.Flags().Changed("max-concurrency") {
				maxConcurrency = flagMaxConcurrency
			}

			up, err := uploader.New(uploader.Config{
				Executor:       shopClient.Executor(),
				Interval:       interval,
				MaxAttempts:    cfg.Upload.MaxRetries + 1,
				MaxConcurrency: maxConcurrency,
				Logger:         logger,
				Metrics:        metrics,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var (
				results []uploader.Result
				summary uploader.Summary
			)
			if flagConcurrent {
				results, summary = up.SubmitConcurrent(ctx, items)
			} else {
				results, summary = up.SubmitSequential(ctx, items)
			}

			report := uploader.Report(results, summary)
			fmt.Print(report)

			resultsFile := cfg.Output.ResultsFile
			if flagResults != "" {
				resultsFile = flagResults
			}
			if resultsFile != "" {
				if err := productdata.SaveResults(resultsFile, results, summary); err != nil {
					return err
				}
				logger.Info("results saved", slog.String("path", resultsFile))
			}

			reportFile := cfg.Output.ReportFile
			if flagReport != "" {
				reportFile = flagReport
			}
			if reportFile != "" {
				if err := productdata.WriteReport(reportFile, report); err != nil {
					return err
				}
				logger.Info("report saved", slog.String("path", reportFile))
			}

			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d products failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagFile, "file", "f", "", "商品数据文件（.json 或 .csv）")
	cmd.Flags().BoolVar(&flagConcurrent, "concurrent", false, "使用有界并发模式上传")
	cmd.Flags().IntVar(&flagMaxConcurrency, "max-concurrency", 0, "并发模式的并发上限（覆盖配置）")
	cmd.Flags().DurationVar(&flagInterval, "interval", 0, "串行模式的请求间隔（覆盖配置）")
	cmd.Flags().StringVar(&flagResults, "results", "", "结果 JSON 输出路径（覆盖配置）")
	cmd.Flags().StringVar(&flagReport, "report", "", "报告文本输出路径（覆盖配置）")
	cmd.Flags().BoolVar(&flagCleanWords, "clean-words", false, "上传前过滤标题和描述中的敏感词")
	cmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "暴露 Prometheus 指标的监听地址，如 :9100")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// cleanProducts 过滤商品标题和描述中的敏感词
func cleanProducts(products []productdata.Product) []productdata.Product {
	filter := wordfilter.New()
	for i, p := range products {
		if hits := filter.Detect(p.Title + " " + p.DescInfo.Desc); len(hits) > 0 {
			logger.Warn("sensitive words removed",
				slog.String("title", p.Title),
				slog.Any("words", hits),
			)
		}
		products[i].Title = filter.Clean(p.Title)
		products[i].SubTitle = filter.Clean(p.SubTitle)
		products[i].ShortTitle = filter.Clean(p.ShortTitle)
		products[i].DescInfo.Desc = filter.Clean(p.DescInfo.Desc)
	}
	return products
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", slog.Any("error", err))
	}
}
