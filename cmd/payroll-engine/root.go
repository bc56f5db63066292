package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xahau-payroll/payroll-engine/internal/config"
	"github.com/xahau-payroll/payroll-engine/internal/di"
)

var cfgFile string

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("PAYROLL")
	viper.AutomaticEnv()

	// Bind specific environment variables to config keys
	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("log.format", "LOG_FORMAT")
	viper.BindEnv("server.listen")
	viper.BindEnv("network.network", "NETWORK")
	viper.BindEnv("network.rpc_url", "LEDGER_RPC_URL")
	viper.BindEnv("network.timeout")
	viper.BindEnv("channel.default_settle_delay_seconds", "CHANNEL_DEFAULT_SETTLE_DELAY_SECONDS")
	viper.BindEnv("channel.default_cancel_after_seconds", "CHANNEL_DEFAULT_CANCEL_AFTER_SECONDS")
	viper.BindEnv("channel.max_daily_hours_per_channel", "MAX_DAILY_HOURS_PER_CHANNEL")
	viper.BindEnv("channel.resolver_retry_schedule", "RESOLVER_RETRY_SCHEDULE")
	viper.BindEnv("channel.signing_gateway_deadline_seconds", "SIGNING_GATEWAY_DEADLINE_SECONDS")
	viper.BindEnv("reconciler.min_interval_seconds", "RECONCILE_MIN_INTERVAL_SECONDS")
	viper.BindEnv("reconciler.batch_concurrency", "RECONCILER_BATCH_CONCURRENCY")
	viper.BindEnv("database.dsn", "DB_DSN")
	viper.BindEnv("database.max_open_conns", "DB_MAX_OPEN_CONNS")
	viper.BindEnv("database.max_idle_conns", "DB_MAX_IDLE_CONNS")

	// Set defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "logfmt")
	viper.SetDefault("server.listen", ":8099")
	viper.SetDefault("network.network", "testnet")
	viper.SetDefault("network.timeout", 10)
	viper.SetDefault("channel.default_settle_delay_seconds", 86400)
	viper.SetDefault("channel.default_cancel_after_seconds", 86400)
	viper.SetDefault("channel.max_daily_hours_per_channel", 8.0)
	viper.SetDefault("channel.resolver_retry_schedule", []int64{1, 2, 4, 8, 16})
	viper.SetDefault("channel.signing_gateway_deadline_seconds", 300)
	viper.SetDefault("reconciler.min_interval_seconds", 60)
	viper.SetDefault("reconciler.batch_concurrency", 8)
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 5)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

var rootCmd = &cobra.Command{
	Use:   "payroll-engine",
	Short: "XRPL/Xahau payment-channel payroll engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Println(cfg.RedactedConfigLog())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := di.InitializeServer(ctx, cfg)
		if err := srv.RunWithGracefulShutdown(ctx); err != nil {
			return err
		}

		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to run payroll engine: %v\n", err)
		os.Exit(1)
	}
}
