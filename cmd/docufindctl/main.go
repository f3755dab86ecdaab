// Command docufindctl runs maintenance tasks against a DocuFind deployment
// using the same environment configuration as the server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"docufind/internal/platform/config"
)

var Version = "dev"

func main() {
	cfg := config.FromEnv()

	rootCmd := &cobra.Command{
		Use:           "docufindctl",
		Short:         "DocuFind maintenance commands",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindOverrides(rootCmd.PersistentFlags(), &cfg)

	rootCmd.AddCommand(migrateCmd(&cfg))
	rootCmd.AddCommand(seedTypesCmd(&cfg))
	rootCmd.AddCommand(statsCmd(&cfg))
	rootCmd.AddCommand(sweepCmd(&cfg))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bindOverrides lets flags replace the connection settings read from the
// environment.
func bindOverrides(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Postgres.DSN, "database-url", cfg.Postgres.DSN, "Postgres DSN (defaults to DATABASE_URL)")
	fs.StringVar(&cfg.Redis.URL, "redis-url", cfg.Redis.URL, "Redis URL (defaults to REDIS_URL)")
	fs.StringSliceVar(&cfg.Kafka.Brokers, "kafka-brokers", cfg.Kafka.Brokers, "Kafka seed brokers (defaults to KAFKA_BROKERS)")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level")
}
