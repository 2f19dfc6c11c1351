package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-autoquote/internal/config"
)

// Version set via ldflags during build
var version = "dev"

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:           "autoquote",
	Short:         "Multi-step auto insurance quote wizard",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `autoquote collects an auto insurance quote in five steps: personal
details, vehicles, drivers, current insurance and review.

Vehicle year, make and model choices come from the NHTSA vPIC service and
cascade: picking a year loads its makes, picking a make loads its models.
A VIN fills all three. The finished quote is flattened into form fields and
posted to a configured backend.`,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootFlags.configPath, "config", "c", "", "Config file (default: ./autoquote.yaml if present)")

	flags.String(config.FlagName("addr"), ":8080", "HTTP listen address")
	flags.String(config.FlagName("log_level"), "info", "Log level: debug, info, warn, error")
	flags.String(config.FlagName("log_format"), "text", "Log format: text or json")
	flags.Int(config.FlagName("min_year"), 1981, "Oldest model year offered")
	flags.Duration(config.FlagName("shutdown_grace"), 10*time.Second, "Time allowed for in-flight requests on shutdown")
	flags.String(config.FlagName("vpic.base_url"), "", "vPIC API base URL")
	flags.String(config.FlagName("vpic.vehicle_type"), "", "Vehicle type sent with make and model queries")
	flags.Duration(config.FlagName("vpic.timeout"), 0, "vPIC request timeout")
	flags.Float64(config.FlagName("vpic.rate"), 0, "vPIC requests per second, 0 disables throttling")
	flags.Int(config.FlagName("vpic.burst"), 0, "vPIC request burst")
	flags.String(config.FlagName("cache.backend"), "", "Lookup cache: memory or redis")
	flags.String(config.FlagName("cache.redis_addr"), "", "Redis address for the redis cache")
	flags.String(config.FlagName("backend.action"), "", "URL the finished quote form posts to")
	flags.String(config.FlagName("backend.method"), "", "HTTP method of the quote form")
	flags.StringToString(config.FlagName("backend.hidden"), nil, "Static hidden fields of the quote form, as name=value")
	flags.String(config.FlagName("nats.url"), "", "NATS server for quote events")
	flags.String(config.FlagName("nats.subject"), "", "NATS subject for quote events")
	flags.Bool(config.FlagName("nats.embedded"), false, "Run an in-process NATS server for quote events")
	flags.Duration(config.FlagName("session.idle"), 0, "Idle time after which a web session is dropped")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(flattenCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "autoquote:", err)
		os.Exit(1)
	}
}
