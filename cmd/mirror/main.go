// Package main: mirror service.
//
// The mirror writes the blocks of the configured chains to the main database, where the api service reads them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tarancss/eosapi/lib/chain"
	"github.com/tarancss/eosapi/lib/config"
	"github.com/tarancss/eosapi/lib/logger"
	"github.com/tarancss/eosapi/lib/metrics"
	"github.com/tarancss/eosapi/lib/msg"
	"github.com/tarancss/eosapi/lib/msg/amqp"
	"github.com/tarancss/eosapi/lib/store/db"
	"github.com/tarancss/eosapi/lib/telemetry"
	"github.com/tarancss/eosapi/mirror"
)

// brokerWait is how long the broker is waited for at startup.
const brokerWait = time.Minute

var (
	confPath string
	monitor  bool
)

var rootCmd = &cobra.Command{
	Use:          "mirror",
	Short:        "EOS chain mirror",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&confPath, "config", "c", "", "get configuration from json file")
	rootCmd.Flags().BoolVarP(&monitor, "monitor", "m", false, "serve Prometheus metrics at :9100/metrics")
}

func main() {
	// capture CTRL+C or docker's SIGTERM for gracious exit
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1) //nolint:gocritic // stop is a no-op by now
	}
}

func run(ctx context.Context) error {
	// extract configuration
	conf, err := config.ExtractConfiguration(confPath)
	if err != nil {
		return err
	}

	log := logger.New(os.Stdout, logger.Config{Level: conf.LogLevel, Format: conf.LogFormat})
	slog.SetDefault(log)

	if len(conf.Chains) == 0 {
		return fmt.Errorf("no chains to mirror")
	}

	shutdown, err := telemetry.Setup(ctx, "eosapi-mirror", conf.OtelEndpoint)
	if err != nil {
		return err
	}

	defer func() {
		if errShut := shutdown(context.Background()); errShut != nil {
			log.Warn("cannot flush traces", "err", errShut)
		}
	}()

	// connect to database
	log.Info("connecting to database", "type", conf.DbType, "name", conf.DbName)

	dh, err := db.New(conf.DbType, conf.DbConn, conf.DbName, conf.QueryTimeout, log)
	if err != nil {
		return err
	}

	defer func() {
		if errClose := db.Close(dh, nil); errClose != nil {
			log.Warn("cannot close database", "err", errClose)
		}
	}()

	// load Prometheus monitor
	if monitor {
		go func() {
			log.Info("serving metrics API", "addr", ":9100")

			if errMon := metrics.Serve(":9100"); errMon != nil {
				log.Error("metrics API stopped", "err", errMon)
			}
		}()
	}

	// load message broker
	var mb msg.MsgBroker = msg.LogBroker{Log: log}

	if conf.MbType == "amqp" {
		a, errMb := amqp.Connect(ctx, conf.MbConn, brokerWait, log)
		if errMb != nil {
			return errMb
		}

		defer func() {
			if errClose := a.Close(); errClose != nil {
				log.Warn("cannot close message broker", "err", errClose)
			}
		}()

		if err = a.Setup(); err != nil {
			return err
		}

		mb = a
	}

	// load chain clients
	chains := make([]mirror.Chain, 0, len(conf.Chains))
	for _, c := range conf.Chains {
		chains = append(chains, mirror.Chain{ChainConfig: c, Node: chain.New(c.Node, conf.NodeTimeout)})
	}

	// mirror every chain until killed
	return mirror.New(dh, mb, chains, log).Run(ctx)
}
