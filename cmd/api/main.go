// Package main: api service.
//
// The api serves the mirrored chain collections and the users of the gateway, and proxies chain calls to the EOS node.
// It should use the same main database as the mirror service.
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

	"github.com/tarancss/eosapi/api"
	"github.com/tarancss/eosapi/lib/auth"
	"github.com/tarancss/eosapi/lib/chain"
	"github.com/tarancss/eosapi/lib/config"
	"github.com/tarancss/eosapi/lib/logger"
	"github.com/tarancss/eosapi/lib/metrics"
	"github.com/tarancss/eosapi/lib/msg"
	"github.com/tarancss/eosapi/lib/msg/amqp"
	"github.com/tarancss/eosapi/lib/store/db"
	"github.com/tarancss/eosapi/lib/telemetry"
)

// brokerWait is how long the broker is waited for at startup.
const brokerWait = time.Minute

var (
	confPath string
	monitor  bool
)

var rootCmd = &cobra.Command{
	Use:          "api",
	Short:        "EOS REST gateway",
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

	if err = conf.Validate(); err != nil {
		return err
	}

	log := logger.New(os.Stdout, logger.Config{Level: conf.LogLevel, Format: conf.LogFormat})
	slog.SetDefault(log)

	shutdown, err := telemetry.Setup(ctx, "eosapi-api", conf.OtelEndpoint)
	if err != nil {
		return err
	}

	defer func() {
		if errShut := shutdown(context.Background()); errShut != nil {
			log.Warn("cannot flush traces", "err", errShut)
		}
	}()

	// connect to databases
	log.Info("connecting to database", "type", conf.DbType, "name", conf.DbName)

	dh, err := db.New(conf.DbType, conf.DbConn, conf.DbName, conf.QueryTimeout, log)
	if err != nil {
		return err
	}

	rl, err := db.NewRequests(conf.ReqDbType, conf.ReqDbConn, conf.DbName, conf.QueryTimeout, dh)
	if err != nil {
		_ = dh.Close()

		return err
	}

	defer func() {
		if errClose := db.Close(dh, rl); errClose != nil {
			log.Warn("cannot close databases", "err", errClose)
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
	mb, err := broker(ctx, conf, log)
	if err != nil {
		return err
	}

	defer func() {
		if errClose := mb.Close(); errClose != nil {
			log.Warn("cannot close message broker", "err", errClose)
		}
	}()

	tokens, err := auth.NewTokens(conf.JWTSecret, conf.JWTExpiration, conf.APIKeyExpiration)
	if err != nil {
		return err
	}

	rbac, err := auth.NewEnforcer()
	if err != nil {
		return err
	}

	node := chain.New(conf.NodeURI, conf.NodeTimeout)

	// create api service
	a := api.New(dh, rl, node, mb, tokens, rbac, api.Options{MailFrom: conf.MailFrom, FaucetNotify: conf.FaucetNotify}, log)

	go func() {
		<-ctx.Done()
		log.Info("stopping api")

		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:gomnd // drain time
		defer cancel()

		a.Stop(sctx)
	}()

	// init RESTful API and wait for it to stop
	log.Info("starting api", "endpoint", conf.RestfulEndpoint, "port", conf.Port, "sslport", conf.SSLPort)

	return a.Init(conf.RestfulEndpoint, conf.Port, conf.SSLPort, conf.SSLCert, conf.SSLKey)
}

func broker(ctx context.Context, conf config.ServiceConfig, log *slog.Logger) (msg.MsgBroker, error) {
	if conf.MbType != "amqp" {
		log.Warn("no message broker, messages will only be logged", "type", conf.MbType)

		return msg.LogBroker{Log: log}, nil
	}

	mb, err := amqp.Connect(ctx, conf.MbConn, brokerWait, log)
	if err != nil {
		return nil, err
	}

	if err = mb.Setup(); err != nil {
		_ = mb.Close()

		return nil, err
	}

	return mb, nil
}
