package main

import (
	"net/http"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"
	"github.com/tcriess/gift-circle/api"
	"github.com/tcriess/gift-circle/config"
	"github.com/tcriess/gift-circle/engine"
	"github.com/tcriess/gift-circle/globals"
	"github.com/tcriess/gift-circle/persistence"
	"github.com/tcriess/gift-circle/presence"
	"github.com/tcriess/gift-circle/ws"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	addr       = pflag.String("addr", "localhost:8000", "service address (including port)")
	sslCert    = pflag.String("ssl-cert", "", "SSL cert (optional)")
	sslKey     = pflag.String("ssl-key", "", "SSL key (optional)")
)

func main() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	if globalConfig.LogLevel != "" {
		globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))
	}

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	if persister == nil {
		panic("no persistence configured")
	}
	defer persister.Close()

	go func() {
		<-c
		persister.Close()
		globals.AppLogger.Error("interrupted")
		os.Exit(1)
	}()

	hubs := ws.NewHubSet(globalConfig, persister)
	tracker := presence.NewTracker(hubs)
	eng := engine.New(persister, tracker, globalConfig)
	eng.SetSink(hubs)

	server := api.NewServer(eng, hubs, globalConfig)

	globals.AppLogger.Info("listening", "addr", *addr)
	if *sslCert != "" && *sslKey != "" {
		err = http.ListenAndServeTLS(*addr, *sslCert, *sslKey, server.Router())
	} else {
		err = http.ListenAndServe(*addr, server.Router())
	}
	globals.AppLogger.Error("stopped listening", "error", err)
}
