package main

import (
	"context"
	"flag"
	"io/ioutil"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	log "github.com/cihub/seelog"
	"github.com/v-gu/mysqltc/config"
	xlog "github.com/v-gu/mysqltc/log"
	"github.com/v-gu/mysqltc/model"
	"github.com/v-gu/mysqltc/monitor"
	"github.com/v-gu/mysqltc/outputs"
	"github.com/v-gu/mysqltc/progress"
)

var (
	cfgFile string
)

func init() {
	flag.StringVar(&cfgFile, "config", "config/server.json", "config file path")
}

func main() {
	flag.Parse()
	cfg := config.ReadConfig(cfgFile)
	if err := xlog.InitLogger(cfg.General.Logconfig); err != nil {
		panic(err)
	}
	defer log.Flush()

	if cfg.General.Pidfile != "" {
		if err := ioutil.WriteFile(cfg.General.Pidfile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
			log.Errorf("write pid file: %v", err)
		}
		defer os.Remove(cfg.General.Pidfile)
	}

	log.Infof("rplstat started,using server config:%s, stat log:%s", cfgFile, cfg.Stat.Logfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outs := make([]outputs.Output, 0, len(cfg.Outputs))
	stopOutputs := func() {
		for _, out := range outs {
			out.Stop()
		}
	}
	for typ, raw := range cfg.Outputs {
		out, err := outputs.NewOutput(typ, ctx, raw, cfg)
		if err != nil {
			log.Criticalf("create output %s: %v", typ, err)
			stopOutputs()
			return
		}
		outs = append(outs, out)
	}

	sink, err := progress.OpenFile(cfg.Stat.Logfile)
	if err != nil {
		log.Criticalf("%v", err)
		stopOutputs()
		return
	}
	observer := monitor.NewObserver(monitor.Options{
		Shards:        cfg.Stat.Shards,
		ReaffirmEvery: cfg.Stat.ReaffirmEvery,
		Outputs:       outs,
	})
	if err = observer.Start(sink); err != nil {
		// Start already stopped the outputs; the sink is still ours
		sink.Close()
		log.Criticalf("%v", err)
		return
	}

	fetcher := monitor.NewFetcher(observer, os.Stdin)
	finished := make(chan error, 1)
	go func() {
		finished <- fetcher.Run(ctx)
	}()

	log.Infof("reading transmit notifications from stdin, press [Ctrl+c] to stop")

	select {
	case err = <-finished:
		if err != nil {
			log.Errorf("%v", err)
		}
	case <-waitForExitSign():
		log.Info("signal catched,rplstat will be shutdown")
	}
	cancel()

	if err = observer.Stop(); err != nil {
		log.Errorf("stop observer: %v", err)
	}
	lines, skipped := fetcher.Stats()
	log.Infof("%d notifications, %d malformed, %d servers tracked, %d stat log write errors",
		lines, skipped, observer.Store().Len(), observer.AppendErrors())
	observer.Store().Range(func(serverId string, pos model.Position) {
		log.Infof("server_id:%s last sent %s:%d", serverId, pos.File, pos.Offset)
	})
	log.Info("goodbye")
}

func waitForExitSign() <-chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	return c
}
