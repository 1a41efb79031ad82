package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"carbonpool/internal/api"
	"carbonpool/internal/config"
	"carbonpool/internal/ingest"
	carbonlog "carbonpool/internal/log"
)

func main() {
	confPath := flag.String("config", "/etc/carbon-pool.conf", "configuration file name")
	flag.Parse()

	cfg, err := config.Load(*confPath)
	if err != nil {
		log.Fatalf("carbon-pool: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("carbon-pool: %v", err)
	}

	lg, err := carbonlog.Open(cfg.DataDir, cfg.SegmentSize, cfg.MaxSegments)
	if err != nil {
		log.Fatalf("carbon-pool: %v", err)
	}
	defer lg.Close()

	ingestSrv := ingest.NewServer(lg)
	apiSrv := api.NewServer(cfg.APIAddr, lg)

	go func() {
		log.Printf("carbon-pool: ingest listening on %s", cfg.IngestAddr)
		if err := ingestSrv.ListenAndServe(cfg.IngestAddr); err != nil {
			log.Fatalf("carbon-pool: ingest: %v", err)
		}
	}()

	go func() {
		log.Printf("carbon-pool: api listening on %s", cfg.APIAddr)
		if err := apiSrv.ListenAndServe(); err != nil {
			log.Fatalf("carbon-pool: api: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Print("carbon-pool: shutting down")
	apiSrv.Close()
}
