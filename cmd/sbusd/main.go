package main

import (
	"flag"
	"log"

	"github.com/robotalks/sbus.go/pkg/daemon"
	"github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/uart"
)

//go-build: CGO_ENABLED=0

func init() {
	daemon.SetupFlags()
}

func main() {
	flag.Parse()

	conf, err := daemon.NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	d := conf.MustNewDaemon(uart.Dialer)
	if err := framework.NewRunner().HandleSignals().Go(d).Wait(); err != nil {
		log.Fatalln(err)
	}
}
