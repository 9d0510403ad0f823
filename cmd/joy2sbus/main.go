package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/sbus.go/pkg/framework"
	"github.com/robotalks/sbus.go/pkg/joystick"
	"github.com/robotalks/sbus.go/pkg/sbus"
	"github.com/robotalks/sbus.go/pkg/uart"
)

var (
	port     = os.Getenv("SBUS_PORT")
	baudRate = sbus.DefaultBaudRate
)

func init() {
	flag.StringVar(&port, "port", port, "Serial port transmitting SBUS.")
	flag.IntVar(&baudRate, "baud", baudRate, "Baud rate.")
	joystick.SetupFlags()
}

func main() {
	flag.Parse()
	if port == "" {
		log.Fatalln("-port required")
	}

	bus := sbus.NewBus(uart.Dialer)
	if err := bus.Connect(port, baudRate); err != nil {
		log.Fatalln(err)
	}
	defer bus.Close()

	tx := joystick.NewConfig().NewTransmitter(bus)
	if err := framework.NewRunner().HandleSignals().Go(tx).Wait(); err != nil {
		log.Println(err)
	}
}
