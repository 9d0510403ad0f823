package main

import (
	"github.com/robotalks/sbus.go/pkg/cli/sh"
	"github.com/robotalks/sbus.go/pkg/uart"

	_ "github.com/robotalks/sbus.go/pkg/cli/cmds/bus"
)

//go-build: CGO_ENABLED=0

func init() {
	sh.SetupFlags()
}

func main() {
	sh.Main(uart.Dialer)
}
