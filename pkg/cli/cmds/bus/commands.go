// Package bus provides shell commands operating the bus.
package bus

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/sbus.go/pkg/cli/sh"
	"github.com/robotalks/sbus.go/pkg/sbus"
	"github.com/robotalks/sbus.go/pkg/uart"
)

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "",
		Func: func(c *ishell.Context) {
			ports, err := uart.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			s := sh.ShellFrom(c)
			if s.OutputJSON {
				s.Print(c, ports)
				return
			}
			for _, p := range ports {
				c.Println(p.String())
			}
		},
	}

	// OpenCmd opens a local port.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "PORT [BAUD]",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("port required"))
				return
			}
			var baud int
			if len(c.Args) > 1 {
				n, err := strconv.Atoi(c.Args[1])
				if err != nil {
					c.Err(fmt.Errorf("invalid baud rate %q", c.Args[1]))
					return
				}
				baud = n
			}
			if err := sh.ShellFrom(c).Open(c.Args[0], baud); err != nil {
				c.Err(err)
			}
		},
	}

	// StatusCmd shows status and counters.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "",
		Func: sh.MustHaveTarget(func(c *ishell.Context, t sh.Target) {
			ctx, cancel := sh.CommandContext()
			defer cancel()
			status, err := t.Status(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			s := sh.ShellFrom(c)
			if s.OutputJSON {
				s.Print(c, status)
				return
			}
			c.Printf("port: %s connected: %t reading: %t\n", status.Port, status.Connected, status.Reading)
			stats := status.Stats()
			c.Printf("frames: %d lost: %d skipped: %d overflows: %d dropped: %d\n",
				stats.Frames, stats.FrameLost, stats.SkippedBytes, stats.Overflows, stats.DroppedBytes)
		}),
	}

	// LostCmd shows the number of frames received with frame lost.
	LostCmd = ishell.Cmd{
		Name: "lost",
		Help: "",
		Func: sh.MustHaveTarget(func(c *ishell.Context, t sh.Target) {
			ctx, cancel := sh.CommandContext()
			defer cancel()
			status, err := t.Status(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(status.FrameLost)
		}),
	}

	// StartCmd starts reading.
	StartCmd = ishell.Cmd{
		Name: "start",
		Help: "",
		Func: sh.MustHaveTarget(func(c *ishell.Context, t sh.Target) {
			setReading(c, t, true)
		}),
	}

	// StopCmd stops reading.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "",
		Func: sh.MustHaveTarget(func(c *ishell.Context, t sh.Target) {
			setReading(c, t, false)
		}),
	}

	// WriteCmd writes a frame.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "[VALUE|CH=VALUE]...",
		Func: sh.MustHaveTarget(func(c *ishell.Context, t sh.Target) {
			v, err := sh.ParseValue(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			ctx, cancel := sh.CommandContext()
			defer cancel()
			if err := t.Write(ctx, v); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// WatchCmd prints received frames.
	WatchCmd = ishell.Cmd{
		Name: "watch",
		Help: "[COUNT]",
		Func: sh.MustHaveTarget(func(c *ishell.Context, t sh.Target) {
			count := 10
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
					return
				}
				count = n
			}
			values := make(chan sbus.Value, count)
			stop := t.Watch(func(v sbus.Value) {
				select {
				case values <- v:
				default:
				}
			})
			defer stop()
			s := sh.ShellFrom(c)
			for i := 0; i < count; i++ {
				select {
				case v := <-values:
					s.Print(c, v)
				case <-time.After(5 * time.Second):
					c.Err(fmt.Errorf("no frame received"))
					return
				}
			}
		}),
	}
)

func setReading(c *ishell.Context, t sh.Target, enable bool) {
	ctx, cancel := sh.CommandContext()
	defer cancel()
	if err := t.SetReading(ctx, enable); err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

func init() {
	sh.AddCmds(
		&PortsCmd,
		&OpenCmd,
		&StatusCmd,
		&LostCmd,
		&StartCmd,
		&StopCmd,
		&WriteCmd,
		&WatchCmd,
	)
}
