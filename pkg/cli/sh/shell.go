// Package sh provides the interactive shell of sbuscli.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/sbus.go/pkg/comm"
	"github.com/robotalks/sbus.go/pkg/sbus"
)

// CommandTimeout limits waiting for a command.
const CommandTimeout = time.Second

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *Config
	// Bus is the local bus, created with the Dialer.
	Bus    *sbus.Bus
	Target Target
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell. The local bus opens ports using dialer.
func New(conf *Config, dialer sbus.Dialer) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
		Bus:    sbus.NewBus(dialer),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustHaveTarget wraps command func requires a target.
func MustHaveTarget(fn func(c *ishell.Context, t Target)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		t := ShellFrom(c).Target
		if t == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c, t)
	}
}

// CommandContext creates the context for a single command.
func CommandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), CommandTimeout)
}

// FormatInfo prints NodeInfo into friendly string for display.
func FormatInfo(info comm.NodeInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.ID)
	if info.Meta.Port != "" {
		fmt.Fprintf(&w, " (%s)", info.Meta.Port)
	}
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	return w.String()
}

// Print prints v, in JSON if requested.
func (s *Shell) Print(c *ishell.Context, v interface{}) {
	if !s.OutputJSON {
		c.Println(v)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// DiscoverNodes discovers nodes.
func (s *Shell) DiscoverNodes() ([]comm.NodeInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return connector.Discover(ctx)
}

// SelectNode discovers nodes and asks for a choice.
func (s *Shell) SelectNode() (*comm.NodeInfo, error) {
	infoList, err := s.DiscoverNodes()
	if err != nil {
		return nil, err
	}
	if len(infoList) == 0 {
		return nil, nil
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 nodes discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to connect?")
		if index < 0 {
			return nil, nil
		}
	}
	return &infoList[index], nil
}

// Connect connects a remote node by ID or URL.
func (s *Shell) Connect(node string) error {
	conn, err := s.Config.Connect(context.Background(), node)
	if err != nil {
		return err
	}
	s.SetTarget(&RemoteTarget{Node: node, Conn: conn})
	return nil
}

// Open opens a local port. The current target is disconnected first.
func (s *Shell) Open(port string, baudRate int) error {
	s.Disconnect()
	if err := s.Bus.Connect(port, baudRate); err != nil {
		return err
	}
	s.SetTarget(&LocalTarget{Bus: s.Bus})
	return nil
}

// SetTarget closes the current target and switches to t.
func (s *Shell) SetTarget(t Target) {
	s.Disconnect()
	s.Target = t
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", t.Name()))
}

// Disconnect disconnects current target.
func (s *Shell) Disconnect() {
	switch t := s.Target.(type) {
	case *RemoteTarget:
		t.Conn.Close()
	case *LocalTarget:
		if err := t.Bus.Disconnect(); err != nil {
			log.Println(err)
		}
	}
	s.Target = nil
	s.Shell.SetPrompt(unconnectedPrompt)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Disconnect()
	if s.AutoConnect && s.Config.Node != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Node)
		}
		if err := s.Connect(s.Config.Node); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Node, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DiscoverCmd discovers nodes.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.DiscoverNodes()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(infoList) == 0 {
					// in case infoList is nil, make it empty slice.
					infoList = []comm.NodeInfo{}
				}
				s.Print(c, infoList)
				return
			}
			if len(infoList) == 0 {
				c.Println("No nodes found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a remote node.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[ID|URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var node string
			if len(c.Args) > 0 {
				node = c.Args[0]
			} else {
				info, err := s.SelectNode()
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no node discovered"))
					return
				}
				node = info.Ref.ID
			}
			if err := s.Connect(node); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current target.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main(dialer sbus.Dialer) {
	flag.Parse()
	New(NewConfig(), dialer).WithAutoConnect(true).Run(flag.Args()...)
}
