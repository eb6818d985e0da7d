// Command ev3-client runs the operator-host broker personality: it
// transcodes inbound datagrams to line-delimited JSON on standard
// output, and JSON commands on standard input to outbound datagrams
// addressed per line.
package main

import (
	"fmt"
	"os"

	"ev3broker/cliargs"
	"ev3broker/eventloop"
	"ev3broker/logger"
	"ev3broker/node"
	"ev3broker/sourceid"
	"ev3broker/transport"
)

func main() {
	cfg, err := cliargs.Parse(cliargs.Client, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logMode, err := logger.ParseLogMode(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogDir, logMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Close()

	id, err := sourceid.New(cfg.Name)
	if err != nil {
		log.Log("client", logger.ERROR, fmt.Sprintf("generate source id: %v", err))
		os.Exit(1)
	}

	sock, err := transport.NewSocket(transport.AnyAddress(cfg.Port))
	if err != nil {
		log.Log("client", logger.ERROR, fmt.Sprintf("bind port %d: %v", cfg.Port, err))
		os.Exit(1)
	}
	defer sock.Close()

	if cliargs.IsInteractive() {
		log.Log("client", logger.INFO, fmt.Sprintf("starting as %s/%s, reading commands from terminal", id.Name(), id.Hash()))
	}

	c := node.NewClient(id, sock, log, os.Stdout, int(os.Stdin.Fd()))
	loop := eventloop.New()
	if err := c.Register(loop); err != nil {
		log.Log("client", logger.ERROR, fmt.Sprintf("register: %v", err))
		os.Exit(1)
	}

	if err := loop.Run(); err != nil {
		log.Log("client", logger.ERROR, fmt.Sprintf("event loop: %v", err))
		os.Exit(1)
	}
}
