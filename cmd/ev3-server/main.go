// Command ev3-server runs the robot-side broker personality: it owns
// a set of motors, broadcasts their state over UDP, and executes
// incoming duty-cycle and reset commands.
package main

import (
	"fmt"
	"os"

	"ev3broker/cliargs"
	"ev3broker/eventloop"
	"ev3broker/logger"
	"ev3broker/motor"
	"ev3broker/node"
	"ev3broker/sourceid"
	"ev3broker/transport"
)

func main() {
	cfg, err := cliargs.Parse(cliargs.Server, os.Args[1:])
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
		log.Log("server", logger.ERROR, fmt.Sprintf("generate source id: %v", err))
		os.Exit(1)
	}
	log.Log("server", logger.INFO, fmt.Sprintf("starting as %s/%s on port %d", id.Name(), id.Hash(), cfg.Port))

	sock, err := transport.NewSocket(transport.AnyAddress(cfg.Port))
	if err != nil {
		log.Log("server", logger.ERROR, fmt.Sprintf("bind port %d: %v", cfg.Port, err))
		os.Exit(1)
	}
	defer sock.Close()

	registry := motor.NewRegistry(cfg.MotorRoot, motor.DefaultFactory)
	if err := registry.Rescan(); err != nil {
		log.Log("server", logger.WARNING, fmt.Sprintf("initial motor rescan: %v", err))
	}

	srv := node.NewServer(id, sock, cfg.Port, registry, log)
	loop := eventloop.New()
	srv.Register(loop)

	if err := loop.Run(); err != nil {
		log.Log("server", logger.ERROR, fmt.Sprintf("event loop: %v", err))
		os.Exit(1)
	}
}
