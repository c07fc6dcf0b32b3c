package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v2"

	"github.com/mjfischer/rv32emu/machine"
)

func main() {
	app := &cli.App{
		Name:    "rv32emu",
		Usage:   "RV32I emulator with a two-level set-associative cache hierarchy",
		Version: "v0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "firmware",
				Aliases: []string{"f"},
				Usage:   "firmware image to load at power-on",
				Value:   "bios.sto",
			},
			&cli.Uint64Flag{
				Name:  "ram-size",
				Usage: "main memory size in bytes",
				Value: machine.DefaultRAMSize,
			},
			&cli.Uint64Flag{
				Name:  "max-cycles",
				Usage: "stop after this many instructions (0 = unbounded)",
				Value: 0,
			},
			&cli.BoolFlag{
				Name:  "halt-on-ebreak",
				Usage: "halt the machine on ebreak, the recommended test termination signal",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "fault on illegal instructions instead of silently no-op'ing them",
			},
			&cli.BoolFlag{
				Name:  "legacy-branch-pc",
				Usage: "reproduce the source's branch/jal/auipc PC-advance bug instead of ISA-faithful offsets",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "log every fetched instruction",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "launch the interactive terminal debug monitor instead of free-running",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run(c *cli.Context) error {
	firmwarePath := c.String("firmware")

	f, err := os.Open(firmwarePath)
	if err != nil {
		return errors.Wrapf(err, "FATAL: BIOS chip not found (%s)", firmwarePath)
	}
	defer f.Close()

	var trace *log.Logger
	if c.Bool("trace") {
		trace = log.New(os.Stderr, "trace: ", log.LstdFlags)
	}

	haltOnEbreak := c.Bool("halt-on-ebreak")

	m := machine.New(machine.Options{
		RAMSize:        uint32(c.Uint64("ram-size")),
		Strict:         c.Bool("strict"),
		LegacyBranchPC: c.Bool("legacy-branch-pc"),
		HaltOnEbreak:   &haltOnEbreak,
		Trace:          trace,
	})

	if err := m.Boot(f); err != nil {
		return errors.Wrap(err, "booting machine")
	}

	if c.Bool("debug") {
		return machine.RunDebugMonitor(m)
	}

	if err := m.Run(c.Uint64("max-cycles")); err != nil {
		return errors.Wrap(err, "running machine")
	}

	fmt.Println("halted; final PC:", m.CPU.PC)
	return nil
}
