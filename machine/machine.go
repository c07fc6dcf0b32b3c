package machine

import (
	"io"
	"log"

	"github.com/pkg/errors"
)

// Machine is the single value owning all architectural state: RAM, both
// caches (via Memory), the register file and PC (via CPU). Re-architected
// from the source's module-level globals (spec.md §9) — there is exactly
// one of these per emulator run, and the Driver (main.go) holds it
// exclusively.
type Machine struct {
	RAM *RAM
	Mem *Memory
	CPU *CPU
}

// Options configures a Machine at construction time. Every field defaults
// to spec-faithful behavior when left zero. HaltOnEbreak is a *bool rather
// than a bool because its spec-faithful default is true: a plain bool can't
// tell "left zero" apart from an explicit false, so Options{} alone would
// silently disable the recommended ebreak termination signal.
type Options struct {
	RAMSize        uint32
	Strict         bool
	LegacyBranchPC bool
	HaltOnEbreak   *bool
	Trace          *log.Logger
}

// New builds a Machine with zeroed RAM, all-invalid caches, a zeroed
// register file, and PC = 0 — the lifecycle spec.md §3 describes before the
// loader runs.
func New(opts Options) *Machine {
	size := opts.RAMSize
	if size == 0 {
		size = DefaultRAMSize
	}
	ram := NewRAM(size)
	mem := NewMemory(ram)

	haltOnEbreak := true
	if opts.HaltOnEbreak != nil {
		haltOnEbreak = *opts.HaltOnEbreak
	}

	return &Machine{
		RAM: ram,
		Mem: mem,
		CPU: &CPU{
			Mem:            mem,
			Strict:         opts.Strict,
			LegacyBranchPC: opts.LegacyBranchPC,
			HaltOnEbreak:   haltOnEbreak,
			Trace:          opts.Trace,
		},
	}
}

// Boot loads a firmware image from r into RAM at address 0 and resets PC,
// registers, and cache state — spec.md §4.G steps 1-3. The firmware file
// handle itself is opened by the caller (main.go); Boot only consumes the
// reader.
func (m *Machine) Boot(r io.Reader) error {
	image, err := LoadFirmware(r)
	if err != nil {
		return errors.Wrap(err, "loading firmware")
	}
	m.RAM.LoadAt(0, image)

	m.CPU.PC = 0
	m.CPU.Regs = RegisterFile{}
	m.CPU.Halted = false
	m.Mem.data = NewCache(m.RAM)
	m.Mem.instr = NewCache(m.RAM)

	return nil
}

// Run drives the fetch-decode-execute loop until the CPU halts (ebreak with
// HaltOnEbreak) or maxCycles instructions have executed (0 = unbounded).
// Any executor error (only possible in Strict mode) stops the run and is
// returned to the caller.
func (m *Machine) Run(maxCycles uint64) error {
	var executed uint64
	for {
		if maxCycles != 0 && executed >= maxCycles {
			return nil
		}
		if err := m.CPU.Step(); err != nil {
			if err == ErrHalted {
				return nil
			}
			return err
		}
		executed++
		if m.CPU.Halted {
			return nil
		}
	}
}
