package machine

import (
	"log"

	"github.com/pkg/errors"
)

// ErrIllegalInstruction is returned in strict mode for an unrecognized
// opcode or (funct3, funct7) combination. In non-strict mode (the default,
// matching the source) such instructions are silently no-ops.
var ErrIllegalInstruction = errors.New("illegal instruction")

// ErrHalted is returned by Step once the CPU has halted (ebreak with
// HaltOnEbreak set). Calling Step again after this is a programming error.
var ErrHalted = errors.New("cpu halted")

// CPU is the Executor: it owns the architectural state (register file, PC)
// and a Memory to read/write/fetch through, and applies the effect of one
// decoded instruction per Step call.
type CPU struct {
	Regs RegisterFile
	PC   uint32
	Mem  *Memory

	// Strict turns unknown opcode/funct combinations into ErrIllegalInstruction
	// instead of silently no-op'ing them.
	Strict bool

	// LegacyBranchPC reproduces the source's documented bug (spec.md §9):
	// branch/jal/auipc offsets computed against the post-increment PC
	// instead of the instruction's own address. Default false.
	LegacyBranchPC bool

	// HaltOnEbreak halts the run loop on ebreak, per spec.md §6's
	// recommended test termination signal. Default true.
	HaltOnEbreak bool

	Halted bool

	// Trace, if non-nil, receives one line per executed instruction.
	Trace *log.Logger
}

// Step fetches the instruction at PC through the instruction cache,
// advances PC by 4, decodes, and executes — branches/jumps compute their
// target against the pre-advance PC (the instruction's own address) unless
// LegacyBranchPC is set.
func (c *CPU) Step() error {
	if c.Halted {
		return ErrHalted
	}

	instrPC := c.PC
	word := c.Mem.Fetch(instrPC)
	c.PC = instrPC + 4

	inst := Decode(word)

	if c.Trace != nil {
		c.Trace.Printf("pc=%08x word=%08x fmt=%d", instrPC, word, inst.Format)
	}

	return c.execute(inst, instrPC)
}

// branchBase returns the PC value branch/jal/auipc offsets are computed
// against: the instruction's own address by default, or the already-
// advanced PC when LegacyBranchPC reproduces the source bug.
func (c *CPU) branchBase(instrPC uint32) uint32 {
	if c.LegacyBranchPC {
		return c.PC
	}
	return instrPC
}

func (c *CPU) execute(inst Instruction, instrPC uint32) error {
	switch inst.Format {
	case FormatR:
		return c.execR(inst)
	case FormatI:
		return c.execI(inst)
	case FormatS:
		return c.execS(inst)
	case FormatB:
		return c.execB(inst, instrPC)
	case FormatU:
		return c.execU(inst, instrPC)
	case FormatJ:
		return c.execJ(inst, instrPC)
	default:
		if c.Strict {
			return errors.Wrapf(ErrIllegalInstruction, "pc=%#x word=%#x", instrPC, inst.Raw)
		}
		return nil
	}
}

func (c *CPU) execR(inst Instruction) error {
	rs1 := c.Regs.Read(inst.Rs1)
	rs2 := c.Regs.Read(inst.Rs2)

	switch {
	case inst.Funct3 == 0x0 && inst.Funct7 == 0x00: // add
		c.Regs.Write(inst.Rd, rs1+rs2)
	case inst.Funct3 == 0x0 && inst.Funct7 == 0x20: // sub
		c.Regs.Write(inst.Rd, rs1-rs2)
	case inst.Funct3 == 0x1 && inst.Funct7 == 0x00: // sll
		c.Regs.Write(inst.Rd, rs1<<(rs2&0x1F))
	case inst.Funct3 == 0x2 && inst.Funct7 == 0x00: // slt
		c.Regs.Write(inst.Rd, boolToWord(int32(rs1) < int32(rs2)))
	case inst.Funct3 == 0x3 && inst.Funct7 == 0x00: // sltu
		c.Regs.Write(inst.Rd, boolToWord(rs1 < rs2))
	case inst.Funct3 == 0x4 && inst.Funct7 == 0x00: // xor
		c.Regs.Write(inst.Rd, rs1^rs2)
	case inst.Funct3 == 0x5 && inst.Funct7 == 0x00: // srl
		c.Regs.Write(inst.Rd, rs1>>(rs2&0x1F))
	case inst.Funct3 == 0x5 && inst.Funct7 == 0x20: // sra
		c.Regs.Write(inst.Rd, uint32(int32(rs1)>>(rs2&0x1F)))
	case inst.Funct3 == 0x6 && inst.Funct7 == 0x00: // or
		c.Regs.Write(inst.Rd, rs1|rs2)
	case inst.Funct3 == 0x7 && inst.Funct7 == 0x00: // and
		c.Regs.Write(inst.Rd, rs1&rs2)
	default:
		if c.Strict {
			return errors.Wrapf(ErrIllegalInstruction, "R-type funct3=%#x funct7=%#x", inst.Funct3, inst.Funct7)
		}
	}
	return nil
}

func (c *CPU) execI(inst Instruction) error {
	switch inst.Opcode {
	case opIArith:
		return c.execIArith(inst)
	case opILoad:
		return c.execILoad(inst)
	case opIJalr:
		t := c.PC
		target := (c.Regs.Read(inst.Rs1) + uint32(inst.Imm)) &^ 1
		c.Regs.Write(inst.Rd, t)
		c.PC = target
		return nil
	case opISys:
		return c.execISystem(inst)
	default:
		if c.Strict {
			return errors.Wrapf(ErrIllegalInstruction, "I-type opcode=%#x", inst.Opcode)
		}
		return nil
	}
}

func (c *CPU) execIArith(inst Instruction) error {
	rs1 := c.Regs.Read(inst.Rs1)
	imm := uint32(inst.Imm)

	switch inst.Funct3 {
	case 0x0: // addi
		c.Regs.Write(inst.Rd, rs1+imm)
	case 0x2: // slti
		c.Regs.Write(inst.Rd, boolToWord(int32(rs1) < inst.Imm))
	case 0x3: // sltiu
		c.Regs.Write(inst.Rd, boolToWord(rs1 < imm))
	case 0x4: // xori
		c.Regs.Write(inst.Rd, rs1^imm)
	case 0x6: // ori
		c.Regs.Write(inst.Rd, rs1|imm)
	case 0x7: // andi
		c.Regs.Write(inst.Rd, rs1&imm)
	case 0x1: // slli
		if inst.Funct7 == 0x00 {
			c.Regs.Write(inst.Rd, rs1<<(inst.Shamt&0x1F))
		} else if c.Strict {
			return errors.Wrapf(ErrIllegalInstruction, "slli funct7=%#x", inst.Funct7)
		}
	case 0x5: // srli / srai, distinguished by funct7 bit 30 (0x20)
		shamt := inst.Shamt & 0x1F
		if inst.Funct7 == 0x20 {
			c.Regs.Write(inst.Rd, uint32(int32(rs1)>>shamt)) // srai
		} else {
			c.Regs.Write(inst.Rd, rs1>>shamt) // srli
		}
	default:
		if c.Strict {
			return errors.Wrapf(ErrIllegalInstruction, "I-arith funct3=%#x", inst.Funct3)
		}
	}
	return nil
}

func (c *CPU) execILoad(inst Instruction) error {
	ea := c.Regs.Read(inst.Rs1) + uint32(inst.Imm)

	switch inst.Funct3 {
	case 0x0: // lb
		v := c.Mem.ReadByte(ea)
		c.Regs.Write(inst.Rd, uint32(int32(int8(v))))
	case 0x1: // lh
		v := c.Mem.ReadHalf(ea)
		c.Regs.Write(inst.Rd, uint32(int32(int16(v))))
	case 0x2: // lw
		c.Regs.Write(inst.Rd, c.Mem.ReadWord(ea))
	case 0x4: // lbu
		c.Regs.Write(inst.Rd, uint32(c.Mem.ReadByte(ea)))
	case 0x5: // lhu
		c.Regs.Write(inst.Rd, uint32(c.Mem.ReadHalf(ea)))
	default:
		if c.Strict {
			return errors.Wrapf(ErrIllegalInstruction, "load funct3=%#x", inst.Funct3)
		}
	}
	return nil
}

// execISystem handles the reserved ecall/ebreak decode points. Neither has
// defined side effects in this spec; ebreak optionally halts the machine,
// the recommended termination signal for test firmware (spec.md §6).
func (c *CPU) execISystem(inst Instruction) error {
	funct12 := inst.Raw >> 20
	if funct12 == 0x001 && c.HaltOnEbreak { // ebreak
		c.Halted = true
	}
	// ecall (funct12 == 0x000) and ebreak without HaltOnEbreak: reserved,
	// no defined side effect.
	return nil
}

func (c *CPU) execS(inst Instruction) error {
	ea := c.Regs.Read(inst.Rs1) + uint32(inst.Imm)
	rs2 := c.Regs.Read(inst.Rs2)

	switch inst.Funct3 {
	case 0x0: // sb
		c.Mem.WriteByte(ea, byte(rs2))
	case 0x1: // sh
		c.Mem.WriteHalf(ea, uint16(rs2))
	case 0x2: // sw
		c.Mem.WriteWord(ea, rs2)
	default:
		if c.Strict {
			return errors.Wrapf(ErrIllegalInstruction, "store funct3=%#x", inst.Funct3)
		}
	}
	return nil
}

func (c *CPU) execB(inst Instruction, instrPC uint32) error {
	rs1 := c.Regs.Read(inst.Rs1)
	rs2 := c.Regs.Read(inst.Rs2)

	var taken bool
	switch inst.Funct3 {
	case 0x0: // beq
		taken = rs1 == rs2
	case 0x1: // bne
		taken = rs1 != rs2
	case 0x4: // blt
		taken = int32(rs1) < int32(rs2)
	case 0x5: // bge
		taken = int32(rs1) >= int32(rs2)
	case 0x6: // bltu
		taken = rs1 < rs2
	case 0x7: // bgeu
		taken = rs1 >= rs2
	default:
		if c.Strict {
			return errors.Wrapf(ErrIllegalInstruction, "branch funct3=%#x", inst.Funct3)
		}
		return nil
	}

	if taken {
		c.PC = c.branchBase(instrPC) + uint32(inst.Imm)
	}
	return nil
}

func (c *CPU) execU(inst Instruction, instrPC uint32) error {
	switch inst.Opcode {
	case opULui:
		c.Regs.Write(inst.Rd, uint32(inst.Imm))
	case opUAuipc:
		c.Regs.Write(inst.Rd, c.branchBase(instrPC)+uint32(inst.Imm))
	default:
		if c.Strict {
			return errors.Wrapf(ErrIllegalInstruction, "U-type opcode=%#x", inst.Opcode)
		}
	}
	return nil
}

func (c *CPU) execJ(inst Instruction, instrPC uint32) error {
	c.Regs.Write(inst.Rd, c.PC)
	c.PC = c.branchBase(instrPC) + uint32(inst.Imm)
	return nil
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
