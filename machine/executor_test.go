package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestCPU() *CPU {
	ram := NewRAM(1 << 16)
	return &CPU{Mem: NewMemory(ram), HaltOnEbreak: true}
}

func TestExecAddAndSub(t *testing.T) {
	c := newTestCPU()
	c.Regs.Write(1, 10)
	c.Regs.Write(2, 3)

	assert.NoError(t, c.execR(Instruction{Rd: 3, Rs1: 1, Rs2: 2, Funct3: 0x0, Funct7: 0x00}))
	assert.EqualValues(t, 13, c.Regs.Read(3))

	assert.NoError(t, c.execR(Instruction{Rd: 4, Rs1: 1, Rs2: 2, Funct3: 0x0, Funct7: 0x20}))
	assert.EqualValues(t, 7, c.Regs.Read(4))
}

func TestExecRDestX0IsDiscarded(t *testing.T) {
	c := newTestCPU()
	c.Regs.Write(1, 5)
	c.Regs.Write(2, 5)

	assert.NoError(t, c.execR(Instruction{Rd: 0, Rs1: 1, Rs2: 2, Funct3: 0x0, Funct7: 0x00}))
	assert.EqualValues(t, 0, c.Regs.Read(0))
}

func TestExecSltSigned(t *testing.T) {
	c := newTestCPU()
	c.Regs.Write(1, 0xFFFFFFFF) // -1
	c.Regs.Write(2, 1)

	assert.NoError(t, c.execR(Instruction{Rd: 3, Rs1: 1, Rs2: 2, Funct3: 0x2, Funct7: 0x00}))
	assert.EqualValues(t, 1, c.Regs.Read(3), "-1 < 1 signed")

	assert.NoError(t, c.execR(Instruction{Rd: 4, Rs1: 1, Rs2: 2, Funct3: 0x3, Funct7: 0x00}))
	assert.EqualValues(t, 0, c.Regs.Read(4), "0xFFFFFFFF is not < 1 unsigned")
}

func TestExecAddiNegativeImm(t *testing.T) {
	c := newTestCPU()
	c.Regs.Write(1, 5)

	assert.NoError(t, c.execIArith(Instruction{Rd: 2, Rs1: 1, Funct3: 0x0, Imm: -2}))
	assert.EqualValues(t, 3, c.Regs.Read(2))
}

func TestExecShiftImmediates(t *testing.T) {
	c := newTestCPU()
	c.Regs.Write(1, 0x80000000)

	assert.NoError(t, c.execIArith(Instruction{Rd: 2, Rs1: 1, Funct3: 0x5, Funct7: 0x20, Shamt: 4}))
	assert.EqualValues(t, 0xF8000000, c.Regs.Read(2), "srai sign-extends")

	assert.NoError(t, c.execIArith(Instruction{Rd: 3, Rs1: 1, Funct3: 0x5, Funct7: 0x00, Shamt: 4}))
	assert.EqualValues(t, 0x08000000, c.Regs.Read(3), "srli does not sign-extend")
}

func TestExecLoadStoreRoundTrip(t *testing.T) {
	c := newTestCPU()
	c.Regs.Write(1, 0x100) // base
	c.Regs.Write(2, 0xFFFFFFF0)

	assert.NoError(t, c.execS(Instruction{Rs1: 1, Rs2: 2, Funct3: 0x2, Imm: 4})) // sw x2, 4(x1)
	assert.NoError(t, c.execILoad(Instruction{Rd: 3, Rs1: 1, Funct3: 0x2, Imm: 4}))
	assert.EqualValues(t, 0xFFFFFFF0, c.Regs.Read(3))
}

func TestExecLoadByteSignExtension(t *testing.T) {
	c := newTestCPU()
	c.Regs.Write(1, 0x200)
	c.Regs.Write(2, 0xFF) // byte -1

	assert.NoError(t, c.execS(Instruction{Rs1: 1, Rs2: 2, Funct3: 0x0, Imm: 0}))

	assert.NoError(t, c.execILoad(Instruction{Rd: 3, Rs1: 1, Funct3: 0x0, Imm: 0}))
	assert.EqualValues(t, 0xFFFFFFFF, c.Regs.Read(3), "lb sign-extends")

	assert.NoError(t, c.execILoad(Instruction{Rd: 4, Rs1: 1, Funct3: 0x4, Imm: 0}))
	assert.EqualValues(t, 0xFF, c.Regs.Read(4), "lbu zero-extends")
}

func TestExecBranchTakenUsesInstructionPC(t *testing.T) {
	c := newTestCPU()
	c.PC = 8 // post-increment PC for an instruction fetched at 4
	c.Regs.Write(1, 1)
	c.Regs.Write(2, 1)

	assert.NoError(t, c.execB(Instruction{Rs1: 1, Rs2: 2, Funct3: 0x0, Imm: 8}, 4))
	assert.EqualValues(t, 12, c.PC, "beq target = instrPC(4) + imm(8)")
}

func TestExecBranchNotTakenLeavesPCAdvanced(t *testing.T) {
	c := newTestCPU()
	c.PC = 8
	c.Regs.Write(1, 1)
	c.Regs.Write(2, 2)

	assert.NoError(t, c.execB(Instruction{Rs1: 1, Rs2: 2, Funct3: 0x0, Imm: 8}, 4))
	assert.EqualValues(t, 8, c.PC)
}

func TestExecBranchLegacyPCUsesPostIncrementBase(t *testing.T) {
	c := newTestCPU()
	c.LegacyBranchPC = true
	c.PC = 8
	c.Regs.Write(1, 1)
	c.Regs.Write(2, 1)

	assert.NoError(t, c.execB(Instruction{Rs1: 1, Rs2: 2, Funct3: 0x0, Imm: 8}, 4))
	assert.EqualValues(t, 16, c.PC, "legacy mode bases the offset on the post-increment PC")
}

func TestExecJalLinksPostIncrementPCAndJumpsFromInstructionPC(t *testing.T) {
	c := newTestCPU()
	c.PC = 4 // Step already advanced PC to instrPC+4 before calling execJ
	assert.NoError(t, c.execJ(Instruction{Rd: 1, Imm: 12}, 0))

	assert.EqualValues(t, 4, c.Regs.Read(1), "link value is the post-increment PC")
	assert.EqualValues(t, 12, c.PC, "jump target = instrPC(0) + imm(12)")
}

func TestExecJalrMasksLowBit(t *testing.T) {
	c := newTestCPU()
	c.PC = 4
	c.Regs.Write(1, 0x101) // odd target

	assert.NoError(t, c.execI(Instruction{Opcode: opIJalr, Rd: 2, Rs1: 1, Imm: 0}))
	assert.EqualValues(t, 4, c.Regs.Read(2))
	assert.EqualValues(t, 0x100, c.PC, "jalr clears bit 0 of the computed target")
}

func TestExecLuiWritesRawImmediate(t *testing.T) {
	c := newTestCPU()
	assert.NoError(t, c.execU(Instruction{Opcode: opULui, Rd: 1, Imm: 0x12345000}, 0))
	assert.EqualValues(t, 0x12345000, c.Regs.Read(1))
}

func TestExecAuipcAddsInstructionPC(t *testing.T) {
	c := newTestCPU()
	c.PC = 0x2004
	assert.NoError(t, c.execU(Instruction{Opcode: opUAuipc, Rd: 1, Imm: 0x1000}, 0x2000))
	assert.EqualValues(t, 0x3000, c.Regs.Read(1))
}

func TestStepHaltsOnEbreak(t *testing.T) {
	c := newTestCPU()
	c.Mem.ram.LoadAt(0, []byte{0x00, 0x10, 0x00, 0x73}) // ebreak

	err := c.Step()
	assert.NoError(t, err)
	assert.True(t, c.Halted)

	err = c.Step()
	assert.Equal(t, ErrHalted, err)
}

func TestStepIllegalInstructionStrictMode(t *testing.T) {
	c := newTestCPU()
	c.Strict = true
	c.Mem.ram.LoadAt(0, []byte{0xFF, 0xFF, 0xFF, 0xFF}) // not a valid opcode

	err := c.Step()
	assert.Error(t, err)
}

func TestStepIllegalInstructionNonStrictIsNoop(t *testing.T) {
	c := newTestCPU()
	c.Mem.ram.LoadAt(0, []byte{0xFF, 0xFF, 0xFF, 0xFF})

	err := c.Step()
	assert.NoError(t, err)
	assert.EqualValues(t, 4, c.PC)
}
