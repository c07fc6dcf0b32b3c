package machine

// Format names the six RV32I instruction encodings.
type Format int

const (
	FormatUnknown Format = iota
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

// Primary opcodes, bits [6:0] of the instruction word.
const (
	opR      = 0b0110011 // add, sub, sll, slt, sltu, xor, srl, sra, or, and
	opIArith = 0b0010011 // addi, slti, sltiu, xori, ori, andi, slli, srli, srai
	opILoad  = 0b0000011 // lb, lh, lw, lbu, lhu
	opIJalr  = 0b1100111 // jalr
	opISys   = 0b1110011 // ecall, ebreak (reserved)
	opS      = 0b0100011 // sb, sh, sw
	opB      = 0b1100011 // beq, bne, blt, bge, bltu, bgeu
	opULui   = 0b0110111 // lui
	opUAuipc = 0b0010111 // auipc
	opJ      = 0b1101111 // jal
)

// Instruction is the decoded shape of one 32-bit word: its format, the raw
// opcode/funct bits needed to select a handler, and every field that
// format's encoding defines.
type Instruction struct {
	Raw    uint32
	Opcode uint8
	Format Format

	Rd, Rs1, Rs2   uint8
	Funct3         uint8
	Funct7         uint8
	Imm            int32 // sign-extended, except where the executor treats it as unsigned
	Shamt          uint8 // shift amount for slli/srli/srai
}

func bits(word uint32, hi, lo uint) uint32 {
	return (word >> lo) & ((1 << (hi - lo + 1)) - 1)
}

func signExtend(v uint32, signBit uint) int32 {
	shift := 31 - signBit
	return int32(v<<shift) >> shift
}

// Decode classifies word by its primary opcode and extracts every field
// that format's encoding defines, per spec.md §4.E.
func Decode(word uint32) Instruction {
	opcode := uint8(bits(word, 6, 0))
	inst := Instruction{Raw: word, Opcode: opcode}

	switch opcode {
	case opR:
		inst.Format = FormatR
		inst.Rd = uint8(bits(word, 11, 7))
		inst.Funct3 = uint8(bits(word, 14, 12))
		inst.Rs1 = uint8(bits(word, 19, 15))
		inst.Rs2 = uint8(bits(word, 24, 20))
		inst.Funct7 = uint8(bits(word, 31, 25))

	case opIArith, opILoad, opIJalr, opISys:
		inst.Format = FormatI
		inst.Rd = uint8(bits(word, 11, 7))
		inst.Funct3 = uint8(bits(word, 14, 12))
		inst.Rs1 = uint8(bits(word, 19, 15))
		imm12 := bits(word, 31, 20)
		inst.Imm = signExtend(imm12, 11)
		inst.Shamt = uint8(bits(word, 24, 20))
		inst.Funct7 = uint8(bits(word, 31, 25)) // distinguishes srli(0x00)/srai(0x20)

	case opS:
		inst.Format = FormatS
		inst.Funct3 = uint8(bits(word, 14, 12))
		inst.Rs1 = uint8(bits(word, 19, 15))
		inst.Rs2 = uint8(bits(word, 24, 20))
		immHi := bits(word, 31, 25)
		immLo := bits(word, 11, 7)
		inst.Imm = signExtend((immHi<<5)|immLo, 11)

	case opB:
		inst.Format = FormatB
		inst.Funct3 = uint8(bits(word, 14, 12))
		inst.Rs1 = uint8(bits(word, 19, 15))
		inst.Rs2 = uint8(bits(word, 24, 20))
		imm := (bits(word, 31, 31) << 12) |
			(bits(word, 7, 7) << 11) |
			(bits(word, 30, 25) << 5) |
			(bits(word, 11, 8) << 1)
		inst.Imm = signExtend(imm, 12)

	case opULui, opUAuipc:
		inst.Format = FormatU
		inst.Rd = uint8(bits(word, 11, 7))
		inst.Imm = int32(bits(word, 31, 12) << 12)

	case opJ:
		inst.Format = FormatJ
		inst.Rd = uint8(bits(word, 11, 7))
		imm := (bits(word, 31, 31) << 20) |
			(bits(word, 19, 12) << 12) |
			(bits(word, 20, 20) << 11) |
			(bits(word, 30, 21) << 1)
		inst.Imm = signExtend(imm, 20)

	default:
		inst.Format = FormatUnknown
	}

	return inst
}
