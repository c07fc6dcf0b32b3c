package machine

import "fmt"

// mnemonic looks up the assembly name for a decoded instruction. It is a
// supplemented feature grounded on the teacher's Disassemble (nes/
// cpuDisassembler.go): a readable-name lookup for the debug monitor, not an
// architectural component — it implements no new behavior, only names what
// the executor already does.
func mnemonic(inst Instruction) string {
	switch inst.Format {
	case FormatR:
		return rMnemonic(inst)
	case FormatI:
		return iMnemonic(inst)
	case FormatS:
		switch inst.Funct3 {
		case 0x0:
			return "sb"
		case 0x1:
			return "sh"
		case 0x2:
			return "sw"
		}
	case FormatB:
		switch inst.Funct3 {
		case 0x0:
			return "beq"
		case 0x1:
			return "bne"
		case 0x4:
			return "blt"
		case 0x5:
			return "bge"
		case 0x6:
			return "bltu"
		case 0x7:
			return "bgeu"
		}
	case FormatU:
		if inst.Opcode == opULui {
			return "lui"
		}
		return "auipc"
	case FormatJ:
		return "jal"
	}
	return "???"
}

func rMnemonic(inst Instruction) string {
	switch {
	case inst.Funct3 == 0x0 && inst.Funct7 == 0x00:
		return "add"
	case inst.Funct3 == 0x0 && inst.Funct7 == 0x20:
		return "sub"
	case inst.Funct3 == 0x1:
		return "sll"
	case inst.Funct3 == 0x2:
		return "slt"
	case inst.Funct3 == 0x3:
		return "sltu"
	case inst.Funct3 == 0x4:
		return "xor"
	case inst.Funct3 == 0x5 && inst.Funct7 == 0x00:
		return "srl"
	case inst.Funct3 == 0x5 && inst.Funct7 == 0x20:
		return "sra"
	case inst.Funct3 == 0x6:
		return "or"
	case inst.Funct3 == 0x7:
		return "and"
	}
	return "???"
}

func iMnemonic(inst Instruction) string {
	switch inst.Opcode {
	case opIJalr:
		return "jalr"
	case opISys:
		if inst.Raw>>20 == 0x001 {
			return "ebreak"
		}
		return "ecall"
	case opILoad:
		switch inst.Funct3 {
		case 0x0:
			return "lb"
		case 0x1:
			return "lh"
		case 0x2:
			return "lw"
		case 0x4:
			return "lbu"
		case 0x5:
			return "lhu"
		}
	case opIArith:
		switch inst.Funct3 {
		case 0x0:
			return "addi"
		case 0x1:
			return "slli"
		case 0x2:
			return "slti"
		case 0x3:
			return "sltiu"
		case 0x4:
			return "xori"
		case 0x5:
			if inst.Funct7 == 0x20 {
				return "srai"
			}
			return "srli"
		case 0x6:
			return "ori"
		case 0x7:
			return "andi"
		}
	}
	return "???"
}

// Disassemble renders inst as a single line of "mnemonic rd, rs1, rs2/imm"
// text, the way the teacher's Disassemble renders one 6502 line.
func Disassemble(inst Instruction) string {
	name := mnemonic(inst)
	switch inst.Format {
	case FormatR:
		return fmt.Sprintf("%s x%d, x%d, x%d", name, inst.Rd, inst.Rs1, inst.Rs2)
	case FormatI:
		if inst.Opcode == opISys {
			return name
		}
		return fmt.Sprintf("%s x%d, x%d, %d", name, inst.Rd, inst.Rs1, inst.Imm)
	case FormatS:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, inst.Rs2, inst.Imm, inst.Rs1)
	case FormatB:
		return fmt.Sprintf("%s x%d, x%d, %d", name, inst.Rs1, inst.Rs2, inst.Imm)
	case FormatU:
		return fmt.Sprintf("%s x%d, %#x", name, inst.Rd, uint32(inst.Imm)>>12)
	case FormatJ:
		return fmt.Sprintf("%s x%d, %d", name, inst.Rd, inst.Imm)
	}
	return fmt.Sprintf("??? (%#08x)", inst.Raw)
}
