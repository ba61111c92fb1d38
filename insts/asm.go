package insts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DecodeError reports a malformed program line. It halts loading before any
// cycle runs.
type DecodeError struct {
	// Line is the 1-based source line number.
	Line int
	// Reason describes what is wrong with the line.
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// sourceLine is an instruction line kept from the first assembly pass.
type sourceLine struct {
	num  int // 1-based line number
	text string
}

// fieldSplit separates an instruction line into opcode and operand tokens.
// Commas and the parentheses of the memory operand form both act as
// separators, so "LOAD R1, 4(R2)" tokenizes as [LOAD R1 4 R2].
var fieldSplit = regexp.MustCompile(`[,\s()]+`)

// labelName matches a valid label identifier.
var labelName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Assemble parses assembly text into a Program. Each non-blank line is one
// instruction or a "label:" marker (a label may also prefix an instruction
// on the same line). Comments start with '#', ';', or "//". Branch and call
// targets may be labels or absolute instruction indices; labels are
// resolved during a first pass.
func Assemble(src string, startPC int) (*Program, error) {
	lines, labels, err := collectLines(src)
	if err != nil {
		return nil, err
	}

	prog := &Program{startPC: startPC}
	for idx, ln := range lines {
		inst, err := parseLine(ln, idx, startPC+idx, labels, startPC)
		if err != nil {
			return nil, err
		}
		prog.insts = append(prog.insts, inst)
	}
	return prog, nil
}

// collectLines strips comments, records label definitions, and returns the
// instruction lines in program order.
func collectLines(src string) ([]sourceLine, map[string]int, error) {
	var lines []sourceLine
	labels := make(map[string]int)

	for num, raw := range strings.Split(src, "\n") {
		text := stripComment(raw)

		for {
			colon := strings.Index(text, ":")
			if colon < 0 {
				break
			}
			label := strings.TrimSpace(text[:colon])
			if !labelName.MatchString(label) {
				return nil, nil, &DecodeError{
					Line:   num + 1,
					Reason: fmt.Sprintf("invalid label %q", label),
				}
			}
			canon := strings.ToUpper(label)
			if _, dup := labels[canon]; dup {
				return nil, nil, &DecodeError{
					Line:   num + 1,
					Reason: fmt.Sprintf("duplicate label %q", label),
				}
			}
			labels[canon] = len(lines)
			text = strings.TrimSpace(text[colon+1:])
		}

		if text == "" {
			continue
		}
		lines = append(lines, sourceLine{num: num + 1, text: text})
	}
	return lines, labels, nil
}

func stripComment(line string) string {
	for _, marker := range []string{"#", ";", "//"} {
		if i := strings.Index(line, marker); i >= 0 {
			line = line[:i]
		}
	}
	return strings.TrimSpace(line)
}

// parseLine decodes one instruction line.
func parseLine(ln sourceLine, index, pc int, labels map[string]int, startPC int) (Instruction, error) {
	tokens := fieldSplit.Split(strings.ToUpper(ln.text), -1)
	fields := tokens[:0]
	for _, t := range tokens {
		if t != "" {
			fields = append(fields, t)
		}
	}

	inst := Instruction{Index: index, PC: pc}
	if len(fields) == 0 {
		return inst, &DecodeError{Line: ln.num, Reason: "empty instruction"}
	}
	op, ok := map[string]Op{
		"LOAD": OpLOAD, "STORE": OpSTORE, "BEQ": OpBEQ,
		"CALL": OpCALL, "RET": OpRET,
		"ADD": OpADD, "SUB": OpSUB, "NOR": OpNOR, "MUL": OpMUL,
	}[fields[0]]
	if !ok {
		return inst, &DecodeError{
			Line:   ln.num,
			Reason: fmt.Sprintf("unknown opcode %q", fields[0]),
		}
	}
	inst.Op = op

	operands := fields[1:]
	fail := func(reason string) (Instruction, error) {
		return inst, &DecodeError{Line: ln.num, Reason: reason}
	}

	switch op {
	case OpLOAD, OpSTORE:
		// LOAD Rd, off(Rb) / STORE Rs, off(Rb)
		if len(operands) != 3 {
			return fail(fmt.Sprintf("%s expects 3 operands, got %d", op, len(operands)))
		}
		rd, err := parseReg(operands[0])
		if err != nil {
			return fail(err.Error())
		}
		off, err := parseImm(operands[1])
		if err != nil {
			return fail(err.Error())
		}
		rb, err := parseReg(operands[2])
		if err != nil {
			return fail(err.Error())
		}
		inst.Rd, inst.Imm, inst.Ra = rd, off, rb

	case OpBEQ:
		// BEQ Ra, Rb, target
		if len(operands) != 3 {
			return fail(fmt.Sprintf("BEQ expects 3 operands, got %d", len(operands)))
		}
		ra, err := parseReg(operands[0])
		if err != nil {
			return fail(err.Error())
		}
		rb, err := parseReg(operands[1])
		if err != nil {
			return fail(err.Error())
		}
		target, err := parseTarget(operands[2], labels, startPC)
		if err != nil {
			return fail(err.Error())
		}
		inst.Ra, inst.Rb, inst.Imm = ra, rb, target

	case OpCALL:
		if len(operands) != 1 {
			return fail(fmt.Sprintf("CALL expects 1 operand, got %d", len(operands)))
		}
		target, err := parseTarget(operands[0], labels, startPC)
		if err != nil {
			return fail(err.Error())
		}
		inst.Imm = target

	case OpRET:
		if len(operands) != 0 {
			return fail(fmt.Sprintf("RET expects no operands, got %d", len(operands)))
		}

	case OpADD, OpSUB, OpNOR, OpMUL:
		if len(operands) != 3 {
			return fail(fmt.Sprintf("%s expects 3 operands, got %d", op, len(operands)))
		}
		rd, err := parseReg(operands[0])
		if err != nil {
			return fail(err.Error())
		}
		ra, err := parseReg(operands[1])
		if err != nil {
			return fail(err.Error())
		}
		rb, err := parseReg(operands[2])
		if err != nil {
			return fail(err.Error())
		}
		inst.Rd, inst.Ra, inst.Rb = rd, ra, rb
	}

	return inst, nil
}

func parseReg(tok string) (uint8, error) {
	if !strings.HasPrefix(tok, "R") {
		return 0, fmt.Errorf("expected register, got %q", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		return 0, fmt.Errorf("expected register, got %q", tok)
	}
	if n < 0 || n >= NumRegs {
		return 0, fmt.Errorf("register index %d out of range [0,%d]", n, NumRegs-1)
	}
	return uint8(n), nil
}

func parseImm(tok string) (int32, error) {
	n, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("expected immediate, got %q", tok)
	}
	if n < -32768 || n > 32767 {
		return 0, fmt.Errorf("immediate %d does not fit in 16 bits", n)
	}
	return int32(n), nil
}

// parseTarget resolves a branch/call target: either a label defined in the
// program or an absolute PC value. Labels resolve to the PC of the line they
// mark. With the conventional start PC of 0, PC values and program-order
// indices coincide.
func parseTarget(tok string, labels map[string]int, startPC int) (int32, error) {
	if idx, ok := labels[tok]; ok {
		return int32(startPC + idx), nil
	}
	n, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unresolved label %q", tok)
	}
	if n < 0 || n > 65535 {
		return 0, fmt.Errorf("target %d out of range", n)
	}
	return int32(n), nil
}
