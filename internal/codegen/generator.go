package codegen

import (
	"fmt"
	"strings"
)

// Generate renders in to a complete stack-code source document.
func Generate(in Input) string {
	var b strings.Builder
	writeCatalogHeader(&b, in)
	writeMarker(&b, in.Meta.Vocabulary)
	writeVocabularyPreamble(&b, in.Meta.Vocabulary)
	writeRegisterConstants(&b, in.PortOffsets)
	hasPortOps := false
	for _, fn := range in.Functions {
		if len(fn.PortOps) > 0 {
			hasPortOps = true
			break
		}
	}
	if hasPortOps {
		writeBaseAndAccessors(&b, in.Meta.Vocabulary)
	}
	writeFunctions(&b, in.Functions)
	writeFooter(&b)
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func writeCatalogHeader(b *strings.Builder, in Input) {
	fmt.Fprintf(b, "\\ CATALOG: %s\n", orNone(in.Meta.Vocabulary))
	fmt.Fprintf(b, "\\ CATEGORY: %s\n", orNone(in.Meta.Category))
	fmt.Fprintf(b, "\\ SOURCE: %s\n", orNone(in.Meta.SourceType))
	fmt.Fprintf(b, "\\ SOURCE-BINARY: %s\n", orNone(in.Meta.SourceBinary))
	fmt.Fprintf(b, "\\ VENDOR-ID: %s\n", orNone(in.Meta.VendorID))
	fmt.Fprintf(b, "\\ DEVICE-ID: %s\n", orNone(in.Meta.DeviceID))
	fmt.Fprintf(b, "\\ PORTS: %s\n", orNone(PortRangeDescriptionFromOffsets(in.PortOffsets)))
	fmt.Fprintf(b, "\\ MMIO: %s\n", orNone(in.Meta.MMIO))
	fmt.Fprintf(b, "\\ CONFIDENCE: %s\n", orNone(in.Meta.Confidence))
	for _, dep := range in.Dependencies {
		fmt.Fprintf(b, "\\ REQUIRES: %s ( %s )\n", dep.Vocabulary, strings.Join(dep.Words, " "))
	}
}

// writeMarker emits the module's dictionary marker, grounded on
// drv_generate_header's "MARKER --name--" line: a single forgettable word
// that, when executed, erases this module and everything defined after it —
// the Forth-dialect idiom for making a module reloadable.
func writeMarker(b *strings.Builder, vocab string) {
	fmt.Fprintf(b, "MARKER --%s--\n", orNone(vocab))
}

func writeVocabularyPreamble(b *strings.Builder, vocab string) {
	fmt.Fprintf(b, "VOCABULARY %s\n", vocab)
	fmt.Fprintf(b, "%s DEFINITIONS\n", vocab)
	b.WriteString("HEX\n")
}

func writeRegisterConstants(b *strings.Builder, offsets []uint16) {
	for _, off := range offsets {
		fmt.Fprintf(b, "%X CONSTANT REG-%X\n", off, off)
	}
}

func writeBaseAndAccessors(b *strings.Builder, vocab string) {
	fmt.Fprintf(b, "VARIABLE %s-BASE\n", vocab)
	fmt.Fprintf(b, ": %s-REG ( offset -- port ) %s-BASE @ + ;\n", vocab, vocab)
	fmt.Fprintf(b, ": %s@ ( offset -- byte ) %s-REG C@-PORT ;\n", vocab, vocab)
	fmt.Fprintf(b, ": %s! ( byte offset -- ) %s-REG C!-PORT ;\n", vocab, vocab)
}

func writeFunctions(b *strings.Builder, functions []Function) {
	for _, fn := range functions {
		switch {
		case fn.PollLoop != nil:
			writePollLoopFunction(b, fn)
		case len(fn.InitSequence) > 0:
			writeInitSequenceFunction(b, fn)
		default:
			fmt.Fprintf(b, ": %s ( -- )\n", fn.Name)
			switch len(fn.PortOps) {
			case 0:
				fmt.Fprintf(b, "  \\ no port operations, original address 0x%X\n", fn.Address)
			default:
				for _, op := range fn.PortOps {
					writePortOpLine(b, op)
				}
			}
			b.WriteString(";\n")
		}
	}
}

// writePollLoopFunction renders a recognized status-register wait loop,
// grounded on drv_gen_poll_loop: a bounded DO LOOP that reads the port,
// masks and compares the result, and exits early with a success flag, or
// falls through to a timeout flag once the loop runs out.
func writePollLoopFunction(b *strings.Builder, fn Function) {
	p := fn.PollLoop
	fmt.Fprintf(b, ": %s ( -- flag )  \\ flag: true=success, false=timeout, original address 0x%X\n", fn.Name, fn.Address)
	fmt.Fprintf(b, "  %X 0 DO\n", p.TimeoutUS)
	fmt.Fprintf(b, "    %X C@-PORT %X AND %X = IF\n", p.Port, p.Mask, p.Expected)
	b.WriteString("      TRUE UNLOOP EXIT\n")
	b.WriteString("    THEN\n")
	b.WriteString("    1 US-DELAY\n")
	b.WriteString("  LOOP\n")
	b.WriteString("  FALSE\n")
	b.WriteString(";\n")
}

// writeInitSequenceFunction renders a recognized flat hardware
// initialization routine, grounded on drv_gen_init_sequence: one immediate
// write per recognized step, in original program order.
func writeInitSequenceFunction(b *strings.Builder, fn Function) {
	fmt.Fprintf(b, ": %s ( -- )  \\ original address 0x%X\n", fn.Name, fn.Address)
	for _, step := range fn.InitSequence {
		fmt.Fprintf(b, "  %X %X C!-PORT\n", step.Value, step.Port)
	}
	b.WriteString(";\n")
}

func writePortOpLine(b *strings.Builder, op PortOp) {
	readWord, writeWord := sizeSuffixWords(op.Size)
	word := readWord
	if op.IsWrite {
		word = writeWord
	}
	fmt.Fprintf(b, "  %X %s\n", op.Offset, word)
}

// sizeSuffixWords maps a port operation's size in bytes to its accessor
// word pair. Any size other than 1, 2, or 4 falls back to the byte form,
// the conservative choice.
func sizeSuffixWords(size int) (read, write string) {
	switch size {
	case 2:
		return "W@-PORT", "W!-PORT"
	case 4:
		return "@-PORT", "!-PORT"
	default:
		return "C@-PORT", "C!-PORT"
	}
}

func writeFooter(b *strings.Builder) {
	b.WriteString("FORTH DEFINITIONS\n")
	b.WriteString("DECIMAL\n")
}

// PortRangeDescription renders a base port and register count as
// "0x<hex>" for count == 1, or "0x<base>-0x<base+count-1>" otherwise.
func PortRangeDescription(base uint16, count int) string {
	if count <= 1 {
		return fmt.Sprintf("0x%X", base)
	}
	return fmt.Sprintf("0x%X-0x%X", base, int(base)+count-1)
}

// PortRangeDescriptionFromOffsets derives a description from a deduplicated
// offset list. An empty list renders as the empty string (which the caller
// maps to "none").
func PortRangeDescriptionFromOffsets(offsets []uint16) string {
	if len(offsets) == 0 {
		return ""
	}
	lo, hi := offsets[0], offsets[0]
	for _, o := range offsets[1:] {
		if o < lo {
			lo = o
		}
		if o > hi {
			hi = o
		}
	}
	if lo == hi {
		return PortRangeDescription(lo, 1)
	}
	return fmt.Sprintf("0x%X-0x%X", lo, hi)
}
