// Command sysextract reads a Windows kernel driver (.sys) image and emits
// a stack-code vocabulary describing the hardware it touches: port I/O
// addresses, the functions that perform it, and the Windows API surface
// classified into hardware vs. scaffolding concerns.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jeweledtech/bare-metal-forth/internal/classify"
	"github.com/jeweledtech/bare-metal-forth/internal/codegen"
	"github.com/jeweledtech/bare-metal-forth/internal/config"
	"github.com/jeweledtech/bare-metal-forth/internal/pe"
	"github.com/jeweledtech/bare-metal-forth/internal/report"
	"github.com/jeweledtech/bare-metal-forth/internal/uir"
	"github.com/jeweledtech/bare-metal-forth/internal/x86"
)

func main() {
	var (
		outputFlag  = flag.String("o", "", "output vocabulary file (default: stdout)")
		vocabFlag   = flag.String("vocab", "", "stack-code vocabulary name (default: derived from input filename)")
		verboseFlag = flag.Bool("v", false, "verbose mode (show per-stage progress on stderr)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] driver.sys\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	verbose := *verboseFlag || config.FromEnv().Verbose
	log := report.New(os.Stderr, verbose)

	vocab := *vocabFlag
	if vocab == "" {
		vocab = vocabularyName(inputPath)
	}

	if err := run(inputPath, *outputFlag, vocab, log); err != nil {
		fmt.Fprintf(os.Stderr, "sysextract: %v\n", err)
		os.Exit(1)
	}
}

func run(inputPath, outputPath, vocab string, log *report.Logger) error {
	data, closeData, err := loadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}
	defer closeData()
	log.Stage("loaded %s (%d bytes)", inputPath, len(data))

	cfg := config.FromEnv()
	ctx, err := pe.LoadWithLimits(data, pe.Limits{
		MaxImportDLLs:  cfg.Limits.MaxImportDLLs,
		MaxImportFuncs: cfg.Limits.MaxImportFuncs,
		MaxExports:     cfg.Limits.MaxExports,
	})
	if err != nil {
		return fmt.Errorf("parsing PE image: %w", err)
	}
	defer ctx.Cleanup()
	log.Done("parsed PE image: %d sections, %d imports, %d exports", len(ctx.Sections), len(ctx.Imports), len(ctx.Exports))

	text := ctx.TextBytes()
	if text == nil {
		return fmt.Errorf("no executable section found")
	}

	entries := entryPoints(ctx)
	log.Stage("decoding %d entry point(s) in .text (%d bytes)", len(entries), len(text))

	textEnd := int(ctx.TextSection.RawOffset + ctx.TextSection.RawSize)

	var lifted []classify.LiftedFunction
	for _, e := range entries {
		offset, ok := ctx.RVAToOffset(uint32(e.address - uint64(ctx.ImageBase)))
		if !ok || int(offset) >= textEnd {
			continue
		}
		decoded := x86.DecodeRange(data[:textEnd], int(offset), e.address)
		fn := uir.Lift(decoded, e.address)
		lifted = append(lifted, classify.LiftedFunction{
			EntryAddress: e.address,
			ExportName:   e.name,
			Function:     fn,
		})
	}
	log.Done("lifted %d function(s)", len(lifted))

	classifiedImports := classify.ClassifyImports(ctx.Imports)
	result := classify.AnalyzeFunctions(lifted)
	log.Done("classified %d hardware function(s), %d filtered", result.HWFunctionCount, result.FilteredCount)
	if log.Verbose {
		classify.WriteReport(os.Stderr, classifiedImports, result)
	}

	out := codegen.Generate(buildCodegenInput(vocab, inputPath, result, lifted))

	if outputPath == "" {
		_, err := fmt.Print(out)
		return err
	}
	if err := os.WriteFile(outputPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	log.Done("wrote vocabulary to %s", outputPath)
	return nil
}

type entryPoint struct {
	address uint64
	name    string
}

// entryPoints collects every address worth lifting as its own function:
// the image entry point (if any) and every export, named or ordinal-only
// (an unnamed export gets a display name synthesized from its address). Duplicate
// addresses are not merged; a function reachable by more than one name
// is lifted once per name so both display names survive classification.
func entryPoints(ctx *pe.Context) []entryPoint {
	var out []entryPoint
	if ctx.EntryPointRVA != 0 {
		out = append(out, entryPoint{address: uint64(ctx.ImageBase) + uint64(ctx.EntryPointRVA), name: "DriverEntry"})
	}
	for _, exp := range ctx.Exports {
		out = append(out, entryPoint{address: uint64(ctx.ImageBase) + uint64(exp.RVA), name: exp.Name})
	}
	return out
}

func buildCodegenInput(vocab, inputPath string, result classify.Result, lifted []classify.LiftedFunction) codegen.Input {
	var portOffsets []uint16
	seen := map[uint16]bool{}
	var functions []codegen.Function
	hasPortIO := false

	for i, fn := range result.Functions {
		ops := portOpsOf(lifted[i].Function)
		for _, op := range ops {
			if !seen[op.Offset] {
				seen[op.Offset] = true
				portOffsets = append(portOffsets, op.Offset)
			}
		}
		if fn.PollLoop != nil && !seen[fn.PollLoop.Port] {
			seen[fn.PollLoop.Port] = true
			portOffsets = append(portOffsets, fn.PollLoop.Port)
		}
		for _, step := range fn.InitSequence {
			if !seen[step.Port] {
				seen[step.Port] = true
				portOffsets = append(portOffsets, step.Port)
			}
		}
		functions = append(functions, codegen.Function{
			Name:         sanitizeWordName(fn.DisplayName),
			Address:      fn.Address,
			PortOps:      ops,
			PollLoop:     pollLoopOf(fn.PollLoop),
			InitSequence: initSequenceOf(fn.InitSequence),
		})
		if fn.IsHardware {
			hasPortIO = true
		}
	}

	var deps []codegen.Dependency
	if hasPortIO {
		deps = append(deps, codegen.Dependency{Vocabulary: "HARDWARE", Words: []string{"C@-PORT", "C!-PORT", "W@-PORT", "W!-PORT", "@-PORT", "!-PORT"}})
	}

	confidence := "low"
	if result.HWFunctionCount > 0 {
		confidence = "high"
	}

	return codegen.Input{
		Meta: codegen.ModuleMeta{
			Vocabulary:   vocab,
			Category:     "hardware",
			SourceType:   "driver",
			SourceBinary: inputPath,
			Confidence:   confidence,
		},
		Dependencies: deps,
		Functions:    functions,
		PortOffsets:  portOffsets,
	}
}

// portOpsOf walks every block in fn and collects its port accesses in
// instruction order. Accesses sourced from the DX register rather than a
// fixed immediate have no static offset to render as a CONSTANT and are
// omitted; the function's display word still shows a stub comment.
func portOpsOf(fn *uir.Function) []codegen.PortOp {
	var ops []codegen.PortOp
	for _, block := range fn.Blocks {
		for _, inst := range block.Instructions {
			switch inst.Opcode {
			case uir.OpPortIn:
				if !inst.PortFromDX {
					ops = append(ops, codegen.PortOp{Offset: inst.Port, Size: inst.Size, IsWrite: false})
				}
			case uir.OpPortOut:
				if !inst.PortFromDX {
					ops = append(ops, codegen.PortOp{Offset: inst.Port, Size: inst.Size, IsWrite: true})
				}
			}
		}
	}
	return ops
}

func pollLoopOf(p *classify.PollPattern) *codegen.PollLoop {
	if p == nil {
		return nil
	}
	return &codegen.PollLoop{Port: p.Port, Mask: p.Mask, Expected: p.Expected, TimeoutUS: p.TimeoutUS}
}

func initSequenceOf(steps []classify.InitStep) []codegen.InitStep {
	if len(steps) == 0 {
		return nil
	}
	out := make([]codegen.InitStep, len(steps))
	for i, s := range steps {
		out[i] = codegen.InitStep{Port: s.Port, Value: s.Value}
	}
	return out
}

func vocabularyName(inputPath string) string {
	base := inputPath
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' || base[i] == '\\' {
			base = base[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			base = base[:i]
			break
		}
	}
	out := make([]byte, 0, len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, byte(r-'a'+'A'))
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, byte(r))
		default:
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "DRIVER"
	}
	return string(out)
}

func sanitizeWordName(name string) string {
	if name == "" {
		return "UNKNOWN"
	}
	return name
}
