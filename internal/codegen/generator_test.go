package codegen_test

import (
	"strings"
	"testing"

	"github.com/jeweledtech/bare-metal-forth/internal/codegen"
)

func TestGeneratePipeline(t *testing.T) {
	out := codegen.Generate(codegen.Input{
		Meta: codegen.ModuleMeta{
			Vocabulary:   "PIPELINE-TEST",
			Category:     "hardware",
			SourceType:   "driver",
			SourceBinary: "fixture.sys",
			Confidence:   "high",
		},
		Dependencies: []codegen.Dependency{
			{Vocabulary: "HARDWARE", Words: []string{"C@-PORT", "C!-PORT"}},
		},
		PortOffsets: []uint16{0x60, 0x61},
		Functions: []codegen.Function{
			{
				Name:    "func_1000",
				Address: 0x1000,
				PortOps: []codegen.PortOp{
					{Offset: 0x60, Size: 1, IsWrite: false},
					{Offset: 0x61, Size: 1, IsWrite: true},
				},
			},
		},
	})

	checks := []string{
		"CATALOG:",
		"MARKER --PIPELINE-TEST--",
		"VOCABULARY PIPELINE-TEST",
		"HEX",
		"REQUIRES: HARDWARE ( C@-PORT C!-PORT )",
		"VARIABLE",
		"60 CONSTANT REG-60",
		"61 CONSTANT REG-61",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("generated output missing %q\n---\n%s", want, out)
		}
	}

	trimmed := strings.TrimRight(out, "\n")
	if !strings.HasSuffix(trimmed, "FORTH DEFINITIONS\nDECIMAL") {
		t.Errorf("generated output does not end with the expected footer:\n%s", out)
	}
}

func TestGenerateZeroPortFunctionIsStub(t *testing.T) {
	out := codegen.Generate(codegen.Input{
		Meta: codegen.ModuleMeta{Vocabulary: "EMPTY-TEST"},
		Functions: []codegen.Function{
			{Name: "func_2000", Address: 0x2000},
		},
	})
	if !strings.Contains(out, "func_2000") || !strings.Contains(out, "0x2000") {
		t.Errorf("stub function missing name/address comment:\n%s", out)
	}
	if strings.Contains(out, "VARIABLE") {
		t.Errorf("no port ops anywhere should omit the base/accessor block:\n%s", out)
	}
}

func TestGenerateEmptyPortOffsetsOmitsConstants(t *testing.T) {
	out := codegen.Generate(codegen.Input{Meta: codegen.ModuleMeta{Vocabulary: "NOPORTS"}})
	if strings.Contains(out, "CONSTANT") {
		t.Errorf("empty port offset list should produce no CONSTANT lines:\n%s", out)
	}
}

func TestPortRangeDescription(t *testing.T) {
	if got := codegen.PortRangeDescription(0x60, 1); got != "0x60" {
		t.Errorf("PortRangeDescription(0x60,1) = %q, want 0x60", got)
	}
	if got := codegen.PortRangeDescription(0x60, 4); got != "0x60-0x63" {
		t.Errorf("PortRangeDescription(0x60,4) = %q, want 0x60-0x63", got)
	}
}

func TestGeneratePollLoopFunction(t *testing.T) {
	out := codegen.Generate(codegen.Input{
		Meta: codegen.ModuleMeta{Vocabulary: "POLL-TEST"},
		Functions: []codegen.Function{
			{
				Name:    "wait_ready",
				Address: 0x1000,
				PollLoop: &codegen.PollLoop{
					Port: 0x60, Mask: 0x80, Expected: 0x80, TimeoutUS: 10000,
				},
			},
		},
	})
	checks := []string{
		": wait_ready ( -- flag )",
		"2710 0 DO",
		"60 C@-PORT 80 AND 80 = IF",
		"TRUE UNLOOP EXIT",
		"1 US-DELAY",
		"LOOP",
		"FALSE",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("poll-loop output missing %q\n---\n%s", want, out)
		}
	}
}

func TestGenerateInitSequenceFunction(t *testing.T) {
	out := codegen.Generate(codegen.Input{
		Meta: codegen.ModuleMeta{Vocabulary: "INIT-TEST"},
		Functions: []codegen.Function{
			{
				Name:    "configure",
				Address: 0x2000,
				InitSequence: []codegen.InitStep{
					{Port: 0x64, Value: 0x03},
					{Port: 0x65, Value: 0x05},
				},
			},
		},
	})
	checks := []string{
		": configure ( -- )",
		"3 64 C!-PORT",
		"5 65 C!-PORT",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("init-sequence output missing %q\n---\n%s", want, out)
		}
	}
}

func TestGeneratePollLoopTakesPriorityOverPortOps(t *testing.T) {
	out := codegen.Generate(codegen.Input{
		Meta: codegen.ModuleMeta{Vocabulary: "PRIORITY-TEST"},
		Functions: []codegen.Function{
			{
				Name:     "f",
				PortOps:  []codegen.PortOp{{Offset: 0x10, Size: 1, IsWrite: false}},
				PollLoop: &codegen.PollLoop{Port: 0x10, Mask: 0x01, Expected: 0x01, TimeoutUS: 1},
			},
		},
	})
	if strings.Contains(out, "( -- )") {
		t.Errorf("a recognized poll loop should render the ( -- flag ) stack comment, not the flat-function form:\n%s", out)
	}
}

func TestSizeSuffixMapping(t *testing.T) {
	out := codegen.Generate(codegen.Input{
		Meta:        codegen.ModuleMeta{Vocabulary: "SIZES"},
		PortOffsets: []uint16{0x10},
		Functions: []codegen.Function{
			{Name: "f", PortOps: []codegen.PortOp{
				{Offset: 0x10, Size: 2, IsWrite: false},
				{Offset: 0x10, Size: 4, IsWrite: true},
			}},
		},
	})
	if !strings.Contains(out, "W@-PORT") {
		t.Errorf("16-bit read should use W@-PORT:\n%s", out)
	}
	if !strings.Contains(out, "!-PORT") {
		t.Errorf("32-bit write should use !-PORT:\n%s", out)
	}
}
