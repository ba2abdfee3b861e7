package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeweledtech/bare-metal-forth/internal/report"
	"github.com/jeweledtech/bare-metal-forth/internal/testfixture"
)

func TestRunEndToEndPortIODriver(t *testing.T) {
	// IN AL, 0x60 ; OUT 0x61, AL ; RET
	text := []byte{0xE4, 0x60, 0xE6, 0x61, 0xC3}
	image := testfixture.Build(testfixture.PE32{
		ImageBase: 0x10000,
		EntryRVA:  0x1000,
		Sections: []testfixture.SectionSpec{
			{Name: ".text", Characteristics: 0x60000020, Data: text},
		},
		Exports: []testfixture.ExportSpec{
			{Name: "HwReadWrite", RVA: 0x1000},
		},
	})

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "fixture.sys")
	if err := os.WriteFile(inputPath, image, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	outputPath := filepath.Join(dir, "fixture.fs")

	if err := run(inputPath, outputPath, "FIXTURE", report.New(nil, false)); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	content := string(out)

	for _, want := range []string{
		"CATALOG: FIXTURE",
		"VOCABULARY FIXTURE",
		"60 CONSTANT REG-60",
		"61 CONSTANT REG-61",
		"HwReadWrite",
		"REQUIRES: HARDWARE",
		"FORTH DEFINITIONS",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("output missing %q:\n%s", want, content)
		}
	}
}

func TestRunRejectsMissingFile(t *testing.T) {
	if err := run(filepath.Join(t.TempDir(), "missing.sys"), "", "X", report.New(nil, false)); err == nil {
		t.Fatal("expected an error for a missing input file")
	}
}

func TestVocabularyNameDerivesFromFilename(t *testing.T) {
	if got := vocabularyName("/drivers/my-device.sys"); got != "MY-DEVICE" {
		t.Errorf("vocabularyName = %q, want MY-DEVICE", got)
	}
	if got := vocabularyName(""); got != "DRIVER" {
		t.Errorf("vocabularyName(\"\") = %q, want DRIVER", got)
	}
}
