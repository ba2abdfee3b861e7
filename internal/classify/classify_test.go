package classify_test

import (
	"strings"
	"testing"

	"github.com/jeweledtech/bare-metal-forth/internal/classify"
	"github.com/jeweledtech/bare-metal-forth/internal/pe"
	"github.com/jeweledtech/bare-metal-forth/internal/uir"
	"github.com/jeweledtech/bare-metal-forth/internal/x86"
)

func TestClassifyImportPortIO(t *testing.T) {
	cat, word := classify.ClassifyImport("READ_PORT_UCHAR")
	if cat != classify.CategoryPortIO {
		t.Errorf("category = %v, want port-I/O", cat)
	}
	if word != "C@-PORT" {
		t.Errorf("translation = %q, want C@-PORT", word)
	}
}

func TestClassifyImportIRP(t *testing.T) {
	cat, word := classify.ClassifyImport("IoCompleteRequest")
	if cat != classify.CategoryIRP {
		t.Errorf("category = %v, want IRP", cat)
	}
	if word != "" {
		t.Errorf("translation = %q, want empty", word)
	}
}

func TestClassifyImportUnknown(t *testing.T) {
	cat, _ := classify.ClassifyImport("SomeRandomFunction")
	if cat != classify.CategoryUnknown {
		t.Errorf("category = %v, want unknown", cat)
	}
}

func TestClassifyIsPure(t *testing.T) {
	a, aw := classify.ClassifyImport("WRITE_PORT_ULONG")
	b, bw := classify.ClassifyImport("WRITE_PORT_ULONG")
	if a != b || aw != bw {
		t.Fatal("classifying the same name twice produced different results")
	}
}

func TestClassifyImportsPreservesDuplicates(t *testing.T) {
	imports := []pe.Import{
		{DLL: "ntoskrnl.exe", Name: "READ_PORT_UCHAR"},
		{DLL: "hal.dll", Name: "READ_PORT_UCHAR"},
	}
	out := classify.ClassifyImports(imports)
	if len(out) != 2 {
		t.Fatalf("classified %d imports, want 2", len(out))
	}
	if out[0].DLL == out[1].DLL {
		t.Fatal("expected distinct DLLs to be preserved")
	}
}

func TestAnalyzeFunctionsHardwareVerdict(t *testing.T) {
	decoded := x86.DecodeRange([]byte{0xE4, 0x60, 0xC3}, 0, 0x1000)
	fn := uir.Lift(decoded, 0x1000)

	result := classify.AnalyzeFunctions([]classify.LiftedFunction{
		{EntryAddress: 0x1000, Function: fn},
	})
	if result.HWFunctionCount != 1 {
		t.Fatalf("HWFunctionCount = %d, want 1", result.HWFunctionCount)
	}
	if result.Functions[0].DisplayName != "func_1000" {
		t.Errorf("DisplayName = %q, want func_1000", result.Functions[0].DisplayName)
	}
	if result.Functions[0].PrimaryCategory != classify.CategoryPortIO {
		t.Errorf("PrimaryCategory = %v, want port-I/O", result.Functions[0].PrimaryCategory)
	}
}

func TestAnalyzeFunctionsUsesExportName(t *testing.T) {
	decoded := x86.DecodeRange([]byte{0xC3}, 0, 0x2000)
	fn := uir.Lift(decoded, 0x2000)
	result := classify.AnalyzeFunctions([]classify.LiftedFunction{
		{EntryAddress: 0x2000, ExportName: "DriverEntry", Function: fn},
	})
	if result.Functions[0].DisplayName != "DriverEntry" {
		t.Errorf("DisplayName = %q, want DriverEntry", result.Functions[0].DisplayName)
	}
	if result.FilteredCount != 1 {
		t.Errorf("FilteredCount = %d, want 1", result.FilteredCount)
	}
}

func TestWriteReportGroupsByCategory(t *testing.T) {
	imports := classify.ClassifyImports([]pe.Import{
		{DLL: "ntoskrnl.exe", Name: "READ_PORT_UCHAR"},
		{DLL: "ntoskrnl.exe", Name: "IoCompleteRequest"},
	})
	var sb strings.Builder
	if err := classify.WriteReport(&sb, imports, classify.Result{}); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "READ_PORT_UCHAR") || !strings.Contains(out, "IoCompleteRequest") {
		t.Errorf("report missing import names: %s", out)
	}
}
