package divemit

import "testing"

func TestParseArchRecognizesAliases(t *testing.T) {
	cases := map[string]Arch{
		"amd64":   ArchX86_64,
		"x86_64":  ArchX86_64,
		"arm64":   ArchARM64,
		"aarch64": ArchARM64,
		"riscv64": ArchRiscv64,
		"rv64":    ArchRiscv64,
	}
	for input, want := range cases {
		got, err := ParseArch(input)
		if err != nil {
			t.Errorf("ParseArch(%q): %v", input, err)
		}
		if got != want {
			t.Errorf("ParseArch(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseArchRejectsUnknown(t *testing.T) {
	if _, err := ParseArch("mips"); err == nil {
		t.Error("expected an error for an unsupported architecture")
	}
}

func TestEmitDivDispatchesToTheRightArchitecture(t *testing.T) {
	var x86buf, armbuf, rvbuf buffer
	if err := EmitDiv(ArchX86_64, &x86buf, x86RDI, x86RSI, DivQuotient); err != nil {
		t.Fatal(err)
	}
	if err := EmitDiv(ArchARM64, &armbuf, 0, 1, DivQuotient); err != nil {
		t.Fatal(err)
	}
	if err := EmitDiv(ArchRiscv64, &rvbuf, 10, 11, DivQuotient); err != nil {
		t.Fatal(err)
	}
	if len(x86buf) == 0 || x86buf[len(x86buf)-1] != 0xC3 {
		t.Error("x86_64 dispatch did not produce a routine ending in ret")
	}
	if len(armbuf)%4 != 0 || len(rvbuf)%4 != 0 {
		t.Error("ARM64/RV64 dispatch did not produce word-aligned output")
	}
}

func TestEmitDivRejectsUnknownArchitecture(t *testing.T) {
	var buf buffer
	if err := EmitDiv(ArchUnknown, &buf, 0, 1, DivQuotient); err == nil {
		t.Error("expected an error for ArchUnknown")
	}
}
