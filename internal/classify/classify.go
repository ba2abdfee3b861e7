package classify

import (
	"fmt"
	"io"

	"github.com/jeweledtech/bare-metal-forth/internal/pe"
	"github.com/jeweledtech/bare-metal-forth/internal/uir"
)

// ClassifyImport looks up name in the recognition table. A miss returns
// CategoryUnknown with no translation; this is never an error. Classify is
// a pure function of name: two classifications of the same name always
// yield the same category.
func ClassifyImport(name string) (category Category, translation string) {
	entry, ok := apiTable[name]
	if !ok {
		return CategoryUnknown, ""
	}
	return entry.category, entry.translation
}

// ClassifyImports classifies every import in order, preserving duplicates —
// the same function name may legitimately appear under more than one DLL.
func ClassifyImports(imports []pe.Import) []ClassifiedImport {
	out := make([]ClassifiedImport, len(imports))
	for i, imp := range imports {
		category, translation := ClassifyImport(imp.Name)
		out[i] = ClassifiedImport{DLL: imp.DLL, Name: imp.Name, Category: category, Translation: translation}
	}
	return out
}

// LiftedFunction pairs a lifted UIR function with its known export name, if
// any, so AnalyzeFunctions can synthesize a display name.
type LiftedFunction struct {
	EntryAddress uint64
	ExportName   string // empty if the entry address has no matching export
	Function     *uir.Function
}

// AnalyzeFunctions classifies a batch of lifted functions. Hardware verdict
// is presently based only on direct PORT_IN/PORT_OUT presence; functions
// that reach hardware only through an imported READ_PORT_*/WRITE_PORT_* call
// are not (yet) detected, since that requires resolving CALL targets
// against the IAT, which the lifter does not do.
func AnalyzeFunctions(functions []LiftedFunction) Result {
	var result Result
	for _, lf := range functions {
		fn := Function{
			Address:     lf.EntryAddress,
			DisplayName: displayName(lf),
			IsHardware:  lf.Function.HasPortIO,
			Ports:       dedupePorts(lf.Function),
		}
		if pat, ok := DetectPollLoop(lf.Function); ok {
			fn.PollLoop = &pat
		}
		if steps, ok := DetectInitSequence(lf.Function); ok {
			fn.InitSequence = steps
		}
		if fn.IsHardware {
			fn.PrimaryCategory = CategoryPortIO
			result.HWFunctionCount++
		} else {
			fn.PrimaryCategory = CategoryUnknown
			result.FilteredCount++
		}
		result.Functions = append(result.Functions, fn)
	}
	return result
}

func displayName(lf LiftedFunction) string {
	if lf.ExportName != "" {
		return lf.ExportName
	}
	return fmt.Sprintf("func_%x", lf.EntryAddress)
}

func dedupePorts(fn *uir.Function) []uint16 {
	seen := map[uint16]bool{}
	var out []uint16
	for _, p := range fn.PortsRead {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range fn.PortsWritten {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// WriteReport renders a text summary: imports grouped hardware-vs-scaffolding
// in input order, followed by hardware functions and their port sets in
// input order. No sorting is applied beyond that grouping.
func WriteReport(w io.Writer, imports []ClassifiedImport, result Result) error {
	if _, err := fmt.Fprintln(w, "Hardware imports:"); err != nil {
		return err
	}
	for _, imp := range imports {
		if !imp.Category.IsHardware() {
			continue
		}
		if err := writeImportLine(w, imp); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "Scaffolding imports:"); err != nil {
		return err
	}
	for _, imp := range imports {
		if !imp.Category.IsScaffolding() {
			continue
		}
		if err := writeImportLine(w, imp); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "Hardware functions:"); err != nil {
		return err
	}
	for _, fn := range result.Functions {
		if !fn.IsHardware {
			continue
		}
		tag := ""
		switch {
		case fn.PollLoop != nil:
			tag = " [poll-loop]"
		case len(fn.InitSequence) > 0:
			tag = " [init-sequence]"
		}
		if _, err := fmt.Fprintf(w, "  %s (0x%x) ports=%v%s\n", fn.DisplayName, fn.Address, fn.Ports, tag); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "Unrecognized imports:"); err != nil {
		return err
	}
	for _, imp := range imports {
		if imp.Category != CategoryUnknown {
			continue
		}
		suggestions := SuggestImport(imp.Name, 3)
		if len(suggestions) == 0 {
			if _, err := fmt.Fprintf(w, "  %s!%s\n", imp.DLL, imp.Name); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "  %s!%s (did you mean: %v?)\n", imp.DLL, imp.Name, suggestions); err != nil {
			return err
		}
	}
	return nil
}

func writeImportLine(w io.Writer, imp ClassifiedImport) error {
	_, err := fmt.Fprintf(w, "  %s!%s [%s]\n", imp.DLL, imp.Name, imp.Category)
	return err
}
