// Package classify partitions imports and lifted functions into "hardware"
// vs. "Windows scaffolding" using a built-in, process-wide API recognition
// table.
package classify

// Category is a fixed enum partitioning every Windows API name (and, by
// extension, every function built from lifted UIR) into hardware,
// scaffolding, or hybrid territory.
type Category int

const (
	CategoryUnknown Category = iota

	// Hardware: port I/O, MMIO, DMA, interrupt, timing, PCI config.
	CategoryPortIO
	CategoryMMIO
	CategoryDMA
	CategoryInterrupt
	CategoryTiming
	CategoryPCIConfig

	// Scaffolding: IRP, PnP, power, WMI, registry, memory manager,
	// synchronization, string.
	CategoryIRP
	CategoryPnP
	CategoryPower
	CategoryWMI
	CategoryRegistry
	CategoryMemoryManager
	CategorySync
	CategoryString

	// Hybrid: object, I/O manager.
	CategoryObject
	CategoryIOManager
)

func (c Category) String() string {
	switch c {
	case CategoryPortIO:
		return "port-I/O"
	case CategoryMMIO:
		return "MMIO"
	case CategoryDMA:
		return "DMA"
	case CategoryInterrupt:
		return "interrupt"
	case CategoryTiming:
		return "timing"
	case CategoryPCIConfig:
		return "PCI-config"
	case CategoryIRP:
		return "IRP"
	case CategoryPnP:
		return "PnP"
	case CategoryPower:
		return "power"
	case CategoryWMI:
		return "WMI"
	case CategoryRegistry:
		return "registry"
	case CategoryMemoryManager:
		return "memory-manager"
	case CategorySync:
		return "synchronization"
	case CategoryString:
		return "string"
	case CategoryObject:
		return "object"
	case CategoryIOManager:
		return "I/O-manager"
	default:
		return "unknown"
	}
}

// IsHardware reports whether c is one of the six hardware-access categories.
func (c Category) IsHardware() bool {
	switch c {
	case CategoryPortIO, CategoryMMIO, CategoryDMA, CategoryInterrupt, CategoryTiming, CategoryPCIConfig:
		return true
	}
	return false
}

// IsScaffolding reports whether c is one of the eight OS-conformance
// categories.
func (c Category) IsScaffolding() bool {
	switch c {
	case CategoryIRP, CategoryPnP, CategoryPower, CategoryWMI, CategoryRegistry, CategoryMemoryManager, CategorySync, CategoryString:
		return true
	}
	return false
}

// IsHybrid reports whether c is object management or I/O manager plumbing —
// neither clearly hardware nor clearly scaffolding.
func (c Category) IsHybrid() bool {
	return c == CategoryObject || c == CategoryIOManager
}

// apiEntry is one row of the recognition table: a Windows API name mapped to
// its category, optional translated stack-code word, and a short
// human-readable description. WriteReport does not print the description.
type apiEntry struct {
	category    Category
	translation string // empty means no translation
	description string
}

// ClassifiedImport is one import after lookup against the recognition
// table. Translation is empty when the import had no table match or no
// translated word.
type ClassifiedImport struct {
	DLL         string
	Name        string
	Category    Category
	Translation string
}

// Function is the result of analyzing one lifted function: a display name,
// primary category, hardware verdict, and deduplicated port set. PollLoop
// and InitSequence are set only when AnalyzeFunctions recognized the
// function's body as one of those two shapes; both are nil/empty for an
// ordinary sequential-access function.
type Function struct {
	Address         uint64
	DisplayName     string
	PrimaryCategory Category
	IsHardware      bool
	Ports           []uint16
	PollLoop        *PollPattern
	InitSequence    []InitStep
}

// Result is the output of function analysis across an entire binary.
type Result struct {
	Functions       []Function
	HWFunctionCount int
	FilteredCount   int
}
