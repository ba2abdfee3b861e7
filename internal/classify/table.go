package classify

// apiTable is the process-wide immutable API recognition table. It is never
// mutated after package initialization; strings it owns are never copied
// into a classified import's Translation field's lifetime concerns — they
// are plain Go strings, shared by value, nothing to free.
var apiTable = map[string]apiEntry{
	// Port I/O.
	"READ_PORT_UCHAR":         {CategoryPortIO, "C@-PORT", "read one byte from an I/O port"},
	"READ_PORT_USHORT":        {CategoryPortIO, "W@-PORT", "read one word from an I/O port"},
	"READ_PORT_ULONG":         {CategoryPortIO, "@-PORT", "read one dword from an I/O port"},
	"READ_PORT_BUFFER_UCHAR":  {CategoryPortIO, "", "read a byte buffer from an I/O port"},
	"READ_PORT_BUFFER_USHORT": {CategoryPortIO, "", "read a word buffer from an I/O port"},
	"READ_PORT_BUFFER_ULONG":  {CategoryPortIO, "", "read a dword buffer from an I/O port"},
	"WRITE_PORT_UCHAR":        {CategoryPortIO, "C!-PORT", "write one byte to an I/O port"},
	"WRITE_PORT_USHORT":       {CategoryPortIO, "W!-PORT", "write one word to an I/O port"},
	"WRITE_PORT_ULONG":        {CategoryPortIO, "!-PORT", "write one dword to an I/O port"},
	"WRITE_PORT_BUFFER_UCHAR": {CategoryPortIO, "", "write a byte buffer to an I/O port"},
	"WRITE_PORT_BUFFER_USHORT": {CategoryPortIO, "", "write a word buffer to an I/O port"},
	"WRITE_PORT_BUFFER_ULONG": {CategoryPortIO, "", "write a dword buffer to an I/O port"},

	// MMIO register access.
	"READ_REGISTER_UCHAR":  {CategoryMMIO, "C@-MMIO", "read one byte from a mapped register"},
	"READ_REGISTER_USHORT": {CategoryMMIO, "W@-MMIO", "read one word from a mapped register"},
	"READ_REGISTER_ULONG":  {CategoryMMIO, "@-MMIO", "read one dword from a mapped register"},
	"WRITE_REGISTER_UCHAR":  {CategoryMMIO, "C!-MMIO", "write one byte to a mapped register"},
	"WRITE_REGISTER_USHORT": {CategoryMMIO, "W!-MMIO", "write one word to a mapped register"},
	"WRITE_REGISTER_ULONG":  {CategoryMMIO, "!-MMIO", "write one dword to a mapped register"},
	"MmMapIoSpace":          {CategoryMMIO, "", "map a physical address range into virtual memory"},
	"MmUnmapIoSpace":        {CategoryMMIO, "", "unmap a previously mapped I/O space"},

	// Timing.
	"KeStallExecutionProcessor":  {CategoryTiming, "", "busy-wait the current processor"},
	"KeQueryPerformanceCounter":  {CategoryTiming, "", "read the high-resolution performance counter"},

	// DMA.
	"IoAllocateAdapterChannel": {CategoryDMA, "", "allocate a DMA adapter channel"},
	"IoFreeAdapterChannel":     {CategoryDMA, "", "release a DMA adapter channel"},
	"IoMapTransfer":            {CategoryDMA, "", "program a DMA transfer"},
	"IoFlushAdapterBuffers":    {CategoryDMA, "", "flush DMA adapter buffers"},
	"MmGetPhysicalAddress":     {CategoryDMA, "", "resolve the physical address of a virtual one"},

	// Interrupts.
	"IoConnectInterrupt":        {CategoryInterrupt, "", "register an interrupt service routine"},
	"IoDisconnectInterrupt":     {CategoryInterrupt, "", "unregister an interrupt service routine"},
	"KeSynchronizeExecution":    {CategoryInterrupt, "", "run a routine synchronized with an ISR"},
	"KeAcquireInterruptSpinLock": {CategoryInterrupt, "", "acquire the interrupt spin lock"},

	// PCI configuration space.
	"HalGetBusDataByOffset": {CategoryPCIConfig, "", "read PCI configuration space at an offset"},
	"HalSetBusDataByOffset": {CategoryPCIConfig, "", "write PCI configuration space at an offset"},
	"HalGetBusData":         {CategoryPCIConfig, "", "read PCI configuration space"},

	// IRP scaffolding.
	"IoCompleteRequest":              {CategoryIRP, "", "complete an I/O request packet"},
	"IoCallDriver":                   {CategoryIRP, "", "forward an IRP to the next driver"},
	"IoBuildDeviceIoControlRequest":  {CategoryIRP, "", "build a device control IRP"},
	"IoCreateDevice":                 {CategoryIRP, "", "create a device object"},
	"IoDeleteDevice":                 {CategoryIRP, "", "delete a device object"},
	"IoGetCurrentIrpStackLocation":   {CategoryIRP, "", "fetch the current IRP stack frame"},
	"IoAllocateIrp":                  {CategoryIRP, "", "allocate an IRP"},

	// PnP scaffolding.
	"IoRegisterDeviceInterface":    {CategoryPnP, "", "register a device interface class"},
	"IoSetDeviceInterfaceState":    {CategoryPnP, "", "enable or disable a device interface"},
	"IoOpenDeviceRegistryKey":      {CategoryPnP, "", "open a device's registry key"},

	// Power scaffolding.
	"PoCallDriver":        {CategoryPower, "", "forward a power IRP to the next driver"},
	"PoStartNextPowerIrp": {CategoryPower, "", "start the next queued power IRP"},
	"PoSetPowerState":     {CategoryPower, "", "report a device power state transition"},

	// WMI scaffolding.
	"IoWMIRegistrationControl": {CategoryWMI, "", "register or deregister WMI support"},

	// Registry scaffolding.
	"ZwOpenKey":              {CategoryRegistry, "", "open a registry key"},
	"ZwQueryValueKey":        {CategoryRegistry, "", "query a registry value"},
	"RtlQueryRegistryValues": {CategoryRegistry, "", "query a set of registry values"},

	// Memory manager scaffolding.
	"ExAllocatePoolWithTag": {CategoryMemoryManager, "", "allocate tagged pool memory"},
	"ExFreePoolWithTag":     {CategoryMemoryManager, "", "free tagged pool memory"},
	"ExFreePool":            {CategoryMemoryManager, "", "free pool memory"},

	// Synchronization scaffolding.
	"KeInitializeSpinLock":    {CategorySync, "", "initialize a spin lock"},
	"KeAcquireSpinLock":       {CategorySync, "", "acquire a spin lock"},
	"KeReleaseSpinLock":       {CategorySync, "", "release a spin lock"},
	"KeInitializeEvent":       {CategorySync, "", "initialize a dispatcher event"},
	"KeSetEvent":              {CategorySync, "", "signal a dispatcher event"},

	// String scaffolding.
	"RtlInitUnicodeString": {CategoryString, "", "initialize a UNICODE_STRING"},
	"RtlCopyUnicodeString": {CategoryString, "", "copy a UNICODE_STRING"},

	// Hybrid: object management.
	"ObReferenceObjectByHandle": {CategoryObject, "", "resolve a handle to an object pointer"},

	// Hybrid: I/O manager plumbing.
	"IoCreateSymbolicLink": {CategoryIOManager, "", "create a symbolic link to a device"},
}
