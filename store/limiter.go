package store

// ResourceLimiter is consulted before any allocation that grows the
// store's footprint. All methods return an allow/deny bool; a deny
// during instantiation is
// surfaced upstream as an instantiation error (not this package's
// concern), while a deny during MemoryGrow/TableGrow makes Grow return
// ^uint32(0), the -1 result of memory.grow/table.grow, without a trap;
// api.TrapGrowthOperationLimited is not produced for it.
type ResourceLimiter interface {
	// CanAllocateInstance is consulted before a new module instance is
	// registered with the store.
	CanAllocateInstance() bool
	// CanAllocateMemory is consulted before a new memory is created,
	// with its initial page count.
	CanAllocateMemory(initialPages uint32) bool
	// CanGrowMemory is consulted before MemoryGrow commits, given the
	// memory's current and requested page counts.
	CanGrowMemory(current, desired uint32) bool
	// CanAllocateTable is consulted before a new table is created, with
	// its initial element count.
	CanAllocateTable(initialElements uint32) bool
	// CanGrowTable is consulted before TableGrow commits, given the
	// table's current and requested element counts.
	CanGrowTable(current, desired uint32) bool
}

// UnlimitedResources is the default ResourceLimiter: every request is
// allowed. A Store with no limiter registered behaves as if this were
// installed.
type UnlimitedResources struct{}

func (UnlimitedResources) CanAllocateInstance() bool                 { return true }
func (UnlimitedResources) CanAllocateMemory(uint32) bool             { return true }
func (UnlimitedResources) CanGrowMemory(current, desired uint32) bool { return true }
func (UnlimitedResources) CanAllocateTable(uint32) bool              { return true }
func (UnlimitedResources) CanGrowTable(current, desired uint32) bool  { return true }
