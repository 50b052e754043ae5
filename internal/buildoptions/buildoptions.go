package buildoptions

// CallStackCeiling is the maximum call-frame depth the executor's
// CallStack will grow to before raising api.TrapStackOverflow.
const CallStackCeiling = 5000000
