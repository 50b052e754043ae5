//go:build !wasmregvm_testing

package buildoptions

// IsTest is true only when built with the wasmregvm_testing tag. Guard
// test-time-only assertions with `if buildoptions.IsTest { ... }` so
// they compile out of normal builds.
const IsTest = false
