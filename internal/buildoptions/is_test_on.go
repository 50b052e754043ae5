//go:build wasmregvm_testing

package buildoptions

// IsTest is true when this build tag is set, for test binaries that
// want the extra assertions enabled.
const IsTest = true
