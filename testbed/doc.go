// Package testbed holds end-to-end scenarios that drive the ownership graph
// over the emulator: instance, device and session lifecycles, module loading,
// status rendering and leak accounting.
package testbed
