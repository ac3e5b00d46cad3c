//go:build race

package probemap

// Under race detector, stress tests run smaller workloads
const raceEnabled = true
