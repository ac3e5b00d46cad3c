//go:build !race

package probemap

const raceEnabled = false
