// Package module defines the minimal contract for a modkit module
package module

// Module is the minimal contract modkit wires against. Kept in a sibling
// package so a module can export its own ports type without import knots
type Module interface {
	Ports() any
	Name() string
}
