// ABOUTME: Product identity constants
// ABOUTME: Used in the handshake capabilities and the TUI header
package version

const (
	// Version is the software version
	Version = "0.1.0"

	// Product is the ModelName reported to the controller
	Product = "SqueezeGo"

	// Model is the short model id reported to the controller
	Model = "squeezego"

	// Manufacturer of this player
	Manufacturer = "Resonate Protocol"
)
