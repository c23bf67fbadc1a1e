//go:build nogpio

package rtl

// Builds for hosts without GPIO-capable hardware. Every GPIO call reports
// ErrUnsupported.
const gpioBuild = false
