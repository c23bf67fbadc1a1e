//go:build !nogpio

package rtl

const gpioBuild = true
