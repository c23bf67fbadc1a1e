// Package usbdev opens RTL2832U dongles through the softusb host stack and
// hands them to the rtl package as handles.
package usbdev

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no matching dongle is attached.
var ErrNotFound = errors.New("no RTL2832U dongle found")

// KnownDevice is a USB VID/PID pair known to carry an RTL2832U.
type KnownDevice struct {
	VendorID  uint16
	ProductID uint16
	Name      string
}

func (k KnownDevice) String() string {
	return fmt.Sprintf("%04x:%04x %s", k.VendorID, k.ProductID, k.Name)
}

// Known lists the dongles the opener accepts.
var Known = []KnownDevice{
	{0x0bda, 0x2832, "Generic RTL2832U"},
	{0x0bda, 0x2838, "Generic RTL2832U OEM"},
	{0x0413, 0x6680, "DigitalNow Quad DVB-T PCI-E card"},
	{0x0413, 0x6f0f, "Leadtek WinFast DTV Dongle mini D"},
	{0x0458, 0x707f, "Genius TVGo DVB-T03 USB dongle (Ver. B)"},
	{0x0ccd, 0x00a9, "Terratec Cinergy T Stick Black (rev 1)"},
	{0x0ccd, 0x00b3, "Terratec NOXON DAB/DAB+ USB dongle (rev 1)"},
	{0x0ccd, 0x00d3, "Terratec Cinergy T Stick RC (Rev.3)"},
	{0x0ccd, 0x00e0, "Terratec NOXON DAB/DAB+ USB dongle (rev 2)"},
	{0x185b, 0x0620, "Compro Videomate U620F"},
	{0x185b, 0x0650, "Compro Videomate U650F"},
	{0x1b80, 0xd393, "GIGABYTE GT-U7300"},
	{0x1b80, 0xd394, "DIKOM USB-DVBT HD"},
	{0x1d19, 0x1101, "Dexatek DK DVB-T Dongle (Logilink VG0002A)"},
	{0x1d19, 0x1102, "Dexatek DK DVB-T Dongle (MSI DigiVox mini II V3.0)"},
	{0x1f4d, 0xb803, "GTek T803"},
	{0x1f4d, 0xc803, "Lifeview LV5TDeluxe"},
	{0x1f4d, 0xd803, "PROlectrix DV107669"},
}

// Lookup reports whether vid:pid is a known RTL2832U dongle.
func Lookup(vid, pid uint16) (KnownDevice, bool) {
	for _, k := range Known {
		if k.VendorID == vid && k.ProductID == pid {
			return k, true
		}
	}
	return KnownDevice{}, false
}
