//go:build !gameboyadvance

package gba

// master stands in for IME on the host.
var master uint16 = 1

func disableMaster() uint16 {
	s := master
	master = 0
	return s
}

func restoreMaster(s uint16) { master = s }
