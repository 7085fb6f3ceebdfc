package timerctrl

// WifiQuality maps a reported signal strength in dBm to a 0..100
// percentage: saturated at -30 dBm and above, dead at -90 dBm and below,
// linear in between.
func WifiQuality(signalDBm int) int {
	s := signalDBm
	if s < 0 {
		s = -s
	}
	switch {
	case s <= 30:
		return 100
	case s >= 90:
		return 0
	default:
		return 100 - (s-30)*100/60
	}
}
