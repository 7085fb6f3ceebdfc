package models

import "fmt"

// Settings is the operator-entered configuration queued for a device.
// Field names match what the timer firmware expects on the wire.
type Settings struct {
	Mode         int  `json:"mode"`
	T1           int  `json:"t1"`
	T2           int  `json:"t2"`
	TableNumber  int  `json:"tableNumber"`
	Buzzer       bool `json:"buzzer"`
	PlayersCount int  `json:"playersCount"`
}

// Validate enforces the entry-boundary rules. The registry itself never
// re-checks these: a device may legitimately report values an operator
// could not enter.
func (s Settings) Validate() error {
	if s.Mode < 1 || s.Mode > 4 {
		return fmt.Errorf("mode must be 1..4, got %d", s.Mode)
	}
	if err := validTimerValue("t1", s.T1); err != nil {
		return err
	}
	if err := validTimerValue("t2", s.T2); err != nil {
		return err
	}
	if s.PlayersCount < 1 || s.PlayersCount > 10 {
		return fmt.Errorf("playersCount must be 1..10, got %d", s.PlayersCount)
	}
	return nil
}

func validTimerValue(name string, v int) error {
	if v < 5 || v > 95 || v%5 != 0 {
		return fmt.Errorf("%s must be a multiple of 5 in 5..95, got %d", name, v)
	}
	return nil
}
