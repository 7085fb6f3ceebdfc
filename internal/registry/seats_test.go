package registry

import (
	"reflect"
	"testing"

	"timerhub/internal/models"
)

func TestMergeSeatsUnionKeepsFirstAppearanceOrder(t *testing.T) {
	reg, _ := newTestRegistry()
	reg.UpsertStatus("arduino_1", "10.0.0.1", models.StatusUpdate{TableNumber: intp(7)})

	_, seats, _, ok := reg.MergeSeats(7, []int{3, 5}, "seat_open")
	if !ok {
		t.Fatal("merge failed for a claimed table")
	}
	if !reflect.DeepEqual(seats, []int{3, 5}) {
		t.Fatalf("seats = %v, want [3 5]", seats)
	}

	_, seats, _, _ = reg.MergeSeats(7, []int{5, 7}, "seat_open")
	if !reflect.DeepEqual(seats, []int{3, 5, 7}) {
		t.Fatalf("seats = %v, want union [3 5 7]", seats)
	}

	// Idempotent: repeating the same seats changes nothing.
	_, seats, _, _ = reg.MergeSeats(7, []int{3, 5, 7}, "seat_open")
	if !reflect.DeepEqual(seats, []int{3, 5, 7}) {
		t.Fatalf("seats = %v after idempotent merge", seats)
	}
}

func TestMergeSeatsUnknownTable(t *testing.T) {
	reg, _ := newTestRegistry()
	if _, _, _, ok := reg.MergeSeats(42, []int{1}, ""); ok {
		t.Fatal("merge must fail when no device claims the table")
	}
}

func TestTakeSeatNoticeOneShot(t *testing.T) {
	reg, _ := newTestRegistry()
	reg.UpsertStatus("arduino_1", "10.0.0.1", models.StatusUpdate{TableNumber: intp(7)})

	_, _, firstNotice, _ := reg.MergeSeats(7, []int{2}, "seat_open")
	if !firstNotice {
		t.Fatal("first merge must arm the notification flag")
	}
	_, _, firstNotice, _ = reg.MergeSeats(7, []int{4}, "seat_open")
	if firstNotice {
		t.Fatal("flag already armed, merge must not report a fresh notice")
	}

	sr, table, ok := reg.TakeSeatNotice("arduino_1")
	if !ok || table != 7 {
		t.Fatalf("TakeSeatNotice = (%v, %d, %v)", sr, table, ok)
	}
	if !reflect.DeepEqual(sr.OpenSeats, []int{2, 4}) {
		t.Fatalf("seat_request seats = %v, want [2 4]", sr.OpenSeats)
	}
	if _, _, ok := reg.TakeSeatNotice("arduino_1"); ok {
		t.Fatal("seat notice is one-shot per arming")
	}

	// A later merge re-arms it.
	reg.MergeSeats(7, []int{6}, "seat_open")
	if _, _, ok := reg.TakeSeatNotice("arduino_1"); !ok {
		t.Fatal("new merge must re-arm the notice")
	}
}

func TestResetSeatInfo(t *testing.T) {
	reg, _ := newTestRegistry()
	reg.UpsertStatus("arduino_1", "10.0.0.1", models.StatusUpdate{TableNumber: intp(7)})
	reg.MergeSeats(7, []int{1, 2}, "seat_open")

	if !reg.ResetSeatInfo("arduino_1") {
		t.Fatal("reset should report it removed something")
	}
	rec, _ := reg.Get("arduino_1")
	if rec.SeatInfo != nil {
		t.Fatal("seat_info must be gone after reset")
	}

	// Fresh union after reset.
	_, seats, _, _ := reg.MergeSeats(7, []int{9}, "seat_open")
	if !reflect.DeepEqual(seats, []int{9}) {
		t.Fatalf("seats = %v, want a fresh [9]", seats)
	}
}

func TestFloormanLifecycle(t *testing.T) {
	reg, clock := newTestRegistry()
	reg.UpsertStatus("arduino_1", "10.0.0.1", models.StatusUpdate{TableNumber: intp(4)})

	id, ok := reg.CallFloorman(4)
	if !ok || id != "arduino_1" {
		t.Fatalf("CallFloorman = (%q, %v)", id, ok)
	}
	rec, _ := reg.Get("arduino_1")
	if rec.FloormanCallTimestamp != clock.Now().UnixMilli() {
		t.Fatalf("floorman timestamp = %d", rec.FloormanCallTimestamp)
	}

	id, cleared, ok := reg.ClearFloormanByTable(4)
	if !ok || !cleared || id != "arduino_1" {
		t.Fatalf("ClearFloormanByTable = (%q, %v, %v)", id, cleared, ok)
	}
	if _, cleared, _ := reg.ClearFloormanByTable(4); cleared {
		t.Fatal("second clear must find no active call")
	}
	if _, _, ok := reg.ClearFloormanByTable(12); ok {
		t.Fatal("clear must fail for an unclaimed table")
	}
}

func TestMarkBarService(t *testing.T) {
	reg, clock := newTestRegistry()
	reg.UpsertStatus("android_1", "10.0.0.1", models.StatusUpdate{TableNumber: intp(2)})

	if _, ok := reg.MarkBarService(8); ok {
		t.Fatal("no device claims table 8")
	}
	id, ok := reg.MarkBarService(2)
	if !ok || id != "android_1" {
		t.Fatalf("MarkBarService = (%q, %v)", id, ok)
	}
	rec, _ := reg.Get("android_1")
	if rec.BarServiceTimestamp != clock.Now().UnixMilli() {
		t.Fatalf("bar timestamp = %d", rec.BarServiceTimestamp)
	}
}
