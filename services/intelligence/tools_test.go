package ai

import (
	"context"
	"testing"

	"advisorbot/services/booking"
)

func slotTakenErr() error {
	return &booking.Error{
		Code:    booking.ErrSlotTaken,
		Message: "Slot at 14:00 on 2026-01-07 is already booked",
	}
}

func TestRunToolUnknownName(t *testing.T) {
	payload, hint, err := runTool(context.Background(), &fakeEngine{}, "drop_tables", nil)
	if err != nil {
		t.Fatalf("unknown tool must not be an infrastructure failure: %v", err)
	}
	if hint != nil {
		t.Errorf("unexpected hint %+v", hint)
	}
	m, ok := payload.(map[string]interface{})
	if !ok || m["error"] != "Unknown function: drop_tables" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestRunToolFindBookingHint(t *testing.T) {
	payload, hint, err := runTool(context.Background(), &fakeEngine{}, toolFindBooking,
		map[string]interface{}{"user_alias": "Alice"})
	if err != nil {
		t.Fatalf("runTool: %v", err)
	}
	if hint == nil || hint.Type != "manage_card" {
		t.Fatalf("hint = %+v, want manage_card", hint)
	}
	matches, ok := payload.([]interface{})
	if !ok || len(matches) != 1 {
		t.Fatalf("payload = %+v", payload)
	}
	first, ok := matches[0].(map[string]interface{})
	if !ok || first["booking_id"] != "NL-AB12" {
		t.Errorf("match = %+v", matches[0])
	}
}

func TestRunToolWaitlistArgs(t *testing.T) {
	payload, hint, err := runTool(context.Background(), &fakeEngine{}, toolAddToWaitlist,
		map[string]interface{}{
			"date_str": "2026-01-07",
			"time_str": "14:00",
			"topic":    "Withdrawals",
		})
	if err != nil {
		t.Fatalf("runTool: %v", err)
	}
	if hint != nil {
		t.Errorf("waitlist has no hint, got %+v", hint)
	}
	m, ok := payload.(map[string]interface{})
	if !ok || m["status"] != "success" || m["waitlist_id"] != "NL-WL01" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestToJSONValueFlattensStructs(t *testing.T) {
	type sample struct {
		Code string `json:"code"`
		N    int    `json:"n"`
	}
	v, err := toJSONValue(sample{Code: "NL-AB12", N: 2})
	if err != nil {
		t.Fatalf("toJSONValue: %v", err)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		t.Fatalf("value = %T", v)
	}
	if m["code"] != "NL-AB12" {
		t.Errorf("code = %v", m["code"])
	}
	// Numbers come back as float64, the only numeric type the transport knows.
	if m["n"] != float64(2) {
		t.Errorf("n = %v (%T)", m["n"], m["n"])
	}
}

func TestBuildToolCatalogIsClosed(t *testing.T) {
	tools := BuildToolCatalog()
	if len(tools) != 1 {
		t.Fatalf("tools = %d, want 1", len(tools))
	}
	decls := tools[0].FunctionDeclarations
	want := map[string]bool{
		toolCheckAvailability: false,
		toolBookSlot:          false,
		toolCancelSlot:        false,
		toolAddToWaitlist:     false,
		toolAllAvailableDates: false,
		toolFindBooking:       false,
	}
	for _, d := range decls {
		if _, ok := want[d.Name]; !ok {
			t.Errorf("unexpected tool %q", d.Name)
		}
		want[d.Name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %q missing from catalog", name)
		}
	}
}
