package dbtypes

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDArrayScanAndValue(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	arr := UUIDArray{first, second}

	value, err := arr.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var scanned UUIDArray
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(scanned) != 2 || scanned[0] != first || scanned[1] != second {
		t.Fatalf("unexpected scan result %v", scanned)
	}
	if !scanned.Contains(second) || scanned.Contains(uuid.New()) {
		t.Fatalf("contains mismatch")
	}
}

func TestUUIDArrayScanEmptyAndNil(t *testing.T) {
	var arr UUIDArray
	if err := arr.Scan("{}"); err != nil || len(arr) != 0 {
		t.Fatalf("expected empty array, got %v err=%v", arr, err)
	}
	if err := arr.Scan(nil); err != nil || len(arr) != 0 {
		t.Fatalf("expected empty array for nil, got %v err=%v", arr, err)
	}
	if err := arr.Scan([]byte(`{"not-a-uuid"}`)); err == nil {
		t.Fatalf("expected parse failure")
	}
	if err := arr.Scan(42); err == nil {
		t.Fatalf("expected unsupported type failure")
	}
}

func TestUUIDArrayNeverWritesNull(t *testing.T) {
	var empty UUIDArray
	value, err := empty.Value()
	if err != nil || value != "{}" {
		t.Fatalf("expected {} for nil array, got %v err=%v", value, err)
	}
}
