package judge

import "testing"

func TestEqualScalars(t *testing.T) {
	cases := []struct {
		name     string
		expected interface{}
		actual   interface{}
		want     bool
	}{
		{"exact int", 3, 3, true},
		{"int vs float", 3, 3.0, true},
		{"float within tolerance", 0.3, 0.30000000000000004, true},
		{"float outside tolerance", 0.3, 0.301, false},
		{"bool vs string true", true, "True", true},
		{"bool vs string false", false, "false", true},
		{"string exact", "hello", "hello", true},
		{"string mismatch", "hello", "world", false},
		{"nil vs nil", nil, nil, true},
		{"nil vs value", nil, 1, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Equal(tc.expected, tc.actual, false)
			if got != tc.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tc.expected, tc.actual, got, tc.want)
			}
		})
	}
}

func TestEqualLists(t *testing.T) {
	expected := []interface{}{1, 2, 3}

	if !Equal(expected, []interface{}{1.0, 2.0, 3.0}, false) {
		t.Error("expected ordered lists with equivalent numbers to match")
	}
	if Equal(expected, []interface{}{3.0, 2.0, 1.0}, false) {
		t.Error("expected reordered list to fail ordered comparison")
	}
	if !Equal(expected, []interface{}{3.0, 2.0, 1.0}, true) {
		t.Error("expected reordered list to pass order-insensitive comparison")
	}
	if Equal(expected, []interface{}{1.0, 2.0}, true) {
		t.Error("expected lists of different length to fail")
	}
}

func TestEqualMultisetDuplicates(t *testing.T) {
	expected := []interface{}{1, 1, 2}

	if Equal(expected, []interface{}{1.0, 2.0, 2.0}, true) {
		t.Error("expected different duplicate counts to fail even order-insensitively")
	}
	if !Equal(expected, []interface{}{2.0, 1.0, 1.0}, true) {
		t.Error("expected same multiset to match")
	}
}

func TestEqualNested(t *testing.T) {
	expected := map[string]interface{}{
		"pairs": []interface{}{
			[]interface{}{0, 1},
			[]interface{}{2, 3},
		},
		"count": 2,
	}
	actual := map[string]interface{}{
		"pairs": []interface{}{
			[]interface{}{0.0, 1.0},
			[]interface{}{2.0, 3.0},
		},
		"count": 2.0,
	}

	if !Equal(expected, actual, false) {
		t.Error("expected nested structures with equivalent numbers to match")
	}

	actual["count"] = 3.0
	if Equal(expected, actual, false) {
		t.Error("expected mismatched map value to fail")
	}
}

func TestCoerceValue(t *testing.T) {
	coerced := CoerceValue("[1, 2, 3]")
	list, ok := coerced.([]interface{})
	if !ok {
		t.Fatalf("expected JSON array string to coerce to a list, got %T", coerced)
	}
	if len(list) != 3 {
		t.Errorf("expected 3 elements, got %d", len(list))
	}

	if got := CoerceValue("hello world"); got != "hello world" {
		t.Errorf("expected plain string to pass through, got %v", got)
	}

	obj := CoerceValue(`{"a": 1}`)
	if _, ok := obj.(map[string]interface{}); !ok {
		t.Errorf("expected JSON object string to coerce to a map, got %T", obj)
	}

	if got := CoerceValue(42); got != 42 {
		t.Errorf("expected non-string to pass through, got %v", got)
	}

	// Malformed JSON stays a string
	if got := CoerceValue("[1, 2,"); got != "[1, 2," {
		t.Errorf("expected malformed JSON to pass through, got %v", got)
	}
}
