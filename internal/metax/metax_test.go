package metax

import "testing"

func TestGetString(t *testing.T) {
	m := map[string]any{"name": "Osteria", "count": 3}

	if s, ok := GetString(m, "name"); !ok || s != "Osteria" {
		t.Errorf("GetString(name) = %q, %v", s, ok)
	}
	if _, ok := GetString(m, "count"); ok {
		t.Error("GetString must reject non-string values")
	}
	if _, ok := GetString(m, "missing"); ok {
		t.Error("GetString must report absent keys")
	}
}

func TestGetMap(t *testing.T) {
	m := map[string]any{
		"data": map[string]any{"k": "v"},
		"name": "flat",
	}

	mm, ok := GetMap(m, "data")
	if !ok || mm["k"] != "v" {
		t.Errorf("GetMap(data) = %v, %v", mm, ok)
	}
	if _, ok := GetMap(m, "name"); ok {
		t.Error("GetMap must reject non-map values")
	}
}

func TestGetInt64(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int64
		wantOK bool
	}{
		{"json float", float64(42), 42, true},
		{"int64", int64(7), 7, true},
		{"int", 9, 9, true},
		{"numeric string", "123", 123, true},
		{"non-numeric string", "abc", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GetInt64(map[string]any{"id": tt.value}, "id")
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("GetInt64(%v) = %d, %v; want %d, %v", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGetBool(t *testing.T) {
	m := map[string]any{"flag": true, "notFlag": "true"}

	if b, ok := GetBool(m, "flag"); !ok || !b {
		t.Errorf("GetBool(flag) = %v, %v", b, ok)
	}
	if _, ok := GetBool(m, "notFlag"); ok {
		t.Error("GetBool must reject string booleans")
	}
}

func TestParseTimeToMs(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int64
		wantOK bool
	}{
		{"rfc3339", "2024-01-15T12:00:00Z", 1705320000000, true},
		{"rfc3339 nano", "2024-01-15T12:00:00.500Z", 1705320000500, true},
		{"numeric ms", "1705320000000", 1705320000000, true},
		{"empty", "", 0, false},
		{"garbage", "not-a-time", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimeToMs(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseTimeToMs(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRFC3339RoundTrip(t *testing.T) {
	ms := int64(1705320000500)
	got, ok := ParseTimeToMs(RFC3339(ms))
	if !ok || got != ms {
		t.Errorf("round trip = %d, %v; want %d", got, ok, ms)
	}
}
