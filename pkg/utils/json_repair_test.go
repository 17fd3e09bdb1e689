package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepairJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trailing comma", `[{"a":1},{"a":2},]`, `[{"a":1},{"a":2}]`},
		{"missing comma between members", `{"a":1 "b":2}`, `{"a":1,"b":2}`},
		{"missing comma between objects", `[{"a":1}{"a":2}]`, `[{"a":1},{"a":2}]`},
		{"doubled comma", `[1,,2]`, `[1,2]`},
		{"single quotes and python literals", `{'name': 'Kyoto', 'ok': True, 'x': None}`, `{"name":"Kyoto","ok":true,"x":null}`},
		{"bare keys", `{name: "Lisbon", days: 3}`, `{"name":"Lisbon","days":3}`},
		{"unclosed brackets", `{"a": [1, 2`, `{"a":[1,2]}`},
		{"unterminated string", `{"a": "unterminated`, `{"a":"unterminated"}`},
		{"missing value", `{"a":}`, `{"a":null}`},
		{"mismatched closer", `[{"a":1]`, `[{"a":1}]`},
		{"raw newline in string", "{\"note\": \"line one\nline two\"}", `{"note":"line one\nline two"}`},
		{"line comment", "{\"a\": 1, // first\n \"b\": 2}", `{"a":1,"b":2}`},
		{"trailing text dropped", `{"a":1} and that's it`, `{"a":1}`},
		{"smart double quotes", `{“city”: “New York”}`, `{"city":"New York"}`},
		{"low double quote opener", `{„city“: „Kraków“}`, `{"city":"Kraków"}`},
		{"smart single quotes", `{‘city’: ‘Oporto’}`, `{"city":"Oporto"}`},
		{"smart quotes inside a string kept", `{"note": "the “blue” city"}`, `{"note":"the “blue” city"}`},
		{"apostrophe inside single-quoted word", `{'name': 'Rome's best'}`, `{"name":"Rome's best"}`},
		{"plain numbers in array", `[1,2,500]`, `[1,2,500]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RepairJSON(tc.in)
			require.NoError(t, err)
			require.JSONEq(t, tc.want, got)
		})
	}
}

func TestRepairJSON_RefusesToInventStructure(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"thousands separator before a key", `{"cost": 1,000, "name": "x"}`},
		{"thousands separator in array", `[1,000]`},
		{"number group in key position", `{"cost": 1,500, "name": "x"}`},
		{"unquoted two-word value", `{city: New York}`},
		{"quoted word without colon", `{"a": "New" "York"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RepairJSON(tc.in)
			var repairErr *RepairError
			require.True(t, errors.As(err, &repairErr), "got %q", got)
			require.Empty(t, got)
		})
	}
}

func TestRepairJSON_ValidInputUnchanged(t *testing.T) {
	in := `{"destinations":[{"name":"Porto","key_sites":["Ribeira","Livraria Lello"],"estimated_days":3}],"summary":"ok"}`
	got, err := RepairJSON(in)
	require.NoError(t, err)
	require.JSONEq(t, in, got)
}
