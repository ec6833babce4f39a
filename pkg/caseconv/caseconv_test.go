package caseconv

import (
	"reflect"
	"testing"
)

func TestToCamel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"user_name", "userName"},
		{"address_line_1", "addressLine1"},
		{"already", "already"},
		{"alreadyCamel", "alreadyCamel"},
		{"a_b_c", "aBC"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := ToCamel(tc.in); got != tc.want {
			t.Errorf("ToCamel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestToSnake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"userName", "user_name"},
		{"already", "already"},
		{"statusCode", "status_code"},
		{"aBC", "a_b_c"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := ToSnake(tc.in); got != tc.want {
			t.Errorf("ToSnake(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestKeysToCamel_Nested(t *testing.T) {
	in := map[string]any{
		"user_name": "ada",
		"home_address": map[string]any{
			"street_name": "x",
			"zip_code":    "y",
		},
		"phone_numbers": []any{
			map[string]any{"country_code": "+46"},
			map[string]any{"country_code": "+31"},
		},
		"age": 42,
	}

	want := map[string]any{
		"userName": "ada",
		"homeAddress": map[string]any{
			"streetName": "x",
			"zipCode":    "y",
		},
		"phoneNumbers": []any{
			map[string]any{"countryCode": "+46"},
			map[string]any{"countryCode": "+31"},
		},
		"age": 42,
	}

	got := KeysToCamel(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("KeysToCamel() = %#v, want %#v", got, want)
	}
}

func TestKeysRoundTrip(t *testing.T) {
	in := map[string]any{
		"user_name": "ada",
		"settings": map[string]any{
			"dark_mode":   true,
			"max_retries": 3,
		},
		"tags": []any{"a", "b"},
		"items": []any{
			map[string]any{"item_id": 1, "unit_price": 9.5},
		},
	}

	got := KeysToSnake(KeysToCamel(in))
	if !reflect.DeepEqual(got, in) {
		t.Errorf("snake->camel->snake round trip = %#v, want %#v", got, in)
	}

	camel := KeysToCamel(in)
	got = KeysToCamel(KeysToSnake(camel))
	if !reflect.DeepEqual(got, camel) {
		t.Errorf("camel->snake->camel round trip = %#v, want %#v", got, camel)
	}
}

func TestKeysToCamel_Scalars(t *testing.T) {
	if got := KeysToCamel("plain_string"); got != "plain_string" {
		t.Errorf("KeysToCamel(string) = %v, want unchanged", got)
	}
	if got := KeysToSnake(12); got != 12 {
		t.Errorf("KeysToSnake(int) = %v, want unchanged", got)
	}
}
