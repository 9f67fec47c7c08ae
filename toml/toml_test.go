package toml_test

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	itoml "github.com/akumuli/ingestd/toml"
)

func TestSize_UnmarshalText(t *testing.T) {
	var s itoml.Size
	for _, test := range []struct {
		str  string
		want uint64
	}{
		{"1", 1},
		{"10", 10},
		{"100", 100},
		{"1k", 1 << 10},
		{"10k", 10 << 10},
		{"100k", 100 << 10},
		{"1K", 1 << 10},
		{"1m", 1 << 20},
		{"100M", 100 << 20},
		{"1g", 1 << 30},
		{"1G", 1 << 30},
		{"10g", 10 * (1 << 30)},
		{fmt.Sprint(uint64(math.MaxUint64) - 1), math.MaxUint64 - 1},
	} {
		if err := s.UnmarshalText([]byte(test.str)); err != nil {
			t.Fatalf("unexpected error for %q: %s", test.str, err)
		}
		if s != itoml.Size(test.want) {
			t.Fatalf("%q: wanted %d got %d", test.str, test.want, s)
		}
	}

	for _, str := range []string{
		fmt.Sprintf("%dk", uint64(math.MaxUint64-1)),
		"10000000000000000000g",
		"abcdef",
		"1KB",
		"a1",
		"",
	} {
		if err := s.UnmarshalText([]byte(str)); err == nil {
			t.Fatalf("input should have failed: %s", str)
		}
	}
}

func TestDuration_RoundTrip(t *testing.T) {
	var d itoml.Duration
	if err := d.UnmarshalText([]byte("1m0s")); err != nil {
		t.Fatal(err)
	}
	if time.Duration(d) != time.Minute {
		t.Fatalf("got %s, want %s", time.Duration(d), time.Minute)
	}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "1m0s" {
		t.Fatalf("got %q, want %q", text, "1m0s")
	}
}

func TestEnvOverride_Builtins(t *testing.T) {
	envMap := map[string]string{
		"X_STRING":        "a string",
		"X_DURATION":      "1m1s",
		"X_INT":           "1",
		"X_UINT64":        "10",
		"X_BOOL":          "true",
		"X_FLOAT64":       "12.5",
		"X_NESTED_STRING": "a nested string",
		"X_NESTED_INT":    "13",
		"X__":             "-1", // must not be applied to the ignored field.
	}

	env := func(s string) string {
		return envMap[s]
	}

	type nested struct {
		Str string `toml:"string"`
		Int int    `toml:"int"`
	}
	type all struct {
		Str     string         `toml:"string"`
		Dur     itoml.Duration `toml:"duration"`
		Int     int            `toml:"int"`
		Uint64  uint64         `toml:"uint64"`
		Bool    bool           `toml:"bool"`
		Float64 float64        `toml:"float64"`
		Nested  nested         `toml:"nested"`
		Ignored int            `toml:"-"`
	}

	var got all
	if err := itoml.ApplyEnvOverrides(env, "X", &got); err != nil {
		t.Fatal(err)
	}

	exp := all{
		Str:     "a string",
		Dur:     itoml.Duration(time.Minute + time.Second),
		Int:     1,
		Uint64:  10,
		Bool:    true,
		Float64: 12.5,
		Nested: nested{
			Str: "a nested string",
			Int: 13,
		},
		Ignored: 0,
	}

	if diff := cmp.Diff(got, exp); diff != "" {
		t.Fatal(diff)
	}
}
