package config

import "testing"

func TestParseByteSize(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"10mb", 10 * 1000 * 1000, false},
		{"1.5gb", int64(1.5 * 1000 * 1000 * 1000), false},
		{"2048", 2048, false},
		{"1kib", 1024, false},
		{"1MiB", 1024 * 1024, false},
		{"", 0, true},
		{"abc", 0, true},
		{"-1mb", 0, true},
		{"200gb", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseByteSize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseByteSize(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseByteSize(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseByteSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
