package database

import "testing"

func TestDSN(t *testing.T) {
	cases := []struct {
		name, pass, want string
	}{
		{"with password", "pw", "app:pw@tcp(db:3306)/grounds?charset=utf8mb4&parseTime=true&loc=UTC"},
		{"without password", "", "app@tcp(db:3306)/grounds?charset=utf8mb4&parseTime=true&loc=UTC"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DSN("app", tc.pass, "db", "3306", "grounds"); got != tc.want {
				t.Fatalf("DSN = %q, want %q", got, tc.want)
			}
		})
	}
}
