package migrations

import (
	"io/fs"
	"testing"
)

func TestPgx5URL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "postgres://u:p@localhost:5432/db?sslmode=disable", want: "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{in: "postgresql://localhost/db", want: "pgx5://localhost/db"},
		{in: "pgx5://localhost/db", want: "pgx5://localhost/db"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := pgx5URL(tt.in); got != tt.want {
				t.Errorf("pgx5URL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	for _, dir := range []string{"postgres", "sqlite"} {
		ups, err := fs.Glob(files, dir+"/*.up.sql")
		if err != nil {
			t.Fatal(err)
		}
		downs, err := fs.Glob(files, dir+"/*.down.sql")
		if err != nil {
			t.Fatal(err)
		}
		if len(ups) == 0 {
			t.Errorf("%s: no up migrations embedded", dir)
		}
		if len(ups) != len(downs) {
			t.Errorf("%s: %d up migrations, %d down migrations", dir, len(ups), len(downs))
		}
	}
}
