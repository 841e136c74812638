package target_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"jobmate/research-service/internal/target"
)

// recordingDB captures the one existence query a PGChecker issues.
type recordingDB struct {
	sql  string
	args []any
}

func (d *recordingDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (d *recordingDB) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }

func (d *recordingDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.sql, d.args = sql, args
	return foundRow{}
}

type foundRow struct{}

func (foundRow) Scan(dest ...any) error {
	*dest[0].(*bool) = true
	return nil
}

const visibilityClause = "visibility = 'public' OR user_id = $2"

func TestPGChecker_ResourcesFilterByVisibility(t *testing.T) {
	for _, ty := range []target.Type{target.Resource, target.UserResource} {
		d := &recordingDB{}
		ok, err := target.NewPGChecker(d).Exists(context.Background(), target.Ref{Type: ty, ID: "r1"}, "viewer")
		if err != nil || !ok {
			t.Fatalf("%s: %v %v", ty, ok, err)
		}
		if !strings.Contains(d.sql, visibilityClause) {
			t.Errorf("%s: query lacks visibility filter: %s", ty, d.sql)
		}
		if len(d.args) != 2 || d.args[0] != "r1" || d.args[1] != "viewer" {
			t.Errorf("%s: args = %v", ty, d.args)
		}
	}
}

func TestPGChecker_PublicFamiliesIgnoreViewer(t *testing.T) {
	for _, ty := range []target.Type{target.Job, target.Paper} {
		d := &recordingDB{}
		target.NewPGChecker(d).Exists(context.Background(), target.Ref{Type: ty, ID: "x"}, "viewer")
		if strings.Contains(d.sql, "$2") || len(d.args) != 1 {
			t.Errorf("%s: sql %q args %v", ty, d.sql, d.args)
		}
	}
}

func TestPGChecker_CommentFollowsItsTarget(t *testing.T) {
	d := &recordingDB{}
	target.NewPGChecker(d).Exists(context.Background(), target.Ref{Type: target.Comment, ID: "c1"}, "viewer")

	for _, want := range []string{"NOT c.is_deleted", "FROM job_resources", "FROM user_resources", visibilityClause} {
		if !strings.Contains(d.sql, want) {
			t.Errorf("comment query lacks %q: %s", want, d.sql)
		}
	}
	if len(d.args) != 2 || d.args[1] != "viewer" {
		t.Errorf("args = %v", d.args)
	}
}

func TestPGChecker_UnknownType(t *testing.T) {
	d := &recordingDB{}
	ok, err := target.NewPGChecker(d).Exists(context.Background(), target.Ref{Type: "bogus", ID: "x"}, "")
	if ok || err != nil || d.sql != "" {
		t.Fatalf("ok=%v err=%v sql=%q", ok, err, d.sql)
	}
}
