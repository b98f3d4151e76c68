package fencestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mohammed-shakir/geofence-helper/internal/core/config"
)

const sampleYAML = `
fences:
  - name: Downtown
    fence_data:
      - "[Downtown]"
      - "52.52,13.40"
      - "52.53,13.41"
      - "52.51,13.42"
  - name: Harbour
    instance_id: 2
    fence_data:
      - "[Harbour]"
      - "53.54,9.98"
      - "53.55,9.99"
  - name: Park
    geojson: '{"type":"Feature","properties":{"name":"Park"},"geometry":{"type":"Polygon","coordinates":[[[2,1],[4,3],[2,1]]]}}'
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fences.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFileStore_AllFences(t *testing.T) {
	s := NewFileStore(writeFile(t, sampleYAML), NewParseCache(8), discardLogger())

	set, err := s.AllFences(context.Background(), 1)
	if err != nil {
		t.Fatalf("AllFences: %v", err)
	}
	names := set.Names()
	if len(names) != 2 || names[0] != "Downtown" || names[1] != "Park" {
		t.Fatalf("names=%v", names)
	}
	park, _ := set.Get("Park")
	if len(park) != 2 || park[0].Lat != 1 || park[0].Lon != 2 {
		t.Fatalf("park=%v", park)
	}

	set, err = s.AllFences(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if !set.Has("Harbour") || set.Len() != 3 {
		t.Fatalf("instance 2 names=%v", set.Names())
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope.yaml"), nil, discardLogger())
	if _, err := s.AllFences(context.Background(), 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err=%v want ErrUnavailable", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("ping err=%v", err)
	}
}

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.FenceSourceCfg{Source: "file", File: writeFile(t, sampleYAML), ParseCacheSize: 4}, discardLogger())
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("got %T want *FileStore", s)
	}

	s, err = Open(ctx, config.FenceSourceCfg{Source: "sql", DBDriver: DriverSQLite, DBDSN: ":memory:"}, discardLogger())
	if err != nil {
		t.Fatalf("sql: %v", err)
	}
	_ = s.Close()

	if _, err := Open(ctx, config.FenceSourceCfg{Source: "sql", DBDriver: "mysql"}, discardLogger()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(ctx, config.FenceSourceCfg{Source: "carrier-pigeon"}, discardLogger()); err == nil {
		t.Fatal("expected error for unknown source")
	}
}
