package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"flex_reviews/internal/adapters/memcache"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/shared"
)

func names(srcs []domain.DataSource) []string {
	out := make([]string, len(srcs))
	for i, s := range srcs {
		out[i] = s.Name()
	}
	return out
}

func TestSources_MirrorWithoutURLIsDropped(t *testing.T) {
	cfg := shared.Config{
		Sources:      []string{"hostaway", "mirror", "snapshot"},
		HostawayBase: "https://api.example.test/v1/",
		SourceRPS:    5,
	}
	st, closeFn, err := SnapshotStore(context.Background(), shared.Config{SnapshotPath: "x.json"})
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()

	srcs, err := Sources(cfg, st)
	if err != nil {
		t.Fatal(err)
	}
	if got := names(srcs); !reflect.DeepEqual(got, []string{"hostaway", "snapshot:file"}) {
		t.Fatalf("chain = %v", got)
	}
	if !srcs[0].Remote() || srcs[1].Remote() {
		t.Fatal("remote flags wrong")
	}
}

func TestSources_Errors(t *testing.T) {
	if _, err := Sources(shared.Config{Sources: []string{"ftp"}}, nil); err == nil {
		t.Fatal("unknown source should fail")
	}
	if _, err := Sources(shared.Config{}, nil); !errors.Is(err, domain.ErrNoSource) {
		t.Fatalf("empty chain: %v", err)
	}
}

func TestSnapshotStore_Backends(t *testing.T) {
	ctx := context.Background()
	st, closeFn, err := SnapshotStore(ctx, shared.Config{
		SnapshotBackend: "sqlite",
		SQLitePath:      filepath.Join(t.TempDir(), "r.db"),
		SnapshotName:    "hostaway",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	if st.Backend() != "sqlite" {
		t.Fatalf("backend = %s", st.Backend())
	}
	if _, _, err := SnapshotStore(ctx, shared.Config{SnapshotBackend: "s3"}); err == nil {
		t.Fatal("unknown backend should fail")
	}
}

func TestCache_FallsBackInProcess(t *testing.T) {
	if _, ok := Cache(context.Background(), shared.Config{}).(*memcache.Cache); !ok {
		t.Fatal("empty REDIS_ADDR should select the in-process cache")
	}
}
