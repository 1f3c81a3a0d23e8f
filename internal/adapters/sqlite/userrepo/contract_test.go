package userrepo

import (
	"testing"

	"github.com/garage-labs/garage-api/internal/adapters/contracttest"
	"github.com/garage-labs/garage-api/internal/adapters/sqlite"
	userrepoport "github.com/garage-labs/garage-api/internal/ports/out/userrepo"
)

func TestContract_SQLiteUserRepo(t *testing.T) {
	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func()) {
		t.Helper()
		db, err := sqlite.Open("")
		if err != nil {
			t.Fatalf("sqlite.Open: %v", err)
		}
		return NewRepo(db), func() { _ = db.Close() }
	})
}
