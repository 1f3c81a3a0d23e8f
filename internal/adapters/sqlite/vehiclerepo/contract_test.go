package vehiclerepo

import (
	"testing"

	"github.com/garage-labs/garage-api/internal/adapters/contracttest"
	"github.com/garage-labs/garage-api/internal/adapters/sqlite"
	sqliteuserrepo "github.com/garage-labs/garage-api/internal/adapters/sqlite/userrepo"
)

func TestContract_SQLiteVehicleRepo(t *testing.T) {
	contracttest.RunVehicleRepo(t, func(t *testing.T) (contracttest.Stores, func()) {
		t.Helper()
		db, err := sqlite.Open("")
		if err != nil {
			t.Fatalf("sqlite.Open: %v", err)
		}
		return contracttest.Stores{Users: sqliteuserrepo.NewRepo(db), Vehicles: NewRepo(db)}, func() { _ = db.Close() }
	})
}
