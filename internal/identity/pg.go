package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrolink/tradepost/internal/fault"
)

// PGDirectory reads profiles from Postgres.
type PGDirectory struct{ DB *pgxpool.Pool }

func (d *PGDirectory) FarmerFor(ctx context.Context, principalID string) (Profile, error) {
	return d.one(ctx, `SELECT id, principal_id, farm_name FROM farmer_profiles WHERE principal_id=$1`,
		principalID, "farmer profile not found")
}

func (d *PGDirectory) BuyerFor(ctx context.Context, principalID string) (Profile, error) {
	return d.one(ctx, `SELECT id, principal_id, company_name FROM buyer_profiles WHERE principal_id=$1`,
		principalID, "buyer profile not found")
}

func (d *PGDirectory) FarmerByID(ctx context.Context, id string) (Profile, error) {
	return d.one(ctx, `SELECT id, principal_id, farm_name FROM farmer_profiles WHERE id=$1`,
		id, "farmer not found")
}

func (d *PGDirectory) one(ctx context.Context, query, arg, missing string) (Profile, error) {
	var p Profile
	err := d.DB.QueryRow(ctx, query, arg).Scan(&p.ID, &p.PrincipalID, &p.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, fault.NotFound("%s", missing)
	}
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}
