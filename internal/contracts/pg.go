package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrolink/tradepost/internal/fault"
	"github.com/agrolink/tradepost/internal/identity"
)

// Querier is the subset of pgx shared by pools and transactions, so the
// order-acceptance transaction can insert a contract inside its own tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PGStore struct{ DB *pgxpool.Pool }

const contractColumns = `id, buyer_id, buyer_name, farmer_id, farmer_name, items, total_amount,
	delivery_date, delivery_address, terms, notes, status, contract_hash,
	farmer_signature, buyer_signature, created_at, updated_at, signed_at, completed_at`

func (s *PGStore) Create(ctx context.Context, c *Contract) error {
	return InsertTx(ctx, s.DB, c)
}

// InsertTx writes a contract using the caller's querier, which may be a
// transaction owned by the order-acceptance pipeline.
func InsertTx(ctx context.Context, q Querier, c *Contract) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO contracts (id, buyer_id, buyer_name, farmer_id, farmer_name, items, total_amount,
			delivery_date, delivery_address, terms, notes, status, contract_hash, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		c.ID, c.BuyerID, c.BuyerName, c.FarmerID, c.FarmerName, items, c.TotalAmount,
		c.DeliveryDate, c.DeliveryAddress, c.Terms, c.Notes, string(c.Status), c.ContractHash,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Contract, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id=$1`, id)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, fault.NotFound("contract not found")
	}
	return c, err
}

func (s *PGStore) ListForParty(ctx context.Context, role identity.Role, profileID string, f ListFilter) ([]Contract, error) {
	col := "buyer_id"
	if role == identity.RoleFarmer {
		col = "farmer_id"
	}
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE ` + col + `=$1`
	args := []any{profileID}
	if f.Status != "" {
		query += ` AND status=$2`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) Sign(ctx context.Context, id string, p Party, sig Signature, now time.Time) (Contract, error) {
	sigJSON, err := json.Marshal(sig)
	if err != nil {
		return Contract{}, fmt.Errorf("marshal signature: %w", err)
	}

	// The status the signature advances to is derived from the counterpart
	// column inside the same statement, so two concurrent signatures cannot
	// both observe the other side unset.
	var query string
	switch p.Role() {
	case identity.RoleFarmer:
		query = `
			UPDATE contracts SET
				farmer_signature = $2,
				status = CASE WHEN buyer_signature IS NOT NULL THEN 'ACTIVE' ELSE 'SIGNED_FARMER' END,
				signed_at = CASE WHEN buyer_signature IS NOT NULL THEN $3 ELSE signed_at END,
				updated_at = $3
			WHERE id = $1 AND status IN ('PENDING','SIGNED_FARMER') AND farmer_signature IS NULL
			RETURNING ` + contractColumns
	default:
		query = `
			UPDATE contracts SET
				buyer_signature = $2,
				status = CASE WHEN farmer_signature IS NOT NULL THEN 'ACTIVE' ELSE status END,
				signed_at = CASE WHEN farmer_signature IS NOT NULL THEN $3 ELSE signed_at END,
				updated_at = $3
			WHERE id = $1 AND status IN ('PENDING','SIGNED_FARMER') AND buyer_signature IS NULL
			RETURNING ` + contractColumns
	}

	row := s.DB.QueryRow(ctx, query, id, sigJSON, now)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, s.guardMiss(ctx, id, "contract cannot be signed")
	}
	return c, err
}

func (s *PGStore) Reject(ctx context.Context, id string, now time.Time) (Contract, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE contracts SET status='REJECTED', updated_at=$2
		WHERE id=$1 AND status IN ('PENDING','SIGNED_FARMER')
		RETURNING `+contractColumns, id, now)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, s.guardMiss(ctx, id, "contract cannot be rejected")
	}
	return c, err
}

func (s *PGStore) Complete(ctx context.Context, id string, now time.Time) (Contract, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE contracts SET status='COMPLETED', completed_at=$2, updated_at=$2
		WHERE id=$1 AND status='ACTIVE'
		RETURNING `+contractColumns, id, now)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, s.guardMiss(ctx, id, "contract cannot be completed")
	}
	return c, err
}

// guardMiss distinguishes a missing row from a conditional-update miss.
func (s *PGStore) guardMiss(ctx context.Context, id, msg string) error {
	var status string
	err := s.DB.QueryRow(ctx, `SELECT status FROM contracts WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fault.NotFound("contract not found")
	}
	if err != nil {
		return err
	}
	return fault.InvalidState("%s in status %s", msg, status)
}

func scanContract(row pgx.Row) (Contract, error) {
	var (
		c                   Contract
		status              string
		items               []byte
		farmerSig, buyerSig []byte
	)
	err := row.Scan(&c.ID, &c.BuyerID, &c.BuyerName, &c.FarmerID, &c.FarmerName, &items, &c.TotalAmount,
		&c.DeliveryDate, &c.DeliveryAddress, &c.Terms, &c.Notes, &status, &c.ContractHash,
		&farmerSig, &buyerSig, &c.CreatedAt, &c.UpdatedAt, &c.SignedAt, &c.CompletedAt)
	if err != nil {
		return Contract{}, err
	}
	c.Status = Status(status)
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return Contract{}, fmt.Errorf("unmarshal items: %w", err)
	}
	if len(farmerSig) > 0 {
		c.FarmerSignature = &Signature{}
		if err := json.Unmarshal(farmerSig, c.FarmerSignature); err != nil {
			return Contract{}, fmt.Errorf("unmarshal farmer signature: %w", err)
		}
	}
	if len(buyerSig) > 0 {
		c.BuyerSignature = &Signature{}
		if err := json.Unmarshal(buyerSig, c.BuyerSignature); err != nil {
			return Contract{}, fmt.Errorf("unmarshal buyer signature: %w", err)
		}
	}
	return c, nil
}
