package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrolink/tradepost/internal/contracts"
	"github.com/agrolink/tradepost/internal/fault"
)

type PGStore struct{ DB *pgxpool.Pool }

const orderColumns = `id, buyer_id, buyer_name, farmer_id, farmer_name, items, total_amount,
	status, buyer_message, farmer_response, expected_delivery_date, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, o *Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO orders (id, buyer_id, buyer_name, farmer_id, farmer_name, items, total_amount,
			status, buyer_message, farmer_response, expected_delivery_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		o.ID, o.BuyerID, o.BuyerName, o.FarmerID, o.FarmerName, items, o.TotalAmount,
		string(o.Status), o.BuyerMessage, o.FarmerResponse, o.ExpectedDeliveryDate,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Order, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fault.NotFound("order not found")
	}
	return o, err
}

func (s *PGStore) ListByBuyer(ctx context.Context, buyerID string, f ListFilter) ([]Order, error) {
	return s.list(ctx, "buyer_id", buyerID, f)
}

func (s *PGStore) ListByFarmer(ctx context.Context, farmerID string, f ListFilter) ([]Order, error) {
	return s.list(ctx, "farmer_id", farmerID, f)
}

func (s *PGStore) list(ctx context.Context, col, id string, f ListFilter) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + col + `=$1`
	args := []any{id}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += fmt.Sprintf(` AND created_at <= $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Accept locks the order row, re-checks PENDING under the lock, flips the
// status and inserts the derived contract in the same transaction. A
// concurrent accept or reject that won the race surfaces as InvalidState.
func (s *PGStore) Accept(ctx context.Context, id, response string, now time.Time, build ContractBuilder) (Order, contracts.Contract, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, contracts.Contract{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, contracts.Contract{}, fault.NotFound("order not found")
	}
	if err != nil {
		return Order{}, contracts.Contract{}, err
	}
	if o.Status != StatusPending {
		return Order{}, contracts.Contract{}, fault.InvalidState("cannot accept order with status %s", o.Status)
	}

	o.Status = StatusAccepted
	if response != "" {
		o.FarmerResponse = response
	}
	o.UpdatedAt = now

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET status='ACCEPTED', farmer_response=$2, updated_at=$3
		WHERE id=$1 AND status='PENDING'`,
		id, o.FarmerResponse, now)
	if err != nil {
		return Order{}, contracts.Contract{}, err
	}
	if ct.RowsAffected() != 1 {
		return Order{}, contracts.Contract{}, fault.InvalidState("order is no longer pending")
	}

	c, err := build(o)
	if err != nil {
		return Order{}, contracts.Contract{}, err
	}
	if err := contracts.InsertTx(ctx, tx, &c); err != nil {
		return Order{}, contracts.Contract{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, contracts.Contract{}, err
	}
	return o, c, nil
}

func (s *PGStore) Reject(ctx context.Context, id, reason string, now time.Time) (Order, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE orders SET status='REJECTED', farmer_response=$2, updated_at=$3
		WHERE id=$1 AND status='PENDING'
		RETURNING `+orderColumns, id, reason, now)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, s.guardMiss(ctx, id)
	}
	return o, err
}

func (s *PGStore) guardMiss(ctx context.Context, id string) error {
	var status string
	err := s.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fault.NotFound("order not found")
	}
	if err != nil {
		return err
	}
	return fault.InvalidState("cannot reject order with status %s", status)
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o      Order
		status string
		items  []byte
	)
	err := row.Scan(&o.ID, &o.BuyerID, &o.BuyerName, &o.FarmerID, &o.FarmerName, &items, &o.TotalAmount,
		&status, &o.BuyerMessage, &o.FarmerResponse, &o.ExpectedDeliveryDate, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return Order{}, fmt.Errorf("unmarshal items: %w", err)
	}
	return o, nil
}
