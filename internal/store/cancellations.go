package store

import (
	"context"
	"database/sql"

	"github.com/safar/go-storefront/internal/models"
)

// SubmitCancellation files (or re-files) a cancellation request for an
// order. Requests are keyed by order: resubmitting overwrites the reason and
// re-opens the cycle by resetting the status to PENDING.
func SubmitCancellation(ctx context.Context, db *sql.DB, requester models.Identity, orderID int64, reason *string) (*models.CancellationRequest, error) {
	var ownerID int64
	err := db.QueryRowContext(ctx,
		`SELECT user_id FROM orders WHERE id = $1`, orderID).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundErr("order not found")
		}
		return nil, internalErr("load order owner", err)
	}

	if ownerID != requester.ID && !requester.IsAdmin() {
		return nil, forbiddenErr()
	}

	var requestID int64
	err = db.QueryRowContext(ctx,
		`INSERT INTO cancellation_requests (order_id, user_id, reason, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 ON CONFLICT (order_id) DO UPDATE
		 SET reason = EXCLUDED.reason, user_id = EXCLUDED.user_id,
		     status = EXCLUDED.status, updated_at = NOW()
		 RETURNING id`,
		orderID, requester.ID, reason, models.CancellationPending).Scan(&requestID)
	if err != nil {
		return nil, internalErr("upsert cancellation request", err)
	}

	return loadCancellation(ctx, db, requestID)
}

// ListCancellations returns every request for admins and only requests on
// the requester's own orders otherwise, newest first.
func ListCancellations(ctx context.Context, db *sql.DB, requester models.Identity) ([]models.CancellationRequest, error) {
	where := "WHERE o.user_id = $1"
	args := []interface{}{requester.ID}
	if requester.IsAdmin() {
		where = ""
		args = nil
	}

	query := cancellationSelect + `
		JOIN orders o ON o.id = cr.order_id
		` + where + `
		ORDER BY cr.updated_at DESC, cr.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internalErr("list cancellation requests", err)
	}
	defer rows.Close()

	requests := []models.CancellationRequest{}
	for rows.Next() {
		request, err := scanCancellation(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("cancellation rows", err)
	}

	for i := range requests {
		if err := attachCancellationOrder(ctx, db, &requests[i]); err != nil {
			return nil, err
		}
	}

	return requests, nil
}

// DecideCancellation resolves a request. Admin only; the status vocabulary
// is validated before any database access. Deciding never mutates the
// underlying order: cancelling the order itself is an explicit follow-up
// SetOrderStatus call.
func DecideCancellation(ctx context.Context, db *sql.DB, requester models.Identity, requestID int64, status string) (*models.CancellationRequest, error) {
	if !requester.IsAdmin() {
		return nil, forbiddenErr()
	}
	if !models.ValidCancellationStatus(status) {
		return nil, validationErr("invalid cancellation status")
	}

	result, err := db.ExecContext(ctx,
		`UPDATE cancellation_requests SET status = $2, updated_at = NOW() WHERE id = $1`,
		requestID, status)
	if err != nil {
		return nil, internalErr("update cancellation request", err)
	}
	if err := requireRowAffected(result, "cancellation request not found"); err != nil {
		return nil, err
	}

	return loadCancellation(ctx, db, requestID)
}

const cancellationSelect = `
	SELECT cr.id, cr.order_id, cr.user_id, cr.reason, cr.status,
	       cr.created_at, cr.updated_at, u.email, u.role
	FROM cancellation_requests cr
	JOIN users u ON u.id = cr.user_id`

func loadCancellation(ctx context.Context, db *sql.DB, id int64) (*models.CancellationRequest, error) {
	row := db.QueryRowContext(ctx, cancellationSelect+` WHERE cr.id = $1`, id)

	request, err := scanCancellation(row)
	if err != nil {
		return nil, err
	}

	if err := attachCancellationOrder(ctx, db, request); err != nil {
		return nil, err
	}

	return request, nil
}

func scanCancellation(row rowScanner) (*models.CancellationRequest, error) {
	request := &models.CancellationRequest{}
	user := &models.UserSummary{}

	err := row.Scan(
		&request.ID,
		&request.OrderID,
		&request.UserID,
		&request.Reason,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
		&user.Email,
		&user.Role,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundErr("cancellation request not found")
		}
		return nil, internalErr("scan cancellation request", err)
	}

	user.ID = request.UserID
	request.User = user

	return request, nil
}

func attachCancellationOrder(ctx context.Context, db *sql.DB, request *models.CancellationRequest) error {
	order, err := loadOrder(ctx, db, request.OrderID)
	if err != nil {
		return err
	}
	request.Order = order
	return nil
}
