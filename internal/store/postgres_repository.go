/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the SQL queries used against the donations,
 * accepted_orders, donors and volunteers tables.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodbridge/donation-service/internal/domain"
)

var (
	ErrDonorNotFound      = errors.New("donor not found")
	ErrVolunteerNotFound  = errors.New("volunteer not found")
	ErrDonationNotFound   = errors.New("donation not found")
	ErrDonationNotPending = errors.New("donation is not pending")
	ErrOrderAlreadyExists = errors.New("accepted order already exists")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindDonorByAuthSubject resolves a donor profile from the token subject set
// during onboarding.
func (r *PostgresRepository) FindDonorByAuthSubject(ctx context.Context, subject string) (*domain.DonorProfile, error) {
	var p domain.DonorProfile
	query := `SELECT id, auth_subject, name, contact, email, address, created_at FROM donors WHERE auth_subject = $1`
	err := r.db.QueryRow(ctx, query, subject).Scan(&p.ID, &p.AuthSubject, &p.Name, &p.Contact, &p.Email, &p.Address, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDonorNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindVolunteerByAuthSubject resolves a volunteer profile from the token subject.
func (r *PostgresRepository) FindVolunteerByAuthSubject(ctx context.Context, subject string) (*domain.VolunteerProfile, error) {
	var p domain.VolunteerProfile
	query := `SELECT id, auth_subject, name, contact, email, accepted_count, created_at FROM volunteers WHERE auth_subject = $1`
	err := r.db.QueryRow(ctx, query, subject).Scan(&p.ID, &p.AuthSubject, &p.Name, &p.Contact, &p.Email, &p.AcceptedCount, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrVolunteerNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindDonorByID retrieves a donor profile by its internal ID. Used read-only
// by the acceptance workflow to enrich the denormalized order copy.
func (r *PostgresRepository) FindDonorByID(ctx context.Context, donorID uuid.UUID) (*domain.DonorProfile, error) {
	var p domain.DonorProfile
	query := `SELECT id, auth_subject, name, contact, email, address, created_at FROM donors WHERE id = $1`
	err := r.db.QueryRow(ctx, query, donorID).Scan(&p.ID, &p.AuthSubject, &p.Name, &p.Contact, &p.Email, &p.Address, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDonorNotFound
		}
		return nil, err
	}
	return &p, nil
}

// IncrementVolunteerAcceptedCount adds exactly 1 to the volunteer's running
// accepted-order counter. The counter is never decremented by this service.
func (r *PostgresRepository) IncrementVolunteerAcceptedCount(ctx context.Context, volunteerID uuid.UUID) error {
	query := `UPDATE volunteers SET accepted_count = accepted_count + 1, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, volunteerID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrVolunteerNotFound
	}
	return nil
}

// CreateDonation inserts a new donation in 'pending' status.
func (r *PostgresRepository) CreateDonation(ctx context.Context, d *domain.Donation) error {
	query := `
		INSERT INTO donations (id, donor_id, kind, food_items, description, food_weight_kg, money_amount, lat, lng, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var lat, lng *float64
	if d.Location != nil {
		lat, lng = &d.Location.Lat, &d.Location.Lng
	}
	_, err := r.db.Exec(ctx, query,
		d.ID, d.DonorID, d.Kind, d.FoodItems, d.Description, d.FoodWeight, d.MoneyAmount,
		lat, lng, d.Status, d.CreatedAt,
	)
	return err
}

const donationColumns = `
	d.id, d.donor_id, dn.name, d.kind, d.food_items, d.description, d.food_weight_kg,
	d.money_amount, d.lat, d.lng, d.status, d.volunteer_id, d.created_at, d.accepted_at, d.rejected_at
`

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var d domain.Donation
	var lat, lng *float64
	err := row.Scan(
		&d.ID, &d.DonorID, &d.DonorName, &d.Kind, &d.FoodItems, &d.Description, &d.FoodWeight,
		&d.MoneyAmount, &lat, &lng, &d.Status, &d.VolunteerID, &d.CreatedAt, &d.AcceptedAt, &d.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		d.Location = &domain.Coordinates{Lat: *lat, Lng: *lng}
	}
	return &d, nil
}

// FindDonationByID retrieves a single donation with its donor display name.
func (r *PostgresRepository) FindDonationByID(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM donations d
		LEFT JOIN donors dn ON dn.id = d.donor_id
		WHERE d.id = $1
	`, donationColumns)
	d, err := scanDonation(r.db.QueryRow(ctx, query, donationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListPendingFoodDonations returns the feed backing set: every donation with
// status = 'pending' and kind = 'food'. Ordering beyond created_at is applied
// in the app layer, which re-sorts per query.
func (r *PostgresRepository) ListPendingFoodDonations(ctx context.Context) ([]domain.Donation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM donations d
		LEFT JOIN donors dn ON dn.id = d.donor_id
		WHERE d.status = 'pending' AND d.kind = 'food'
		ORDER BY d.created_at DESC
	`, donationColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []domain.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, *d)
	}
	return donations, rows.Err()
}

// ListDonationsByDonor returns every donation created by one donor, newest first.
func (r *PostgresRepository) ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM donations d
		LEFT JOIN donors dn ON dn.id = d.donor_id
		WHERE d.donor_id = $1
		ORDER BY d.created_at DESC
	`, donationColumns)
	rows, err := r.db.Query(ctx, query, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []domain.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, *d)
	}
	return donations, rows.Err()
}

// MarkDonationAccepted performs the first acceptance write: a conditional
// transition out of 'pending'. The WHERE guard makes concurrent accepts
// first-writer-wins; the loser observes zero affected rows and gets
// ErrDonationNotPending (or ErrDonationNotFound if the id is unknown).
func (r *PostgresRepository) MarkDonationAccepted(ctx context.Context, donationID, volunteerID uuid.UUID, acceptedAt time.Time) (*domain.Donation, error) {
	query := `
		UPDATE donations
		SET status = 'accepted', volunteer_id = $2, accepted_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, donor_id, kind, food_items, description, food_weight_kg, money_amount, lat, lng, status, volunteer_id, created_at, accepted_at, rejected_at
	`
	var d domain.Donation
	var lat, lng *float64
	err := r.db.QueryRow(ctx, query, donationID, volunteerID, acceptedAt).Scan(
		&d.ID, &d.DonorID, &d.Kind, &d.FoodItems, &d.Description, &d.FoodWeight,
		&d.MoneyAmount, &lat, &lng, &d.Status, &d.VolunteerID, &d.CreatedAt, &d.AcceptedAt, &d.RejectedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.classifyMissedTransition(ctx, donationID)
		}
		return nil, err
	}
	if lat != nil && lng != nil {
		d.Location = &domain.Coordinates{Lat: *lat, Lng: *lng}
	}
	return &d, nil
}

// MarkDonationRejected transitions a pending donation to 'rejected'. Like
// acceptance, the transition is conditional and never overwrites a terminal
// status.
func (r *PostgresRepository) MarkDonationRejected(ctx context.Context, donationID uuid.UUID, rejectedAt time.Time) error {
	query := `
		UPDATE donations
		SET status = 'rejected', rejected_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.db.Exec(ctx, query, donationID, rejectedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return r.classifyMissedTransition(ctx, donationID)
	}
	return nil
}

// classifyMissedTransition distinguishes "no such donation" from "donation
// exists but already left pending" after a conditional update matched nothing.
func (r *PostgresRepository) classifyMissedTransition(ctx context.Context, donationID uuid.UUID) error {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM donations WHERE id = $1`, donationID).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrDonationNotFound
		}
		return err
	}
	return ErrDonationNotPending
}

// CreateAcceptedOrder writes the denormalized snapshot into the volunteer's
// order list. The (volunteer_id, donation_id) primary key plus a unique index
// on donation_id backstop the at-most-one-acceptance invariant at the storage
// layer.
func (r *PostgresRepository) CreateAcceptedOrder(ctx context.Context, order *domain.AcceptedOrder) error {
	query := `
		INSERT INTO accepted_orders (
			donation_id, volunteer_id, donor_name, donor_contact, donor_email, donor_address,
			food_items, description, food_weight_kg, pickup_address, lat, lng, status, created_at, accepted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	var lat, lng *float64
	if order.Location != nil {
		lat, lng = &order.Location.Lat, &order.Location.Lng
	}
	_, err := r.db.Exec(ctx, query,
		order.DonationID, order.VolunteerID, order.DonorName, order.DonorContact, order.DonorEmail, order.DonorAddress,
		order.FoodItems, order.Description, order.FoodWeight, order.PickupAddress, lat, lng,
		order.Status, order.CreatedAt, order.AcceptedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrOrderAlreadyExists
		}
		return err
	}
	return nil
}

// ListAcceptedOrdersByVolunteer returns the volunteer's personal order list,
// most recently accepted first.
func (r *PostgresRepository) ListAcceptedOrdersByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]domain.AcceptedOrder, error) {
	query := `
		SELECT donation_id, volunteer_id, donor_name, donor_contact, donor_email, donor_address,
		       food_items, description, food_weight_kg, pickup_address, lat, lng, status, created_at, accepted_at
		FROM accepted_orders
		WHERE volunteer_id = $1
		ORDER BY accepted_at DESC
	`
	rows, err := r.db.Query(ctx, query, volunteerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.AcceptedOrder
	for rows.Next() {
		var o domain.AcceptedOrder
		var lat, lng *float64
		if err := rows.Scan(
			&o.DonationID, &o.VolunteerID, &o.DonorName, &o.DonorContact, &o.DonorEmail, &o.DonorAddress,
			&o.FoodItems, &o.Description, &o.FoodWeight, &o.PickupAddress, &lat, &lng,
			&o.Status, &o.CreatedAt, &o.AcceptedAt,
		); err != nil {
			return nil, err
		}
		if lat != nil && lng != nil {
			o.Location = &domain.Coordinates{Lat: *lat, Lng: *lng}
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListAcceptedDonationsMissingOrders finds accepted donations past the grace
// window whose denormalized copy is missing, i.e. the observable anomaly left
// behind when the acceptance workflow failed between step 1 and step 2.
func (r *PostgresRepository) ListAcceptedDonationsMissingOrders(ctx context.Context, olderThan time.Time, limit int) ([]domain.Donation, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM donations d
		LEFT JOIN donors dn ON dn.id = d.donor_id
		LEFT JOIN accepted_orders ao ON ao.donation_id = d.id
		WHERE d.status = 'accepted'
		  AND d.accepted_at < $1
		  AND ao.donation_id IS NULL
		ORDER BY d.accepted_at ASC
		LIMIT $2
	`, donationColumns)
	rows, err := r.db.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []domain.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, *d)
	}
	return donations, rows.Err()
}

// GetAdminStats computes the platform-wide aggregates for the admin dashboard
// in three queries rather than pulling whole collections into memory.
func (r *PostgresRepository) GetAdminStats(ctx context.Context) (*domain.AdminStats, error) {
	stats := &domain.AdminStats{ByKind: make(map[string]int64)}

	donationQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'accepted'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE kind = 'food'),
			COUNT(*) FILTER (WHERE kind = 'money'),
			COALESCE(SUM(food_weight_kg) FILTER (WHERE kind = 'food'), 0),
			COALESCE(SUM(money_amount) FILTER (WHERE kind = 'money'), 0)
		FROM donations
	`
	var foodCount, moneyCount int64
	if err := r.db.QueryRow(ctx, donationQuery).Scan(
		&stats.TotalDonations, &stats.PendingDonations, &stats.AcceptedDonations, &stats.RejectedDonations,
		&foodCount, &moneyCount, &stats.TotalFoodWeight, &stats.TotalMoneyAmount,
	); err != nil {
		return nil, err
	}
	stats.ByKind[domain.KindFood] = foodCount
	stats.ByKind[domain.KindMoney] = moneyCount

	populationQuery := `SELECT (SELECT COUNT(*) FROM donors), (SELECT COUNT(*) FROM volunteers)`
	if err := r.db.QueryRow(ctx, populationQuery).Scan(&stats.TotalDonors, &stats.TotalVolunteers); err != nil {
		return nil, err
	}

	leaderQuery := `
		SELECT id, name, accepted_count
		FROM volunteers
		WHERE accepted_count > 0
		ORDER BY accepted_count DESC, name ASC
		LIMIT 5
	`
	rows, err := r.db.Query(ctx, leaderQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tv domain.TopVolunteer
		if err := rows.Scan(&tv.ID, &tv.Name, &tv.AcceptedCount); err != nil {
			return nil, err
		}
		stats.TopVolunteers = append(stats.TopVolunteers, tv)
	}
	return stats, rows.Err()
}
