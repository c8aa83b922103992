package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/smartride/safety-alerts/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS riders (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT,
			phone TEXT,
			email TEXT
		);

		CREATE TABLE IF NOT EXISTS rides (
			id TEXT PRIMARY KEY,
			rider_id TEXT NOT NULL,
			driver_name TEXT,
			driver_phone TEXT,
			pickup TEXT,
			destination TEXT,
			FOREIGN KEY (rider_id) REFERENCES riders(id)
		);

		CREATE TABLE IF NOT EXISTS emergency_contacts (
			id TEXT PRIMARY KEY,
			rider_id TEXT NOT NULL,
			name TEXT NOT NULL,
			phone TEXT NOT NULL,
			email TEXT,
			relationship TEXT,
			is_primary INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (rider_id) REFERENCES riders(id)
		);

		CREATE TABLE IF NOT EXISTS emergency_alerts (
			id TEXT PRIMARY KEY,
			rider_id TEXT NOT NULL,
			ride_id TEXT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			location_link TEXT NOT NULL,
			tracking_link TEXT NOT NULL,
			tracking_expiry DATETIME NOT NULL,
			alert_type TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT,
			resolved_at DATETIME,
			resolved_by TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (rider_id) REFERENCES riders(id)
		);

		CREATE INDEX IF NOT EXISTS idx_contacts_rider_id ON emergency_contacts(rider_id);
		CREATE INDEX IF NOT EXISTS idx_alerts_status ON emergency_alerts(status);
		CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON emergency_alerts(created_at);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) CreateAlert(ctx context.Context, a *models.EmergencyAlert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emergency_alerts (
			id, rider_id, ride_id, latitude, longitude, location_link,
			tracking_link, tracking_expiry, alert_type, status, message,
			resolved_at, resolved_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.RiderID, a.RideID, a.Latitude, a.Longitude, a.LocationLink,
		a.TrackingLink, a.TrackingExpiry, string(a.AlertType), string(a.Status),
		a.Message, a.ResolvedAt, a.ResolvedBy, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting alert: %w", err)
	}
	return nil
}

const alertColumns = `
	id, rider_id, ride_id, latitude, longitude, location_link,
	tracking_link, tracking_expiry, alert_type, status, message,
	resolved_at, resolved_by, created_at, updated_at`

func (s *SQLiteDB) GetAlertByID(ctx context.Context, id string) (*models.EmergencyAlert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM emergency_alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying alert: %w", err)
	}
	return a, nil
}

func (s *SQLiteDB) ListActiveAlerts(ctx context.Context) ([]models.EmergencyAlert, error) {
	return s.listAlerts(ctx,
		`SELECT `+alertColumns+` FROM emergency_alerts WHERE status = ? ORDER BY created_at`,
		string(models.AlertStatusActive))
}

func (s *SQLiteDB) ListAlertsSince(ctx context.Context, since time.Time) ([]models.EmergencyAlert, error) {
	return s.listAlerts(ctx,
		`SELECT `+alertColumns+` FROM emergency_alerts WHERE created_at >= ? ORDER BY created_at`,
		since)
}

func (s *SQLiteDB) listAlerts(ctx context.Context, query string, args ...any) ([]models.EmergencyAlert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.EmergencyAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteDB) ResolveAlert(ctx context.Context, id string, res Resolution) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE emergency_alerts
		SET status = ?, resolved_at = ?, resolved_by = ?, updated_at = ?
		WHERE id = ?`,
		string(res.Status), res.ResolvedAt, res.ResolvedBy, res.ResolvedAt, id,
	)
	if err != nil {
		return fmt.Errorf("error resolving alert: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(row scanner) (*models.EmergencyAlert, error) {
	var (
		a          models.EmergencyAlert
		rideID     sql.NullString
		message    sql.NullString
		resolvedAt sql.NullTime
		resolvedBy sql.NullString
		alertType  string
		status     string
	)
	err := row.Scan(
		&a.ID, &a.RiderID, &rideID, &a.Latitude, &a.Longitude, &a.LocationLink,
		&a.TrackingLink, &a.TrackingExpiry, &alertType, &status, &message,
		&resolvedAt, &resolvedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.AlertType = models.AlertType(alertType)
	a.Status = models.AlertStatus(status)
	if rideID.Valid {
		a.RideID = &rideID.String
	}
	a.Message = message.String
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	if resolvedBy.Valid {
		a.ResolvedBy = &resolvedBy.String
	}
	return &a, nil
}

func (s *SQLiteDB) AddContact(ctx context.Context, c *models.EmergencyContact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emergency_contacts (
			id, rider_id, name, phone, email, relationship, is_primary,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.RiderID, c.Name, c.Phone, c.Email, c.Relationship,
		c.IsPrimary, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting contact: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetContactByID(ctx context.Context, id string) (*models.EmergencyContact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rider_id, name, phone, email, relationship, is_primary, created_at, updated_at
		FROM emergency_contacts WHERE id = ?`, id)

	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying contact: %w", err)
	}
	return c, nil
}

func (s *SQLiteDB) ListContactsForRider(ctx context.Context, riderID string) ([]models.EmergencyContact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rider_id, name, phone, email, relationship, is_primary, created_at, updated_at
		FROM emergency_contacts WHERE rider_id = ? ORDER BY created_at`, riderID)
	if err != nil {
		return nil, fmt.Errorf("error querying contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.EmergencyContact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (s *SQLiteDB) UpdateContact(ctx context.Context, c *models.EmergencyContact) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE emergency_contacts
		SET name = ?, phone = ?, email = ?, relationship = ?, is_primary = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Phone, c.Email, c.Relationship, c.IsPrimary, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating contact: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) DeleteContact(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM emergency_contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting contact: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanContact(row scanner) (*models.EmergencyContact, error) {
	var (
		c            models.EmergencyContact
		email        sql.NullString
		relationship sql.NullString
	)
	err := row.Scan(&c.ID, &c.RiderID, &c.Name, &c.Phone, &email,
		&relationship, &c.IsPrimary, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Email = email.String
	c.Relationship = relationship.String
	return &c, nil
}

func (s *SQLiteDB) FindRider(ctx context.Context, id string) (*models.Rider, error) {
	var (
		r        models.Rider
		lastName sql.NullString
		phone    sql.NullString
		email    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, phone, email FROM riders WHERE id = ?`, id).
		Scan(&r.ID, &r.FirstName, &lastName, &phone, &email)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying rider: %w", err)
	}
	r.LastName = lastName.String
	r.Phone = phone.String
	r.Email = email.String
	return &r, nil
}

func (s *SQLiteDB) FindRide(ctx context.Context, id string) (*models.Ride, error) {
	var (
		r           models.Ride
		driverName  sql.NullString
		driverPhone sql.NullString
		pickup      sql.NullString
		destination sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, rider_id, driver_name, driver_phone, pickup, destination
		FROM rides WHERE id = ?`, id).
		Scan(&r.ID, &r.RiderID, &driverName, &driverPhone, &pickup, &destination)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying ride: %w", err)
	}
	r.DriverName = driverName.String
	r.DriverPhone = driverPhone.String
	r.Pickup = pickup.String
	r.Destination = destination.String
	return &r, nil
}
