package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/shaharia-lab/mailadapter/internal/notification"
)

const notificationColumns = `id, user_id, email_or_phone, first_name, last_name, notification_type,
	context_name, context_parameters, title, subject_template, body_template, extra_params,
	status, send_after, sent_at, created_at`

// SQLiteNotificationStore implements NotificationStore backed by SQLite.
type SQLiteNotificationStore struct {
	db *sql.DB
}

var _ NotificationStore = (*SQLiteNotificationStore)(nil)

// NewSQLiteNotificationStore returns a new SQLiteNotificationStore.
func NewSQLiteNotificationStore(db *sql.DB) *SQLiteNotificationStore {
	return &SQLiteNotificationStore{db: db}
}

// GetUserEmailFromNotification returns the email of the user a notification is
// addressed to. It returns "" when the notification or its user is unknown.
func (s *SQLiteNotificationStore) GetUserEmailFromNotification(ctx context.Context, notificationID string) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx, `
		SELECT u.email
		FROM notifications n
		JOIN users u ON u.id = n.user_id
		WHERE n.id = ?`, notificationID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying user email for notification %q: %w", notificationID, err)
	}
	return email, nil
}

// CreateUser inserts a user or replaces an existing one with the same ID.
func (s *SQLiteNotificationStore) CreateUser(ctx context.Context, u User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name`,
		u.ID, u.Email, u.FirstName, u.LastName, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user %q: %w", u.ID, err)
	}
	return nil
}

// CreateNotification inserts n and its attachments in a single transaction.
// Attachments must be backed by LocalFile.
func (s *SQLiteNotificationStore) CreateNotification(ctx context.Context, n *notification.Notification) error {
	if n.ID == "" {
		return notification.ErrMissingIdentifier
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Status == "" {
		n.Status = notification.StatusPendingSend
	}
	if n.NotificationType == "" {
		n.NotificationType = notification.TypeEmail
	}

	ctxParams, err := encodeJSON(n.ContextParameters)
	if err != nil {
		return fmt.Errorf("encoding context parameters: %w", err)
	}
	extra, err := encodeJSON(n.ExtraParams)
	if err != nil {
		return fmt.Errorf("encoding extra params: %w", err)
	}

	var userID sql.NullString
	oneOff, isOneOff := n.OneOff()
	if !isOneOff {
		userID = sql.NullString{String: n.UserID(), Valid: n.UserID() != ""}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("failed to rollback notification insert: %v", rbErr)
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, userID, oneOff.EmailOrPhone, oneOff.FirstName, oneOff.LastName, n.NotificationType,
		n.ContextName, ctxParams, n.Title, n.SubjectTemplate, n.BodyTemplate, extra,
		n.Status, nullTime(n.SendAfter), nullTime(n.SentAt), n.CreatedAt,
	)
	if isPrimaryKeyViolation(err) {
		return &AlreadyExistsError{Resource: "notification", ID: n.ID}
	}
	if err != nil {
		return fmt.Errorf("inserting notification %q: %w", n.ID, err)
	}

	for i, att := range n.Attachments {
		lf, ok := att.File.(LocalFile)
		if !ok {
			return fmt.Errorf("attachment %q: unsupported file type %T", att.Filename, att.File)
		}
		if att.CreatedAt.IsZero() {
			att.CreatedAt = n.CreatedAt
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attachment_files (id, filename, content_type, size, checksum, storage_path, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			att.FileID, att.Filename, att.ContentType, att.Size, att.Checksum, lf.Path, att.CreatedAt,
		); err != nil {
			return fmt.Errorf("inserting attachment file %q: %w", att.Filename, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO notification_attachments (id, notification_id, file_id, description, position, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			att.ID, n.ID, att.FileID, att.Description, i, att.CreatedAt,
		); err != nil {
			return fmt.Errorf("linking attachment %q: %w", att.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notification %q: %w", n.ID, err)
	}
	return nil
}

// GetNotification loads a notification and its attachments.
func (s *SQLiteNotificationStore) GetNotification(ctx context.Context, id string) (*notification.Notification, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "notification", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("querying notification %q: %w", id, err)
	}

	if n.Attachments, err = s.attachments(ctx, id); err != nil {
		return nil, err
	}
	return n, nil
}

// ListPendingNotifications returns pending notifications due at now, oldest first.
func (s *SQLiteNotificationStore) ListPendingNotifications(
	ctx context.Context, now time.Time, limit int,
) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = ? AND (send_after IS NULL OR send_after <= ?)
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, notification.StatusPendingSend, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("querying pending notifications: %w", err)
	}

	var pending []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		pending = append(pending, n)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterating notification rows: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("closing rows: %w", err)
	}

	// Attachments are loaded after the cursor is closed: the database allows a
	// single open connection.
	for _, n := range pending {
		if n.Attachments, err = s.attachments(ctx, n.ID); err != nil {
			return nil, err
		}
	}
	return pending, nil
}

// TransitionStatus updates the status of id to to when its current status is
// one of from. The check and the update are a single statement.
func (s *SQLiteNotificationStore) TransitionStatus(ctx context.Context, id, to string, from ...string) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition of notification %q to %s: no source status", id, to)
	}
	args := make([]any, 0, len(from)+2)
	args = append(args, to, id)
	for _, st := range from {
		args = append(args, st)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")

	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = ? WHERE id = ? AND status IN (`+placeholders+`)`, args...)
	if err != nil {
		return false, fmt.Errorf("updating status of notification %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating status of notification %q: %w", id, err)
	}
	return n == 1, nil
}

// MarkAsSent sets the notification status to SENT.
func (s *SQLiteNotificationStore) MarkAsSent(ctx context.Context, id, adapterKey string, at time.Time) error {
	return s.updateStatus(ctx, id, `UPDATE notifications SET status = ?, adapter_used = ?, sent_at = ? WHERE id = ?`,
		notification.StatusSent, adapterKey, at.UTC(), id)
}

// MarkAsFailed sets the notification status to FAILED.
func (s *SQLiteNotificationStore) MarkAsFailed(ctx context.Context, id, adapterKey string) error {
	return s.updateStatus(ctx, id, `UPDATE notifications SET status = ?, adapter_used = ? WHERE id = ?`,
		notification.StatusFailed, adapterKey, id)
}

func (s *SQLiteNotificationStore) updateStatus(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating notification %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating notification %q: %w", id, err)
	}
	if n == 0 {
		return &NotFoundError{Resource: "notification", ID: id}
	}
	return nil
}

// LogNotification inserts a notification delivery record into the database.
func (s *SQLiteNotificationStore) LogNotification(ctx context.Context, entry NotificationLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_log (notification_id, adapter, recipient, subject, status, error_msg, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.NotificationID, entry.Adapter, entry.Recipient, entry.Subject,
		entry.Status, entry.ErrorMsg, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting notification log: %w", err)
	}
	return nil
}

// ListNotifications returns the most recent log entries ordered by created_at descending.
func (s *SQLiteNotificationStore) ListNotifications(ctx context.Context, limit int) ([]NotificationLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, notification_id, adapter, recipient, subject, status, error_msg, created_at
		FROM notification_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notification log: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	var entries []NotificationLogEntry
	for rows.Next() {
		var e NotificationLogEntry
		if err := rows.Scan(&e.ID, &e.NotificationID, &e.Adapter, &e.Recipient, &e.Subject,
			&e.Status, &e.ErrorMsg, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification log rows: %w", err)
	}
	return entries, nil
}

// attachments loads the attachments of a notification in their stored order.
func (s *SQLiteNotificationStore) attachments(ctx context.Context, notificationID string) ([]notification.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT na.id, f.id, f.filename, f.content_type, f.size, f.checksum, na.description,
		       f.storage_path, na.created_at
		FROM notification_attachments na
		JOIN attachment_files f ON f.id = na.file_id
		WHERE na.notification_id = ?
		ORDER BY na.position ASC`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("querying attachments for notification %q: %w", notificationID, err)
	}
	defer rows.Close() //nolint:errcheck

	var out []notification.Attachment
	for rows.Next() {
		var a notification.Attachment
		var path string
		if err := rows.Scan(&a.ID, &a.FileID, &a.Filename, &a.ContentType, &a.Size, &a.Checksum,
			&a.Description, &path, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning attachment row: %w", err)
		}
		a.File = LocalFile{Path: path}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attachment rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*notification.Notification, error) {
	var (
		n                   notification.Notification
		userID              sql.NullString
		emailOrPhone        string
		firstName, lastName string
		ctxParams, extra    string
		sendAfter, sentAt   sql.NullTime
	)
	if err := row.Scan(&n.ID, &userID, &emailOrPhone, &firstName, &lastName, &n.NotificationType,
		&n.ContextName, &ctxParams, &n.Title, &n.SubjectTemplate, &n.BodyTemplate, &extra,
		&n.Status, &sendAfter, &sentAt, &n.CreatedAt); err != nil {
		return nil, err
	}

	if userID.Valid {
		n.Recipient = notification.UserRecipient{UserID: userID.String}
	} else {
		n.Recipient = notification.OneOffRecipient{
			EmailOrPhone: emailOrPhone,
			FirstName:    firstName,
			LastName:     lastName,
		}
	}
	if err := decodeJSON(ctxParams, &n.ContextParameters); err != nil {
		return nil, fmt.Errorf("decoding context parameters of %q: %w", n.ID, err)
	}
	if err := decodeJSON(extra, &n.ExtraParams); err != nil {
		return nil, fmt.Errorf("decoding extra params of %q: %w", n.ID, err)
	}
	if sendAfter.Valid {
		t := sendAfter.Time
		n.SendAfter = &t
	}
	if sentAt.Valid {
		t := sentAt.Time
		n.SentAt = &t
	}
	return &n, nil
}

func isPrimaryKeyViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func encodeJSON(v map[string]any) (string, error) {
	if len(v) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(raw string, v *map[string]any) error {
	if raw == "" || raw == "{}" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
