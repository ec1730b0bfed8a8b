package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/mailadapter/internal/notification"
	"github.com/shaharia-lab/mailadapter/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteNotificationStore {
	t.Helper()
	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewSQLiteNotificationStore(db)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestSQLiteNotificationStore_UserEmailLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, storage.User{ID: "456", Email: "user@example.com"}))
	require.NoError(t, store.CreateNotification(ctx, &notification.Notification{
		ID:        "123",
		Recipient: notification.UserRecipient{UserID: "456"},
	}))

	t.Run("known notification", func(t *testing.T) {
		email, err := store.GetUserEmailFromNotification(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", email)
	})

	t.Run("unknown notification", func(t *testing.T) {
		email, err := store.GetUserEmailFromNotification(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, email)
	})

	t.Run("updated user email", func(t *testing.T) {
		require.NoError(t, store.CreateUser(ctx, storage.User{ID: "456", Email: "new@example.com"}))
		email, err := store.GetUserEmailFromNotification(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", email)
	})
}

func TestSQLiteNotificationStore_OneOffHasNoUserEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateNotification(ctx, &notification.Notification{
		ID:        "oneoff-1",
		Recipient: notification.OneOffRecipient{EmailOrPhone: "oneoff@example.com", FirstName: "John"},
	}))

	email, err := store.GetUserEmailFromNotification(ctx, "oneoff-1")
	require.NoError(t, err)
	assert.Empty(t, email)

	n, err := store.GetNotification(ctx, "oneoff-1")
	require.NoError(t, err)
	r, ok := n.OneOff()
	require.True(t, ok)
	assert.Equal(t, "oneoff@example.com", r.EmailOrPhone)
	assert.Equal(t, "John", r.FirstName)
}

func TestSQLiteNotificationStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	att1, err := storage.NewLocalAttachment(writeFile(t, "document.pdf", "file 1 content"), "")
	require.NoError(t, err)
	att2, err := storage.NewLocalAttachment(writeFile(t, "notes.txt", "file 2 content"), "text/plain")
	require.NoError(t, err)

	require.NoError(t, store.CreateUser(ctx, storage.User{ID: "456", Email: "user@example.com"}))
	in := &notification.Notification{
		ID:                "123",
		Recipient:         notification.UserRecipient{UserID: "456"},
		ContextName:       "welcome",
		ContextParameters: map[string]any{"plan": "pro"},
		Title:             "Welcome",
		SubjectTemplate:   "Welcome {{.plan}}",
		BodyTemplate:      "<p>Hi</p>",
		ExtraParams:       map[string]any{"campaign": "spring"},
		Attachments:       []notification.Attachment{att1, att2},
	}
	require.NoError(t, store.CreateNotification(ctx, in))

	got, err := store.GetNotification(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, "456", got.UserID())
	assert.False(t, got.IsOneOff())
	assert.Equal(t, notification.TypeEmail, got.NotificationType)
	assert.Equal(t, notification.StatusPendingSend, got.Status)
	assert.Equal(t, "welcome", got.ContextName)
	assert.Equal(t, "pro", got.ContextParameters["plan"])
	assert.Equal(t, "spring", got.ExtraParams["campaign"])
	assert.Equal(t, "Welcome {{.plan}}", got.SubjectTemplate)
	assert.Nil(t, got.SendAfter)

	require.Len(t, got.Attachments, 2)
	assert.Equal(t, "document.pdf", got.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", got.Attachments[0].ContentType)
	assert.EqualValues(t, 14, got.Attachments[0].Size)
	assert.Equal(t, att1.Checksum, got.Attachments[0].Checksum)
	assert.Equal(t, "notes.txt", got.Attachments[1].Filename)
	assert.Equal(t, "text/plain", got.Attachments[1].ContentType)

	content, err := got.Attachments[1].File.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file 2 content", string(content))
}

func TestSQLiteNotificationStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetNotification(context.Background(), "missing")
	var nf *storage.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "notification", nf.Resource)
	assert.Equal(t, "missing", nf.ID)
}

func TestSQLiteNotificationStore_CreateRequiresID(t *testing.T) {
	store := newTestStore(t)

	err := store.CreateNotification(context.Background(), &notification.Notification{})
	require.ErrorIs(t, err, notification.ErrMissingIdentifier)
}

func TestSQLiteNotificationStore_PendingAndStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	for i, n := range []*notification.Notification{
		{ID: "due", Recipient: notification.OneOffRecipient{EmailOrPhone: "a@example.com"}, CreatedAt: now.Add(-3 * time.Minute)},
		{ID: "scheduled-past", Recipient: notification.OneOffRecipient{EmailOrPhone: "b@example.com"}, SendAfter: &past, CreatedAt: now.Add(-2 * time.Minute)},
		{ID: "scheduled-future", Recipient: notification.OneOffRecipient{EmailOrPhone: "c@example.com"}, SendAfter: &future, CreatedAt: now.Add(-time.Minute)},
	} {
		require.NoError(t, store.CreateNotification(ctx, n), "notification %d", i)
	}

	pending, err := store.ListPendingNotifications(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "due", pending[0].ID)
	assert.Equal(t, "scheduled-past", pending[1].ID)

	limited, err := store.ListPendingNotifications(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	require.NoError(t, store.MarkAsSent(ctx, "due", notification.AdapterKey, now))
	require.NoError(t, store.MarkAsFailed(ctx, "scheduled-past", notification.AdapterKey))

	pending, err = store.ListPendingNotifications(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	sent, err := store.GetNotification(ctx, "due")
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	failed, err := store.GetNotification(ctx, "scheduled-past")
	require.NoError(t, err)
	assert.Equal(t, notification.StatusFailed, failed.Status)

	var nf *storage.NotFoundError
	require.ErrorAs(t, store.MarkAsSent(ctx, "missing", notification.AdapterKey, now), &nf)
}

func TestSQLiteNotificationStore_Log(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("log and list", func(t *testing.T) {
		entry := storage.NotificationLogEntry{
			NotificationID: "123",
			Adapter:        notification.AdapterKey,
			Recipient:      "user@example.com",
			Subject:        "Test Subject",
			Status:         storage.LogStatusSent,
			CreatedAt:      time.Now().UTC().Add(-time.Minute).Truncate(time.Second),
		}
		require.NoError(t, store.LogNotification(ctx, entry))

		list, err := store.ListNotifications(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)

		got := list[0]
		assert.Equal(t, entry.NotificationID, got.NotificationID)
		assert.Equal(t, entry.Adapter, got.Adapter)
		assert.Equal(t, entry.Recipient, got.Recipient)
		assert.Equal(t, entry.Subject, got.Subject)
		assert.Equal(t, entry.Status, got.Status)
		assert.Empty(t, got.ErrorMsg)
	})

	t.Run("failed status", func(t *testing.T) {
		entry := storage.NotificationLogEntry{
			NotificationID: "124",
			Adapter:        notification.AdapterKey,
			Status:         storage.LogStatusFailed,
			ErrorMsg:       "connection refused",
			CreatedAt:      time.Now().UTC(),
		}
		require.NoError(t, store.LogNotification(ctx, entry))

		list, err := store.ListNotifications(ctx, 10)
		require.NoError(t, err)
		// Latest entry is first.
		assert.Equal(t, storage.LogStatusFailed, list[0].Status)
		assert.Equal(t, "connection refused", list[0].ErrorMsg)
	})

	t.Run("default limit", func(t *testing.T) {
		list, err := store.ListNotifications(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}

func TestSQLiteNotificationStore_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	n := func() *notification.Notification {
		return &notification.Notification{ID: "dup", Recipient: notification.OneOffRecipient{EmailOrPhone: "a@example.com"}}
	}

	require.NoError(t, store.CreateNotification(ctx, n()))

	err := store.CreateNotification(ctx, n())
	var exists *storage.AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "dup", exists.ID)
	assert.Equal(t, `notification "dup" already exists`, err.Error())
}

func TestSQLiteNotificationStore_TransitionStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateNotification(ctx, &notification.Notification{
		ID: "n-1", Recipient: notification.OneOffRecipient{EmailOrPhone: "a@example.com"},
	}))

	ok, err := store.TransitionStatus(ctx, "n-1", notification.StatusQueued, notification.StatusPendingSend)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TransitionStatus(ctx, "n-1", notification.StatusQueued, notification.StatusPendingSend)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")

	ok, err = store.TransitionStatus(ctx, "n-1", notification.StatusSending,
		notification.StatusPendingSend, notification.StatusQueued, notification.StatusFailed)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetNotification(ctx, "n-1")
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSending, got.Status)

	pending, err := store.ListPendingNotifications(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	ok, err = store.TransitionStatus(ctx, "missing", notification.StatusSending, notification.StatusPendingSend)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.TransitionStatus(ctx, "n-1", notification.StatusSending)
	require.Error(t, err)
}

func TestSQLiteNotificationStore_PendingLimitSkipsScheduled(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	future := now.Add(time.Hour)

	// The oldest row is scheduled later, so the limit must apply after the send_after filter.
	require.NoError(t, store.CreateNotification(ctx, &notification.Notification{
		ID: "later", Recipient: notification.OneOffRecipient{EmailOrPhone: "a@example.com"},
		SendAfter: &future, CreatedAt: now.Add(-2 * time.Minute),
	}))
	require.NoError(t, store.CreateNotification(ctx, &notification.Notification{
		ID: "now", Recipient: notification.OneOffRecipient{EmailOrPhone: "b@example.com"},
		CreatedAt: now.Add(-time.Minute),
	}))

	pending, err := store.ListPendingNotifications(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "now", pending[0].ID)
}
