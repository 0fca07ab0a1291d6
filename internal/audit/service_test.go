package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"backend/internal/submission"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&submission.ActivityLog{}))
	return db
}

func insertLogs(t *testing.T, db *gorm.DB, logs []submission.ActivityLog) {
	t.Helper()
	for i := range logs {
		require.NoError(t, db.Create(&logs[i]).Error)
	}
}

func TestQueryLogsFilters(t *testing.T) {
	db := setupAuditTestDB(t)
	svc := NewService(db)
	now := time.Now().UTC()

	insertLogs(t, db, []submission.ActivityLog{
		{SubmissionID: "sub-1", UserID: "u-1", Action: submission.ActionSubmissionCreated, Timestamp: now},
		{SubmissionID: "sub-1", UserID: "u-1", Action: submission.ActionSubmissionSubmitted, Timestamp: now.Add(time.Second)},
		{SubmissionID: "sub-2", UserID: "u-2", Action: submission.ActionStepApproved, Timestamp: now.Add(2 * time.Second)},
	})

	logs, total, err := svc.QueryLogs(context.Background(), &Query{SubmissionID: "sub-1"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, logs, 2)

	logs, total, err = svc.QueryLogs(context.Background(), &Query{UserID: "u-2"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, submission.ActionStepApproved, logs[0].Action)

	logs, total, err = svc.QueryLogs(context.Background(), &Query{Action: submission.ActionSubmissionCreated})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
}

func TestQueryLogsOrdering(t *testing.T) {
	db := setupAuditTestDB(t)
	svc := NewService(db)
	now := time.Now().UTC().Truncate(time.Second)

	// 相同时间戳下按插入顺序倒序
	insertLogs(t, db, []submission.ActivityLog{
		{SubmissionID: "sub-1", UserID: "u-1", Action: "FIRST", Timestamp: now},
		{SubmissionID: "sub-1", UserID: "u-1", Action: "SECOND", Timestamp: now},
		{SubmissionID: "sub-1", UserID: "u-1", Action: "NEWEST", Timestamp: now.Add(time.Minute)},
	})

	logs, _, err := svc.QueryLogs(context.Background(), &Query{SubmissionID: "sub-1"})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	require.Equal(t, "NEWEST", logs[0].Action)
	require.Equal(t, "SECOND", logs[1].Action)
	require.Equal(t, "FIRST", logs[2].Action)
}

func TestQueryLogsPagination(t *testing.T) {
	db := setupAuditTestDB(t)
	svc := NewService(db)
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		insertLogs(t, db, []submission.ActivityLog{
			{SubmissionID: "sub-1", UserID: "u-1", Action: fmt.Sprintf("ACTION_%d", i), Timestamp: now.Add(time.Duration(i) * time.Second)},
		})
	}

	logs, total, err := svc.QueryLogs(context.Background(), &Query{SubmissionID: "sub-1", Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, logs, 2)
	require.Equal(t, "ACTION_4", logs[0].Action)

	logs, _, err = svc.QueryLogs(context.Background(), &Query{SubmissionID: "sub-1", Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "ACTION_0", logs[0].Action)
}
