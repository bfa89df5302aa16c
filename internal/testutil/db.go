// Package testutil provides sqlite-backed fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/himalthapa1/EduConnect/internal/db"
	"github.com/himalthapa1/EduConnect/internal/models"
)

var dbSeq atomic.Int64

// OpenDB returns a migrated in-memory sqlite database private to t.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenSQLite(fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1)))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// User inserts a user.
func User(t testing.TB, gdb *gorm.DB, username string) models.User {
	t.Helper()
	u := models.User{Username: username}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

// Group inserts a group created by creator. The creator is a member, like
// every other id in members.
func Group(t testing.TB, gdb *gorm.DB, creator uint, members ...uint) models.StudyGroup {
	t.Helper()
	g := models.StudyGroup{Name: "group", CreatorID: creator}
	g.Members = append(g.Members, models.GroupMember{UserID: creator})
	for _, m := range members {
		if m != creator {
			g.Members = append(g.Members, models.GroupMember{UserID: m})
		}
	}
	require.NoError(t, gdb.Create(&g).Error)
	return g
}

// Session inserts a session organised by organizer. The organizer is not
// listed as a participant.
func Session(t testing.TB, gdb *gorm.DB, organizer uint, participants ...uint) models.StudySession {
	t.Helper()
	s := models.StudySession{Title: "session", OrganizerID: organizer}
	for _, p := range participants {
		s.Participants = append(s.Participants, models.SessionParticipant{UserID: p})
	}
	require.NoError(t, gdb.Create(&s).Error)
	return s
}
