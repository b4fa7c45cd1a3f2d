package licenses

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
	"github.com/dmitrijs2005/gophstream/internal/suite"
	"github.com/google/go-cmp/cmp"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func sampleLicense() *models.License {
	return &models.License{
		Username:        "alice",
		PasswordDigests: map[suite.Digest][]byte{suite.SHA512: {1}, suite.BLAKE2: {2}},
		ViewsRemaining:  4,
		ExpiresAt:       time.Date(2025, 1, 1, 12, 5, 0, 0, time.UTC),
		Certificate:     []byte("der"),
		CreatedAt:       time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

const insertPG = `(?s)^INSERT\s+INTO\s+licenses\s*\(username,\s*password_digests,\s*views_remaining,\s*expires_at,\s*certificate,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*ON\s+CONFLICT\s*\(username\)\s*DO\s+NOTHING\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	lic := sampleLicense()
	digests, err := encodeDigests(lic.PasswordDigests)
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec(insertPG).
		WithArgs("alice", digests, 4, lic.ExpiresAt, []byte("der"), lic.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), lic); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_Conflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertPG).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), sampleLicense())
	if !errors.Is(err, common.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertPG).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sampleLicense())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

const selectPG = `(?s)^SELECT\s+username,\s*password_digests,\s*views_remaining,\s*expires_at,\s*certificate,\s*created_at\s+FROM\s+licenses\s+WHERE\s+username\s*=\s*\$1\s*$`

func TestGetByUsername_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	want := sampleLicense()
	digests, _ := encodeDigests(want.PasswordDigests)

	rows := sqlmock.NewRows([]string{"username", "password_digests", "views_remaining", "expires_at", "certificate", "created_at"}).
		AddRow("alice", digests, 4, want.ExpiresAt, []byte("der"), want.CreatedAt)
	mock.ExpectQuery(selectPG).WithArgs("alice").WillReturnRows(rows)

	got, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("license mismatch (-want +got):\n%s", diff)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectPG).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	if !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetByUsername_CorruptDigests(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"username", "password_digests", "views_remaining", "expires_at", "certificate", "created_at"}).
		AddRow("alice", "{not json", 4, time.Now(), []byte("der"), time.Now())
	mock.ExpectQuery(selectPG).WithArgs("alice").WillReturnRows(rows)

	if _, err := repo.GetByUsername(context.Background(), "alice"); err == nil {
		t.Fatal("expected decode error")
	}
}

const updatePG = `(?s)^UPDATE\s+licenses\s+SET\s+views_remaining\s*=\s*\$2,\s*expires_at\s*=\s*\$3\s+WHERE\s+username\s*=\s*\$1\s*$`

func TestUpdateUsage(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	exp := time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC)
	mock.ExpectExec(updatePG).WithArgs("alice", 3, exp).WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdateUsage(context.Background(), "alice", 3, exp); err != nil {
		t.Fatalf("UpdateUsage error: %v", err)
	}

	mock.ExpectExec(updatePG).WithArgs("ghost", 3, exp).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.UpdateUsage(context.Background(), "ghost", 3, exp); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
