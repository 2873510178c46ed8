package pgstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goFactor/identity"
)

type execCall struct {
	sql  string
	args []any
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int64:
			*p = r.values[i].(int64)
		case *[]string:
			*p = r.values[i].([]string)
		case *bool:
			*p = r.values[i].(bool)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type fakeDB struct {
	calls []execCall
	tag   pgconn.CommandTag
	err   error
	row   fakeRow
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return f.tag, f.err
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return f.row
}

func TestScanClient(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{
		"u1", "k1", "vmd", "p", "s", "", "JBSWY3DP", "a@b.c", "tok", int64(1700000900),
		[]string{"Basic", "Email"},
	}}}
	got, err := New(db).LookupByAdmissionKey(context.Background(), "k1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.UID)
	require.Equal(t, int64(1700000900), got.EmailExpiry)
	require.Equal(t, identity.NewFactorSet(identity.FactorBasic, identity.FactorEmail), got.Factors)
	require.Contains(t, db.calls[0].sql, "WHERE apikey = $1")
}

func TestNoRowsIsNotFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	_, err := New(db).LookupByID(context.Background(), "u1")
	require.ErrorIs(t, err, identity.ErrNotFound)
	_, err = New(db).LookupService(context.Background(), "svc")
	require.ErrorIs(t, err, identity.ErrNotFound)
}

func TestUniqueViolationIsConflict(t *testing.T) {
	db := &fakeDB{err: &pgconn.PgError{Code: uniqueViolation}}
	err := New(db).Create(context.Background(), identity.Client{UID: "u1", APIKey: "k1"})
	require.ErrorIs(t, err, identity.ErrConflict)
	require.ErrorIs(t, New(db).SaveService(context.Background(), identity.Service{Name: "a"}), identity.ErrConflict)
}

func TestUpdateFieldUsesColumnAndTypedExpiry(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	s := New(db)
	ctx := context.Background()

	require.NoError(t, s.UpdateField(ctx, "u1", identity.FieldEmailExpiry, "1700000900"))
	require.True(t, strings.Contains(db.calls[0].sql, "SET email_expiry = $2"))
	require.Equal(t, int64(1700000900), db.calls[0].args[1])

	require.NoError(t, s.UpdateField(ctx, "u1", identity.FieldTOTPKey, "ABC"))
	require.Contains(t, db.calls[1].sql, "SET totp_key = $2")

	require.ErrorIs(t, s.UpdateField(ctx, "u1", identity.Field(99), "x"), identity.ErrInvalidField)
	require.Len(t, db.calls, 2)
}

func TestZeroRowsIsNotFound(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
	s := New(db)
	ctx := context.Background()

	require.ErrorIs(t, s.AddFactor(ctx, "u1", identity.FactorTOTP), identity.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, "u1"), identity.ErrNotFound)
	require.ErrorIs(t, s.UpdateField(ctx, "u1", identity.FieldEmail, "x"), identity.ErrNotFound)
}

func TestAddFactorIsSingleStatement(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	require.NoError(t, New(db).AddFactor(context.Background(), "u1", identity.FactorTOTP))
	require.Len(t, db.calls, 1)
	require.Contains(t, db.calls[0].sql, "array_append")
	require.Equal(t, "Totp", db.calls[0].args[1])
}

func TestBackendErrorIsUnavailable(t *testing.T) {
	db := &fakeDB{err: errors.New("connection reset")}
	require.ErrorIs(t, New(db).Delete(context.Background(), "u1"), identity.ErrUnavailable)
	require.ErrorIs(t, New(db).Migrate(context.Background()), identity.ErrUnavailable)
}

func TestSetTOTPKeyIfAbsentGuardsInTheUpdate(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	set, err := New(db).SetTOTPKeyIfAbsent(context.Background(), "u1", "JBSWY3DP")
	require.NoError(t, err)
	require.True(t, set)
	require.Len(t, db.calls, 1)
	require.Contains(t, db.calls[0].sql, "WHERE uid = $1 AND totp_key = ''")
	require.Equal(t, []any{"u1", "JBSWY3DP"}, db.calls[0].args)
}

func TestSetTOTPKeyIfAbsentKeepsExistingKey(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0"), row: fakeRow{values: []any{true}}}
	set, err := New(db).SetTOTPKeyIfAbsent(context.Background(), "u1", "JBSWY3DP")
	require.NoError(t, err)
	require.False(t, set)
	require.Len(t, db.calls, 2)
}

func TestSetTOTPKeyIfAbsentUnknownUID(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0"), row: fakeRow{values: []any{false}}}
	_, err := New(db).SetTOTPKeyIfAbsent(context.Background(), "u1", "JBSWY3DP")
	require.ErrorIs(t, err, identity.ErrNotFound)
}
