package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE classes worth naming in request logs.
var sqlStateNames = map[string]string{
	"23505": "unique_violation",
	"23503": "foreign_key_violation",
	"23514": "check_violation",
	"23502": "not_null_violation",
	"40001": "serialization_failure",
	"40P01": "deadlock_detected",
	"57014": "query_canceled",
}

// DBFault is the Postgres side of a failed statement.
type DBFault struct {
	SQLState   string `json:"sql_state"`
	Kind       string `json:"kind,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// ErrorDump flattens an error for structured logs. It is never sent to clients.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Retryable  bool     `json:"retryable"`
	Chain      []string `json:"chain,omitempty"`
	DB         *DBFault `json:"db,omitempty"`
}

// Dump walks the wrap chain of err and pulls out the typed code and any
// Postgres error from either the pgx or the lib/pq driver.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(te.Code()).Retryable
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.DB = dbFaultOf(err)
	if d.DB != nil && (d.DB.Kind == "serialization_failure" || d.DB.Kind == "deadlock_detected") {
		d.Retryable = true
	}
	return d
}

// LogFields returns the dump as logger fields.
func (d ErrorDump) LogFields() map[string]any {
	fields := map[string]any{
		"error":           d.TopMessage,
		"error_code":      d.Code,
		"error_chain":     d.Chain,
		"error_retryable": d.Retryable,
	}
	if d.DB != nil {
		fields["pg_code"] = d.DB.SQLState
		fields["pg_kind"] = d.DB.Kind
		fields["pg_constraint"] = d.DB.Constraint
		fields["pg_table"] = d.DB.Table
		fields["pg_detail"] = d.DB.Detail
	}
	return fields
}

func dbFaultOf(err error) *DBFault {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return newDBFault(pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.ColumnName, pgxErr.Detail)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return newDBFault(string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Column, pqErr.Detail)
	}
	return nil
}

func newDBFault(state, constraint, table, column, detail string) *DBFault {
	return &DBFault{
		SQLState:   state,
		Kind:       sqlStateNames[state],
		Constraint: constraint,
		Table:      table,
		Column:     column,
		Detail:     detail,
	}
}
