// Package repository holds the GORM-backed persistence for bookings and
// the court catalog, together with the sentinel errors shared by its
// stores.  Higher layers translate these into domain errors; for
// example ErrDuplicateSlot means the booking_slots unique index refused a
// claim and is reported to callers as a slot conflict.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a booking or court lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateSlot is returned when inserting booking_slots rows violates
// the (court_id, booking_date, slot_label) unique index.  It means another
// booking claimed one of the slots between the conflict scan and the
// insert.
var ErrDuplicateSlot = errors.New("slot already claimed")

// MySQL server error numbers.
const (
	mysqlDuplicateEntry   = 1062
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlockRollback = 1213
)

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// isRetryable reports whether InnoDB aborted the transaction because of lock
// contention.  Two bookings scanning the same empty court/date range hold
// compatible gap locks and deadlock on insert, so the loser is rerun.
func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlDeadlockRollback || me.Number == mysqlLockWaitTimeout
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
