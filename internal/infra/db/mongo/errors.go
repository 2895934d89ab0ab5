package mongo

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"stayscape/internal/app/uow"
	domainbooking "stayscape/internal/domain/booking"
)

const transientTxnLabel = "TransientTransactionError"

// storageErr tags driver failures of the booking engine as retryable.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w: %s: %w", domainbooking.ErrStorage, uow.ErrTransient, op, err)
	}
	return fmt.Errorf("%w: %s: %w", domainbooking.ErrStorage, op, err)
}

// driverErr wraps a failure of the other repositories, keeping the
// transient marker so the unit can be run again.
func driverErr(op string, err error) error {
	if isTransient(err) {
		return fmt.Errorf("mongo: %s: %w: %w", op, uow.ErrTransient, err)
	}
	return fmt.Errorf("mongo: %s: %w", op, err)
}

// isTransient reports write conflicts and other aborts the server labels as
// safe to retry from the start of the transaction.
func isTransient(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorLabel(transientTxnLabel)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
