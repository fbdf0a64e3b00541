package repo

import (
	"errors"
	"fmt"

	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/go-sql-driver/mysql"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrNoReferencedRow = 1452
)

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}

// productWriteError maps a failed product insert/update to a use-case kind.
func productWriteError(err error, categoryID *int64) error {
	if isMySQLError(err, mysqlErrNoReferencedRow) && categoryID != nil {
		return fmt.Errorf("%w: category %d does not exist", usecase.ErrInvalidInput, *categoryID)
	}
	return err
}
