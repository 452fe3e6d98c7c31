//go:build !sqlite

package storage

import "errors"

var errSQLiteUnavailable = errors.New("sqlite study store not compiled in; build with -tags sqlite")

func newSQLiteStore(string) (Store, error) {
	return nil, errSQLiteUnavailable
}
