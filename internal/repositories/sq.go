package repositories

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
)

var SqBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var ErrBadQuery = errors.New("bad query")

// UniqueViolation is the postgres SQLSTATE for a duplicate key.
const UniqueViolation = "23505"
