package repository

import sq "github.com/Masterminds/squirrel"

// psql is the shared Squirrel statement builder configured for PostgreSQL dollar placeholders.
// Every value reaches the database as a bind parameter.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
