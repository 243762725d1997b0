package repository

import (
	"testing"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/stretchr/testify/assert"
)

func TestCreateTableQuotesPerDialect(t *testing.T) {
	cols := func() []*entsql.ColumnBuilder {
		return []*entsql.ColumnBuilder{
			entsql.Column("id").Type("varchar(36) NOT NULL"),
			entsql.Column("n").Type("integer"),
		}
	}
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "t" ("id" varchar(36) NOT NULL, "n" integer, PRIMARY KEY ("id"))`,
		createTable(dialect.Postgres, "t", []string{"id"}, nil, cols()...))
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS `t` (`id` varchar(36) NOT NULL, `n` integer, PRIMARY KEY (`id`))",
		createTable(dialect.SQLite, "t", []string{"id"}, nil, cols()...))
}

func TestCreateTableUnique(t *testing.T) {
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "t" ("id" varchar(36) NOT NULL, PRIMARY KEY ("id"), UNIQUE ("a", "b"))`,
		createTable(dialect.Postgres, "t", []string{"id"}, []string{"a", "b"},
			entsql.Column("id").Type("varchar(36) NOT NULL")))
}

func TestCreateIndex(t *testing.T) {
	assert.Equal(t,
		`CREATE INDEX IF NOT EXISTS "idx" ON "t" ("a", "b")`,
		createIndex(dialect.Postgres, "idx", "t", "a", "b"))
}
