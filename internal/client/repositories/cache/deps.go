package cache

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
)

// Deps carries the backend handles New may need.
type Deps struct {
	DB    *sql.DB
	Redis redis.Cmdable
}
