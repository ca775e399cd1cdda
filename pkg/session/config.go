package session

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/ethanbaker/callsim/pkg/utils"
	"github.com/go-sql-driver/mysql"
)

// Backend bundles the store and catalog chosen by configuration. Close releases the store
type Backend struct {
	Store   Store
	Catalog Catalog
	Close   func() error
}

// BackendFromConfig builds the store named by STORE ("mysql" or "memory", default "mysql").
// SUBJECTS_FILE selects a YAML catalog; with MySQL it is also upserted into the catalog
// tables, and without it MySQL serves the catalog tables directly
func BackendFromConfig(ctx context.Context, cfg *utils.Config) (*Backend, error) {
	var fileCatalog *FileCatalog
	if path := cfg.Get("SUBJECTS_FILE"); path != "" {
		catalog, err := LoadFileCatalog(path)
		if err != nil {
			return nil, err
		}
		fileCatalog = catalog
	}

	switch kind := strings.ToLower(cfg.GetWithDefault("STORE", "mysql")); kind {
	case "memory":
		if fileCatalog == nil {
			return nil, fmt.Errorf("SUBJECTS_FILE is required with the memory store")
		}
		return &Backend{
			Store:   NewInMemoryStore(),
			Catalog: fileCatalog,
			Close:   func() error { return nil },
		}, nil

	case "mysql":
		store, err := NewMySqlStore(MySqlDSN(cfg))
		if err != nil {
			return nil, err
		}

		backend := &Backend{Store: store, Catalog: store, Close: store.Close}
		if fileCatalog != nil {
			if err := store.SaveMachines(ctx, fileCatalog.Machines()); err != nil {
				store.Close()
				return nil, err
			}
		}
		return backend, nil

	default:
		return nil, fmt.Errorf("unknown STORE %q (expected mysql or memory)", kind)
	}
}

// MySqlDSN formats the connection string from the MYSQL_* settings
func MySqlDSN(cfg *utils.Config) string {
	dbConfig := mysql.Config{
		User:                 cfg.Get("MYSQL_USER"),
		Passwd:               cfg.Get("MYSQL_PASSWORD"),
		Net:                  "tcp",
		Addr:                 net.JoinHostPort(cfg.GetWithDefault("MYSQL_HOST", "127.0.0.1"), cfg.GetWithDefault("MYSQL_PORT", "3306")),
		DBName:               cfg.Get("MYSQL_DATABASE"),
		ParseTime:            true,
		AllowNativePasswords: true,
	}
	return dbConfig.FormatDSN()
}
