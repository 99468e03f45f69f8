package domain

// DatabaseDriver represents the type of database engine.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// DatabaseConnection holds what is needed to reach the target store.
// URL, when set, is used verbatim as the driver DSN.
type DatabaseConnection struct {
	Driver   DatabaseDriver `json:"driver" yaml:"driver"`
	Host     string         `json:"host" yaml:"host"`
	Port     int            `json:"port" yaml:"port"`         // 0 selects the driver default
	Database string         `json:"database" yaml:"database"` // db name, or file path for sqlite
	Username string         `json:"username" yaml:"username"`
	Password string         `json:"-" yaml:"password"`
	SSLMode  string         `json:"sslMode" yaml:"ssl_mode"`
	URL      string         `json:"-" yaml:"url"`
}
