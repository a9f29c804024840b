package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// DefaultPageSize is the number of rows fetched per page when none is set.
const DefaultPageSize = 50000

type DBConfig struct {
	Type         string `yaml:"type" toml:"type" json:"type"`
	Host         string `yaml:"host" toml:"host" json:"host"`
	Port         int    `yaml:"port" toml:"port" json:"port"`
	Username     string `yaml:"username" toml:"username" json:"username"`
	Password     string `yaml:"password" toml:"password" json:"password"`
	DatabaseName string `yaml:"database_name" toml:"database_name" json:"database_name"`
	Charset      string `yaml:"charset" toml:"charset" json:"charset"`
	DSN          string `yaml:"dsn" toml:"dsn" json:"dsn"` // optional explicit DSN
}

// RunConfig is what a run should do once connected.
type RunConfig struct {
	Search  StringList `yaml:"search" toml:"search" json:"search"`
	Replace StringList `yaml:"replace" toml:"replace" json:"replace"`
	Regex   bool       `yaml:"regex" toml:"regex" json:"regex"`

	Tables         []string `yaml:"tables" toml:"tables" json:"tables"`
	ExcludeTables  []string `yaml:"exclude_tables" toml:"exclude_tables" json:"exclude_tables"`
	IncludeColumns []string `yaml:"include_columns" toml:"include_columns" json:"include_columns"`
	ExcludeColumns []string `yaml:"exclude_columns" toml:"exclude_columns" json:"exclude_columns"`

	PageSize int  `yaml:"page_size" toml:"page_size" json:"page_size"`
	DryRun   bool `yaml:"dry_run" toml:"dry_run" json:"dry_run"`

	AlterEngine    string `yaml:"alter_engine" toml:"alter_engine" json:"alter_engine"`
	AlterCollation string `yaml:"alter_collation" toml:"alter_collation" json:"alter_collation"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level" json:"level"`
	Format string `yaml:"format" toml:"format" json:"format"` // text or json
}

type AppConfig struct {
	Database DBConfig  `yaml:"database" toml:"database" json:"database"`
	Run      RunConfig `yaml:"run" toml:"run" json:"run"`
	Log      LogConfig `yaml:"log" toml:"log" json:"log"`
}

// LoadFile loads a YAML or, for *.toml paths, TOML config from path.
func LoadFile(path string) (AppConfig, error) {
	var cfg AppConfig
	f, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(f, &cfg); err != nil {
			return AppConfig{}, err
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// StringList is a list that may be written as a single string.
type StringList []string

// ParseStringList reads a command-line value: a JSON array of strings, or
// otherwise the raw value as a single entry.
func ParseStringList(raw string) StringList {
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return list
		}
	}
	return StringList{raw}
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
}

// UnmarshalTOML accepts a string or an array of strings.
func (l *StringList) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		*l = StringList{v}
		return nil
	case []interface{}:
		list := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected a string, got %T", item)
			}
			list = append(list, s)
		}
		*l = list
		return nil
	}
	return fmt.Errorf("expected a string or a list of strings, got %T", data)
}

// SplitList splits a comma separated flag value, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Mode is the kind of work a run does.
type Mode int

const (
	ModeReplace Mode = iota
	ModeAlterEngine
	ModeAlterCollation
)

func (m Mode) String() string {
	switch m {
	case ModeAlterEngine:
		return "alter-engine"
	case ModeAlterCollation:
		return "alter-collation"
	default:
		return "search-replace"
	}
}

// Mode reports which of the mutually exclusive modes is requested.
func (r RunConfig) Mode() Mode {
	switch {
	case r.AlterEngine != "":
		return ModeAlterEngine
	case r.AlterCollation != "":
		return ModeAlterCollation
	default:
		return ModeReplace
	}
}

// Pair is one search value and its replacement.
type Pair struct {
	Search  string
	Replace string
}

// Pairs pairs search and replace values by position. A single replace value
// applies to every search value.
func (r RunConfig) Pairs() ([]Pair, error) {
	if len(r.Search) == 0 {
		return nil, errors.New("search is required")
	}
	if len(r.Replace) == 0 {
		return nil, errors.New("replace is required (an empty string deletes matches)")
	}
	if len(r.Replace) != 1 && len(r.Replace) != len(r.Search) {
		return nil, fmt.Errorf("got %d search values but %d replace values", len(r.Search), len(r.Replace))
	}
	pairs := make([]Pair, len(r.Search))
	for i, s := range r.Search {
		if s == "" {
			return nil, fmt.Errorf("search value %d is empty", i+1)
		}
		rep := r.Replace[0]
		if len(r.Replace) > 1 {
			rep = r.Replace[i]
		}
		pairs[i] = Pair{Search: s, Replace: rep}
	}
	return pairs, nil
}

// Validate checks the run settings before anything is touched.
func (r RunConfig) Validate() error {
	if r.AlterEngine != "" && r.AlterCollation != "" {
		return errors.New("alter_engine and alter_collation cannot be used together")
	}
	if r.PageSize < 0 {
		return fmt.Errorf("page_size must be positive, got %d", r.PageSize)
	}
	if r.Mode() != ModeReplace {
		if len(r.Search) > 0 {
			return fmt.Errorf("%s cannot be combined with search/replace", r.Mode())
		}
		return nil
	}
	_, err := r.Pairs()
	return err
}

// EffectivePageSize returns PageSize, or DefaultPageSize when unset.
func (r RunConfig) EffectivePageSize() int {
	if r.PageSize <= 0 {
		return DefaultPageSize
	}
	return r.PageSize
}

// NormalizeDriver maps common aliases to canonical keys (keeps backwards compat).
func NormalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "postgresql", "pg", "postgres":
		return "postgres"
	case "mysql", "mariadb":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	case "mssql", "sqlserver":
		return "sqlserver"
	case "godror", "oracle":
		return "godror"
	default:
		return strings.ToLower(d)
	}
}

var defaultPorts = map[string]int{
	"mysql":     3306,
	"postgres":  5432,
	"sqlserver": 1433,
	"godror":    1521,
}

// BuildDriverAndDSN produces a driver name and DSN string for supported DB types.
func BuildDriverAndDSN(db DBConfig) (driver string, dsn string, err error) {
	// If explicit DSN provided, user must also set Type to choose driver or we guess
	t := NormalizeDriver(db.Type)
	if t == "" {
		t = "mysql"
	}

	if db.DSN != "" {
		return t, db.DSN, nil
	}

	host := db.Host
	if host == "" {
		host = "localhost"
	}
	port := db.Port
	if port == 0 {
		port = defaultPorts[t]
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	switch t {
	case "postgres":
		driver = "postgres"
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.Username, db.Password),
			Host:     addr,
			Path:     "/" + db.DatabaseName,
			RawQuery: "sslmode=disable",
		}
		if db.Charset != "" {
			u.RawQuery += "&client_encoding=" + url.QueryEscape(db.Charset)
		}
		dsn = u.String()
	case "mysql":
		driver = "mysql"
		c := mysql.NewConfig()
		c.User = db.Username
		c.Passwd = db.Password
		c.Net = "tcp"
		c.Addr = addr
		c.DBName = db.DatabaseName
		if db.Charset != "" {
			c.Params = map[string]string{"charset": db.Charset}
		}
		dsn = c.FormatDSN()
	case "sqlite":
		driver = "sqlite"
		if db.DatabaseName == "" {
			return "", "", fmt.Errorf("sqlite needs a file path in database_name")
		}
		dsn = fmt.Sprintf("file:%s", db.DatabaseName)
	case "sqlserver":
		driver = "sqlserver"
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(db.Username, db.Password),
			Host:     addr,
			RawQuery: url.Values{"database": {db.DatabaseName}}.Encode(),
		}
		dsn = u.String()
	case "godror":
		driver = "godror"
		// simple EZCONNECT style; may need adjustments per environment
		dsn = fmt.Sprintf("%s/%s@%s/%s",
			db.Username, db.Password, addr, db.DatabaseName)
	default:
		err = fmt.Errorf("unsupported database type: %s", db.Type)
	}
	return
}
