// Package config defines the canonical, file-serializable configuration model
// for the housing ETL. Field names mirror the structure of the pipeline file
// (JSON by default; YAML and TOML are accepted by Load).
//
// Example (trimmed):
//
//	{
//	  "job": "housing_etl",
//	  "sources": {
//	    "housing": { "kind": "file", "file": { "path": "data/housing.csv" } },
//	    "income":  { "kind": "file", "file": { "path": "data/income.csv" } },
//	    "zip":     { "kind": "http", "http": { "url": "https://example.org/zip.csv" } }
//	  },
//	  "parser":  { "kind": "csv", "options": { "has_header": true, "trim_space": true } },
//	  "repair":  { "housing": { "total_rooms": { "low": 1000, "high": 2001 } } },
//	  "storage": { "kind": "sqlite", "db": { "dsn": "housing.db", "table": "housing" } }
//	}
package config

import "encoding/json"

// Pipeline describes a full run. It is the top-level object of a pipeline
// file.
type Pipeline struct {
	// Job names the run for logs and metrics.
	Job string `json:"job" mapstructure:"job" validate:"required"`

	// Sources locates the three extracts.
	Sources Sources `json:"sources" mapstructure:"sources"`

	// Parser configures how raw bytes are turned into datasets.
	Parser Parser `json:"parser" mapstructure:"parser"`

	// Repair holds the per-column repair ranges and reconciliation settings.
	Repair Repair `json:"repair" mapstructure:"repair"`

	// Storage describes where the merged records are written.
	Storage Storage `json:"storage" mapstructure:"storage"`

	Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`
	Metrics Metrics       `json:"metrics" mapstructure:"metrics"`
}

// Sources holds one Source per extract.
type Sources struct {
	Housing Source `json:"housing" mapstructure:"housing"`
	Income  Source `json:"income" mapstructure:"income"`
	Zip     Source `json:"zip" mapstructure:"zip"`
}

// Source identifies where one extract comes from.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind" mapstructure:"kind" validate:"required,oneof=file http"`

	File SourceFile `json:"file" mapstructure:"file"`
	HTTP SourceHTTP `json:"http" mapstructure:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path" mapstructure:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL string `json:"url" mapstructure:"url"`

	// MaxRetries is the number of retries after the first attempt on 5xx/429
	// and transport errors.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries" validate:"gte=0"`

	// TimeoutSeconds bounds each request. Zero uses the client default.
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds" validate:"gte=0"`
}

// Parser selects how to parse the raw sources into datasets.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `json:"kind" mapstructure:"kind" validate:"required,eq=csv"`

	// Options is a free-form map interpreted by the parser implementation.
	// For CSV: has_header (bool), comma (string), trim_space (bool),
	// expected_fields (int), header_map (object), encoding (string).
	Options Options `json:"options" mapstructure:"options"`
}

// Range is a half-open [Low, High) integer range.
type Range struct {
	Low  int `json:"low" mapstructure:"low"`
	High int `json:"high" mapstructure:"high"`
}

// Zip propagation strategies.
const (
	PropagateByGUID     = "guid"
	PropagatePositional = "positional"
)

// Repair configures the repair and reconciliation steps.
type Repair struct {
	// Housing and Income map a column to the range random replacements are
	// drawn from.
	Housing map[string]Range `json:"housing" mapstructure:"housing"`
	Income  map[string]Range `json:"income" mapstructure:"income"`

	KeyColumn   string `json:"key_column" mapstructure:"key_column" validate:"required"`
	ZipColumn   string `json:"zip_column" mapstructure:"zip_column" validate:"required"`
	CityColumn  string `json:"city_column" mapstructure:"city_column" validate:"required"`
	StateColumn string `json:"state_column" mapstructure:"state_column" validate:"required"`

	// ZipPropagation selects how reconciled zips reach housing and income:
	// "guid" (keyed lookup, default) or "positional" (row index alignment).
	ZipPropagation string `json:"zip_propagation" mapstructure:"zip_propagation" validate:"oneof=guid positional"`

	// Seed makes random replacements reproducible when non-zero.
	Seed uint64 `json:"seed" mapstructure:"seed"`

	// StrictResidual fails the run when a corrupt value survives into the
	// merged output. When false the values are logged and loaded as-is.
	StrictResidual bool `json:"strict_residual" mapstructure:"strict_residual"`
}

// Storage selects the sink used to persist merged records.
type Storage struct {
	// Kind selects the storage implementation: sqlite, postgres, mysql, mssql.
	Kind string `json:"kind" mapstructure:"kind" validate:"required,oneof=sqlite postgres mysql mssql"`

	DB DBConfig `json:"db" mapstructure:"db"`
}

// DBConfig configures the DB sink.
type DBConfig struct {
	// DSN is the driver connection string.
	DSN string `json:"dsn" mapstructure:"dsn" validate:"required"`

	// Table is the destination table name (e.g., "housing" or "public.housing").
	Table string `json:"table" mapstructure:"table" validate:"required"`

	// Columns enumerates the destination columns in insert order. Empty
	// means the standard merged housing columns.
	Columns []string `json:"columns" mapstructure:"columns"`

	// AutoCreateTable creates the table before loading when it is missing.
	AutoCreateTable bool `json:"auto_create_table" mapstructure:"auto_create_table"`

	// ConnectRetries is the number of extra connection attempts.
	ConnectRetries int `json:"connect_retries" mapstructure:"connect_retries" validate:"gte=0"`
}

// RuntimeConfig controls batching of the load.
type RuntimeConfig struct {
	BatchSize     int `json:"batch_size" mapstructure:"batch_size" validate:"gte=0"`
	ChannelBuffer int `json:"channel_buffer" mapstructure:"channel_buffer" validate:"gte=0"`
}

// Metrics selects a metrics backend.
type Metrics struct {
	// Backend is "none", "pushgateway" or "datadog".
	Backend        string `json:"backend" mapstructure:"backend" validate:"omitempty,oneof=none pushgateway datadog"`
	PushgatewayURL string `json:"pushgateway_url" mapstructure:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" mapstructure:"datadog_addr"`
}

// DefaultHousingRanges are the replacement ranges for corrupt housing
// figures.
func DefaultHousingRanges() map[string]Range {
	return map[string]Range{
		"housing_median_age": {Low: 10, High: 51},
		"total_rooms":        {Low: 1000, High: 2001},
		"total_bedrooms":     {Low: 1000, High: 2001},
		"population":         {Low: 5000, High: 10001},
		"households":         {Low: 500, High: 2501},
		"median_house_value": {Low: 100001, High: 250001},
	}
}

// DefaultIncomeRanges are the replacement ranges for corrupt income figures.
func DefaultIncomeRanges() map[string]Range {
	return map[string]Range{
		"median_income": {Low: 100000, High: 750001},
	}
}

// Options is a small helper to fetch typed values from arbitrary maps. It
// performs only minimal type coercion and returns provided defaults when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. Decoders hand numbers over as
// float64 or int64 depending on the file format, so both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		switch m := v.(type) {
		case map[string]any:
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		case map[string]string:
			for k, s := range m {
				res[k] = s
			}
		}
	}
	return res
}

// UnmarshalJSON makes a missing or null "options" object decode to a
// non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
