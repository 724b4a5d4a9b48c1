package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. HOUSINGETL_STORAGE_DB_DSN.
const EnvPrefix = "HOUSINGETL"

// Load reads the pipeline file at path, applies defaults and environment
// overrides, and decodes the result. The format follows the file extension
// (json, yaml, toml). A ".env" file in the working directory is loaded first
// when present; variables already set in the environment win.
//
// Load does not validate; call ValidatePipeline on the result.
func Load(path string) (Pipeline, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Pipeline{}, fmt.Errorf("config: load .env: %w", err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Pipeline{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return decode(v)
}

// Defaults returns the configuration used when no file sets a value. It is
// a complete pipeline except for source locations and the storage DSN.
func Defaults() (Pipeline, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("job", "housing_etl")

	for _, name := range []string{"housing", "income", "zip"} {
		v.SetDefault("sources."+name+".kind", "file")
		v.SetDefault("sources."+name+".file.path", "")
		v.SetDefault("sources."+name+".http.url", "")
		v.SetDefault("sources."+name+".http.max_retries", 3)
	}

	v.SetDefault("parser.kind", "csv")
	v.SetDefault("parser.options.has_header", true)
	v.SetDefault("parser.options.trim_space", true)
	v.SetDefault("parser.options.comma", ",")

	v.SetDefault("repair.key_column", "guid")
	v.SetDefault("repair.zip_column", "zip_code")
	v.SetDefault("repair.city_column", "city")
	v.SetDefault("repair.state_column", "state")
	v.SetDefault("repair.zip_propagation", PropagateByGUID)
	v.SetDefault("repair.seed", 0)
	v.SetDefault("repair.strict_residual", true)

	v.SetDefault("storage.kind", "sqlite")
	v.SetDefault("storage.db.dsn", "")
	v.SetDefault("storage.db.table", "housing")
	v.SetDefault("storage.db.auto_create_table", true)
	v.SetDefault("storage.db.connect_retries", 3)

	v.SetDefault("runtime.batch_size", 500)
	v.SetDefault("runtime.channel_buffer", 1000)

	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.datadog_addr", "")
}

func decode(v *viper.Viper) (Pipeline, error) {
	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, fmt.Errorf("config: decode: %w", err)
	}
	// Range maps are not viper defaults: viper deep-merges default maps
	// into file maps, which would make it impossible to drop a column.
	if p.Repair.Housing == nil {
		p.Repair.Housing = DefaultHousingRanges()
	}
	if p.Repair.Income == nil {
		p.Repair.Income = DefaultIncomeRanges()
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	return p, nil
}
