package commands

import (
	"fmt"
	"time"
	"utregister/lib/configutil"
	configlibsql "utregister/lib/configutil/libsql"
	"utregister/lib/notify"
	"utregister/lib/registrar"
	"utregister/lib/registrar/nonce"
	"utregister/lib/registrar/term"
)

type Config struct {
	Year     int    `json:"year"`
	Semester string `json:"semester"`

	BaseUrl          string `json:"base_url"`
	MinNonceCount    int    `json:"min_nonce_count"`
	MaxNonceCount    int    `json:"max_nonce_count"`
	CookieFile       string `json:"cookie_file"`
	StudentEid       string `json:"student_eid"`
	Timezone         string `json:"timezone"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`

	Database configlibsql.Struct `json:"database"`
	Notify   notify.Config       `json:"notify"`
}

var defaultConfig = Config{
	BaseUrl:       registrar.DefaultBaseUrl,
	MinNonceCount: nonce.DefaultMinCount,
	MaxNonceCount: nonce.DefaultMaxCount,
	CookieFile:    "<dev_state>/cookies.json",
	Timezone:      "America/Chicago",
	Database: configlibsql.Struct{
		File: "<dev_state>/regstore.db",
	},
}

func loadConfig() (Config, error) {
	config, err := configutil.ReadConfigWithDefaults(*configPath, defaultConfig)
	if err != nil {
		return Config{}, err
	}
	if config.Year == 0 || config.Semester == "" {
		return Config{}, fmt.Errorf("%s must specify a year and semester", *configPath)
	}
	return config, nil
}

func (c Config) Term() (term.Term, error) {
	semester, err := term.ParseSemester(c.Semester)
	if err != nil {
		return term.Term{}, err
	}
	return term.New(c.Year, semester)
}

func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
