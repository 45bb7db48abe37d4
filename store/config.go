package store

import "github.com/kelseyhightower/envconfig"

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

type Config struct {
	DatabaseName string `envconfig:"CLINIC_DATABASE_NAME" default:"clinic"`
	Hosts        string `envconfig:"CLINIC_STORE_ADDRESSES" default:"localhost"`
	OptParams    string `envconfig:"CLINIC_STORE_OPT_PARAMS"`
	Password     string `envconfig:"CLINIC_STORE_PASSWORD"`
	Scheme       string `envconfig:"CLINIC_STORE_SCHEME" default:"mongodb"`
	Ssl          bool   `envconfig:"CLINIC_STORE_TLS"`
	User         string `envconfig:"CLINIC_STORE_USERNAME"`
}

func (c *Config) GetConnectionString() (string, error) {
	cs := "mongodb://"
	if c.Scheme != "" {
		cs = c.Scheme + "://"
	}

	if c.User != "" {
		cs += c.User
		if c.Password != "" {
			cs += ":" + c.Password
		}
		cs += "@"
	}

	if c.Hosts != "" {
		cs += c.Hosts
	} else {
		cs += "localhost"
	}
	cs += "/"

	if c.Ssl {
		cs += "?ssl=true"
	} else {
		cs += "?ssl=false"
	}

	if c.OptParams != "" {
		cs += "&" + c.OptParams
	}
	return cs, nil
}
