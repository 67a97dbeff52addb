package config

import (
	"encoding/json"
	"log"
	"os"

	"github.com/pkg/errors"
)

type Config struct {
	General struct {
		Logconfig string `json:"logconfig"`
		Pidfile   string `json:"pidfile"`
	} `json:"general"`

	Stat struct {
		Logfile       string `json:"logfile"`
		Shards        int    `json:"shards"`
		ReaffirmEvery uint64 `json:"reaffirmEvery"`
		QueueSize     int    `json:"queueSize"`
	} `json:"stat"`

	// output type => output specific config
	Outputs map[string]json.RawMessage `json:"outputs"`

	ClientProfile map[string]*Profile `json:"ClientProfile"`
}

type Profile struct {
	ClientId        string `json:"clientId"`
	TLS             bool   `json:"tls"`
	TLSNoVerify     bool   `json:"tlsNoverify"`
	TLSCertFilePath string `json:"tlsCertfilepath"`
	TLSKeyFilePath  string `json:"tlsKeyfilepath"`
	TLSCAFilePath   string `json:"tlsCafilepath"`
}

type Sasl struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

const (
	DefaultLogfile   = "rpl-stat.log"
	DefaultQueueSize = 1000
)

func ReadConfig(cfgFile string) *Config {
	cfg, err := Load(cfgFile)
	errAndExit(err)
	return cfg
}

func Load(cfgFile string) (*Config, error) {
	var cfg Config
	f, err := os.OpenFile(cfgFile, os.O_RDONLY, 0660)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()
	if err = json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", cfgFile)
	}

	cfg.Init()
	return &cfg, nil
}

func (cfg *Config) Init() {
	if cfg.Stat.Logfile == "" {
		cfg.Stat.Logfile = DefaultLogfile
	}
	if cfg.Stat.QueueSize <= 0 {
		cfg.Stat.QueueSize = DefaultQueueSize
	}
	if cfg.ClientProfile == nil {
		cfg.ClientProfile = make(map[string]*Profile)
	}
	if _, ok := cfg.ClientProfile["default"]; !ok {
		cfg.ClientProfile["default"] = &Profile{
			ClientId: "rplstat",
			TLS:      false,
		}
	}
}

func errAndExit(err error) {
	if err != nil {
		log.Fatalf("Failed to load config: %s", err)
	}
}
