package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds the values the binaries read from config file, environment
// or defaults. Fields map 1:1 to viper keys.
type Settings struct {
	LogLevel string

	Relay struct {
		Address     string
		ListenPort  uint
		SessionName string
		SweepRate   int
	}

	Master struct {
		URL        string
		ListenPort int
		TTLSeconds int
	}

	Client struct {
		Nickname string
		TickRate int
	}
}

// LoadSettings reads configuration with viper: defaults first, then an
// optional stardrift.yaml next to the binary, then STARDRIFT_* environment
// variables. A missing config file is not an error.
func LoadSettings() (*Settings, error) {
	v := viper.New()

	v.SetDefault("logLevel", "info")

	v.SetDefault("relay.address", "localhost:7373")
	v.SetDefault("relay.listenPort", 7373)
	v.SetDefault("relay.sessionName", "Stardrift Session")
	v.SetDefault("relay.sweepRate", 2)

	v.SetDefault("master.url", "")
	v.SetDefault("master.listenPort", 8080)
	v.SetDefault("master.ttlSeconds", 90)

	v.SetDefault("client.nickname", "")
	v.SetDefault("client.tickRate", 30)

	v.SetConfigName("stardrift")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("stardrift")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	s := &Settings{}
	s.LogLevel = v.GetString("logLevel")

	s.Relay.Address = v.GetString("relay.address")
	s.Relay.ListenPort = uint(v.GetUint("relay.listenPort"))
	s.Relay.SessionName = v.GetString("relay.sessionName")
	s.Relay.SweepRate = v.GetInt("relay.sweepRate")

	s.Master.URL = v.GetString("master.url")
	s.Master.ListenPort = v.GetInt("master.listenPort")
	s.Master.TTLSeconds = v.GetInt("master.ttlSeconds")

	s.Client.Nickname = v.GetString("client.nickname")
	s.Client.TickRate = v.GetInt("client.tickRate")

	return s, nil
}
