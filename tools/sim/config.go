package sim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/clktmr/mobile/drivers/mobile/adapter"
	"github.com/clktmr/mobile/drivers/mobile/simulator"
	"github.com/clktmr/mobile/gba/timer"
)

// Config is the configuration of the sim command.
type Config struct {
	Adapter simulator.Config
	Log     string
	Trace   string
	Script  string
}

func addFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "config file (default ./mobilego.yaml)")
	flags.String("device", "blue", "adapter: blue, yellow, green or red")
	flags.Int("timer", 3, "timer used by the driver (0-3)")
	flags.Int("latency", 0, "idle transfers before each response")
	flags.Int("incoming-call-after", 0, "polls before a call arrives, 0 for never")
	flags.Bool("reject-dial", false, "fail every dial attempt")
	flags.Int("dial-error", 0, "error code of rejected dial attempts")
	flags.Int("corrupt-checksums", 0, "responses sent with a wrong checksum")
	flags.Int("reject-packets", 0, "commands rejected with an internal error")
	flags.Bool("disconnected", false, "simulate a missing adapter")
	flags.Bool("session-active", false, "start with a session left open")
	flags.String("log", "info", "driver log level: debug, info, warn or error")
	flags.String("trace", "", "record all transfers to file")
	flags.StringP("script", "s", "", "read commands from file instead of stdin")
}

// loadConfig merges the config file, MOBILEGO_* environment variables and
// flags, in increasing priority.
func loadConfig(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, err
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("mobilego")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("MOBILEGO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	dev, err := parseDevice(v.GetString("device"))
	if err != nil {
		return Config{}, err
	}
	id := v.GetInt("timer")
	if id < 0 || id > int(timer.Timer3) {
		return Config{}, fmt.Errorf("invalid timer: %d", id)
	}
	code := v.GetInt("dial-error")
	if code < 0 || code > 0xff {
		return Config{}, fmt.Errorf("invalid dial error code: %d", code)
	}

	return Config{
		Adapter: simulator.Config{
			Device:            dev,
			Timer:             timer.ID(id),
			Latency:           v.GetInt("latency"),
			IncomingCallAfter: v.GetInt("incoming-call-after"),
			RejectDial:        v.GetBool("reject-dial"),
			DialErrorCode:     byte(code),
			CorruptChecksums:  v.GetInt("corrupt-checksums"),
			RejectPackets:     v.GetInt("reject-packets"),
			Disconnected:      v.GetBool("disconnected"),
			SessionActive:     v.GetBool("session-active"),
		},
		Log:    v.GetString("log"),
		Trace:  v.GetString("trace"),
		Script: v.GetString("script"),
	}, nil
}

var devices = []adapter.Device{adapter.Blue, adapter.Yellow, adapter.Green, adapter.Red}

func parseDevice(s string) (adapter.Device, error) {
	for _, dev := range devices {
		if strings.EqualFold(dev.String(), s) {
			return dev, nil
		}
	}
	return 0, fmt.Errorf("unknown device: %q", s)
}
