package cmd

import (
	"github.com/spf13/pflag"

	"github.com/joeblew999/pwaserve/internal/config"
)

// serverFlags are the flags shared by serve and service.
type serverFlags struct {
	configFile string
	dir        string
	port       int
	profile    string
	bind       string
	headers    []string
	watch      bool
}

func (f *serverFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configFile, "config", "c", "", "Config file (default: ./"+config.DefaultFile+" if present)")
	fs.StringVar(&f.dir, "dir", config.DefaultRoot, "Asset root directory")
	fs.IntVarP(&f.port, "port", "p", 0, "Port to listen on (default: 8000 for dev, 8080 for hardened)")
	fs.StringVar(&f.profile, "profile", config.DefaultProfile, "Header profile: dev or hardened")
	fs.StringVar(&f.bind, "bind", config.DefaultBind, "Address to listen on")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, "Extra response header as Name=value (repeatable)")
	fs.BoolVarP(&f.watch, "watch", "w", false, "Log when files under the asset root change")
}

// resolve layers the flags that were set, and the positional port,
// over the file and environment configuration.
func (f *serverFlags) resolve(fs *pflag.FlagSet, args []string) (config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return cfg, err
	}

	if fs.Changed("dir") {
		cfg.Root = f.dir
	}
	if fs.Changed("port") {
		cfg.Port = f.port
	}
	if fs.Changed("profile") {
		cfg.Profile = f.profile
	}
	if fs.Changed("bind") {
		cfg.Bind = f.bind
	}
	if fs.Changed("watch") {
		cfg.Watch = f.watch
	}
	if fs.Changed("header") {
		extra, err := config.ParseHeaders(f.headers)
		if err != nil {
			return cfg, err
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(extra))
		}
		for name, value := range extra {
			cfg.Headers[name] = value
		}
	}

	if len(args) > 0 {
		port, err := config.ParsePort(args[0])
		if err != nil {
			return cfg, err
		}
		cfg.Port = port
	}

	return cfg, cfg.Validate()
}
