package config

import (
	"flag"
	"io"
	"time"
)

// commandLine keeps the parsed flags until the other layers are applied.
type commandLine struct {
	configFile string
	set        map[string]bool

	addr       string
	dsn        string
	secret     string
	ttlMinutes int
	logLevel   string
	uploadDir  string
	backend    string
}

// parseFlags reads the supported flags from args.
//
// Supported flags:
//
//	-c, -config string  path to a JSON config file
//	-a string           HTTP bind address (e.g. ":8080")
//	-d string           PostgreSQL DSN; empty keeps the in-memory store
//	-s string           JWT HMAC secret key
//	-t int              access token validity, minutes
//	-l string           log level (debug, info, warn, error)
//	-u string           upload directory for the local backend
//	-b string           upload backend (local, s3)
func parseFlags(args []string) (*commandLine, error) {
	cl := &commandLine{set: make(map[string]bool)}

	fs := flag.NewFlagSet("gophauth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cl.configFile, "config", "", "path to config file")
	fs.StringVar(&cl.configFile, "c", "", "path to config file (short)")
	fs.StringVar(&cl.addr, "a", "", "address and port to run server")
	fs.StringVar(&cl.dsn, "d", "", "database DSN")
	fs.StringVar(&cl.secret, "s", "", "secret key")
	fs.IntVar(&cl.ttlMinutes, "t", 0, "access token validity (in minutes)")
	fs.StringVar(&cl.logLevel, "l", "", "log level")
	fs.StringVar(&cl.uploadDir, "u", "", "upload directory")
	fs.StringVar(&cl.backend, "b", "", "upload backend")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) { cl.set[f.Name] = true })

	return cl, nil
}

// apply copies explicitly passed flags into config.
func (cl *commandLine) apply(config *Config) {
	if cl.set["a"] {
		config.EndpointAddrHTTP = cl.addr
	}
	if cl.set["d"] {
		config.DatabaseDSN = cl.dsn
	}
	if cl.set["s"] {
		config.SecretKey = cl.secret
	}
	if cl.set["t"] {
		config.AccessTokenValidityDuration = time.Duration(cl.ttlMinutes) * time.Minute
	}
	if cl.set["l"] {
		config.LogLevel = cl.logLevel
	}
	if cl.set["u"] {
		config.UploadDir = cl.uploadDir
	}
	if cl.set["b"] {
		config.UploadBackend = cl.backend
	}
}
