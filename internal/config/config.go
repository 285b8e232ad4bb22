// Package config encapsulates configuration for both distfs server
// processes (naming server, storage server), in the style of the teacher's
// own config package: a simple "key value" text file (not the doc-comment's
// aspirational JSON — bufio.Scanner over whitespace-separated lines is what
// the teacher's loader actually does, and that is the idiom distfs follows)
// stored at $base/config, with paths derived from the base directory.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBaseDirectoryPath is where distfs server processes store
// configuration and logs by default. It is $DISTFS_BASE if set, otherwise
// $HOME/lib/distfs. Commands override this via the -base flag.
var DefaultBaseDirectoryPath string

func init() {
	if base := os.Getenv("DISTFS_BASE"); base != "" {
		DefaultBaseDirectoryPath = base
	} else {
		DefaultBaseDirectoryPath = os.ExpandEnv("$HOME/lib/distfs")
	}
}

// C is the configuration for one server process. Not every field applies
// to every role: a naming server reads ClientListenAddr,
// RegistrationListenAddr and ReplicationThreshold/ReplicationFraction/
// MaxReplicas; a storage server reads Root, Host and NamingRegistrationAddr.
// Unused fields are simply left at their zero value.
type C struct {
	// ClientListenAddr is the naming server's client surface (spec §6
	// default ":6000").
	ClientListenAddr string
	// RegistrationListenAddr is the naming server's registration surface
	// (spec §6 default ":6001").
	RegistrationListenAddr string

	// ReplicationThreshold, ReplicationFraction and MaxReplicas are the
	// naming server's policy tunables (spec §4.5, §9): M, alpha and the
	// replica cap, respectively. Zero means "use the built-in default".
	ReplicationThreshold int
	ReplicationFraction  float64
	MaxReplicas          int

	// Root is a storage server's local file root.
	Root string
	// Host is the externally routable host a storage server advertises in
	// the stubs it registers with the naming server.
	Host string
	// NamingRegistrationAddr is where a storage server reaches the naming
	// server's registration surface at startup.
	NamingRegistrationAddr string

	// base is the directory this configuration was loaded from.
	base string
}

// Load loads the configuration from the file called "config" in base. A
// missing file is not an error: every field simply keeps its zero value,
// so a fresh deployment can run entirely off flags and defaults.
func Load(base string) (*C, error) {
	c := &C{base: base}
	f, err := os.Open(filepath.Join(base, "config"))
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	defer func() { _ = f.Close() }()
	return load(f, c)
}

func load(r io.Reader, c *C) (*C, error) {
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		i := strings.IndexAny(line, " \t")
		if i == -1 {
			return nil, fmt.Errorf("config.load: no separator in %q", line)
		}
		key, val := line[:i], strings.TrimSpace(line[i:])
		switch key {
		case "client-listen-addr":
			c.ClientListenAddr = val
		case "registration-listen-addr":
			c.RegistrationListenAddr = val
		case "root":
			c.Root = val
		case "host":
			c.Host = val
		case "naming-registration-addr":
			c.NamingRegistrationAddr = val
		case "replication-threshold":
			if _, err := fmt.Sscanf(val, "%d", &c.ReplicationThreshold); err != nil {
				return nil, fmt.Errorf("config.load: %q: %w", line, err)
			}
		case "replication-fraction":
			if _, err := fmt.Sscanf(val, "%g", &c.ReplicationFraction); err != nil {
				return nil, fmt.Errorf("config.load: %q: %w", line, err)
			}
		case "max-replicas":
			if _, err := fmt.Sscanf(val, "%d", &c.MaxReplicas); err != nil {
				return nil, fmt.Errorf("config.load: %q: %w", line, err)
			}
		default:
			return nil, fmt.Errorf("config.load: unknown key %q", key)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("config.load: %w", err)
	}
	return c, nil
}

// LogFilePath is the path to this process's log file.
func (c *C) LogFilePath() string {
	return filepath.Join(c.base, "log")
}
