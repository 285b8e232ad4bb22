package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/nicolagi/distfs/internal/config"
	"github.com/nicolagi/distfs/internal/rmi"
	"github.com/nicolagi/distfs/internal/storageserver"
)

func main() {
	if err := agent.Listen(agent.Options{}); err != nil {
		log.Printf("Could not start gops agent: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	base := flag.String("base", config.DefaultBaseDirectoryPath, "Base directory for configuration and logs")
	root := flag.String("root", "", "Override the local file root")
	host := flag.String("host", "", "Override the externally routable host advertised to the naming server")
	namingAddr := flag.String("naming-registration-addr", "", "Override the naming server's registration address")
	flag.Parse()

	cfg, err := config.Load(*base)
	if err != nil {
		log.Fatalf("Could not load config from %q: %v", *base, err)
	}
	if *root != "" {
		cfg.Root = *root
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *namingAddr != "" {
		cfg.NamingRegistrationAddr = *namingAddr
	}
	if cfg.Root == "" {
		log.Fatal("Storage server requires a root directory (-root flag or config's \"root\" key)")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.NamingRegistrationAddr == "" {
		cfg.NamingRegistrationAddr = "localhost:6001"
	}

	server := storageserver.New(cfg.Root)
	naming := rmi.RegistrationStub{Network: "tcp", Address: cfg.NamingRegistrationAddr}
	if err := server.Start(cfg.Host, naming); err != nil {
		log.Fatalf("Could not start storage server: %v", err)
	}
	log.Printf("Storage server rooted at %s, registered with naming server at %s", cfg.Root, cfg.NamingRegistrationAddr)

	log.Print("Awaiting a signal to stop.")
	sig := <-sigc
	log.Printf("Got signal %q, stopping.", sig)
	server.Stop()
	agent.Close()
}
