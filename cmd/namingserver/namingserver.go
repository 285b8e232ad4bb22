package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/nicolagi/distfs/internal/config"
	"github.com/nicolagi/distfs/internal/nameserver"
	"github.com/nicolagi/distfs/internal/rmi"
)

func main() {
	if err := agent.Listen(agent.Options{}); err != nil {
		log.Printf("Could not start gops agent: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	base := flag.String("base", config.DefaultBaseDirectoryPath, "Base directory for configuration and logs")
	clientAddr := flag.String("client-listen-addr", "", "Override the client surface listen address")
	registrationAddr := flag.String("registration-listen-addr", "", "Override the registration surface listen address")
	flag.Parse()

	cfg, err := config.Load(*base)
	if err != nil {
		log.Fatalf("Could not load config from %q: %v", *base, err)
	}
	if *clientAddr != "" {
		cfg.ClientListenAddr = *clientAddr
	}
	if *registrationAddr != "" {
		cfg.RegistrationListenAddr = *registrationAddr
	}
	if cfg.ClientListenAddr == "" {
		cfg.ClientListenAddr = ":6000"
	}
	if cfg.RegistrationListenAddr == "" {
		cfg.RegistrationListenAddr = ":6001"
	}

	policy := nameserver.NewPolicy()
	if cfg.ReplicationThreshold != 0 {
		policy.M = cfg.ReplicationThreshold
	}
	if cfg.ReplicationFraction != 0 {
		policy.Alpha = cfg.ReplicationFraction
	}
	if cfg.MaxReplicas != 0 {
		policy.MaxReplicas = cfg.MaxReplicas
	}
	server := nameserver.New(policy)

	clientSkeleton, err := rmi.NewSkeleton(rmi.ServiceName, rmi.NewServiceFacade(server), "tcp", cfg.ClientListenAddr)
	if err != nil {
		log.Fatalf("Could not build client skeleton: %v", err)
	}
	clientSkeleton.ServiceError = func(err error) {
		log.Printf("client surface: service error: %v", err)
	}
	if err := clientSkeleton.Start(); err != nil {
		log.Fatalf("Could not start client surface on %s: %v", cfg.ClientListenAddr, err)
	}
	fmt.Printf("Naming server client surface listening on %s\n", clientSkeleton.Addr())

	registrationSkeleton, err := rmi.NewSkeleton(rmi.RegistrationName, rmi.NewRegistrationFacade(server), "tcp", cfg.RegistrationListenAddr)
	if err != nil {
		log.Fatalf("Could not build registration skeleton: %v", err)
	}
	registrationSkeleton.ServiceError = func(err error) {
		log.Printf("registration surface: service error: %v", err)
	}
	if err := registrationSkeleton.Start(); err != nil {
		log.Fatalf("Could not start registration surface on %s: %v", cfg.RegistrationListenAddr, err)
	}
	fmt.Printf("Naming server registration surface listening on %s\n", registrationSkeleton.Addr())

	log.Print("Awaiting a signal to stop.")
	sig := <-sigc
	log.Printf("Got signal %q, stopping.", sig)
	clientSkeleton.Stop()
	registrationSkeleton.Stop()
	agent.Close()
}
