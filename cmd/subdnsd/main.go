package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	v1 "subdns/api/v1"
	"subdns/internal/auth"
	"subdns/internal/cache"
	"subdns/internal/certprov"
	"subdns/internal/certstore"
	"subdns/internal/config"
	"subdns/internal/db"
	"subdns/internal/dnsserver"
	"subdns/internal/lifecycle"
	"subdns/internal/registry"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load configuration (INI file when CONFIG_FILE is set, env otherwise)
	var (
		cfg *config.Config
		err error
	)
	if iniPath := os.Getenv("CONFIG_FILE"); iniPath != "" {
		cfg, err = config.LoadFromINI(iniPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("✓ Configuration loaded (mode=%s, suffix=%s)", cfg.Mode, cfg.DelegatedSuffix())

	logger := logrus.NewEntry(logrus.StandardLogger())

	// 2. Initialize registry database
	if err := db.Init(cfg.DB.Driver, cfg.DB.DSN); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if cfg.Migrate {
		if err := db.Migrate(db.Get()); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// 3. Optional Redis resolve cache
	resolveCache, err := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer resolveCache.Close()

	// 4. Certificate store and provisioner
	certStore := certstore.New(cfg.Cert.RootDir)
	if err := certStore.EnsureLayout(); err != nil {
		log.Fatalf("Failed to prepare certificate directories: %v", err)
	}

	acmeTimeout := time.Duration(cfg.ACME.TimeoutSec) * time.Second
	var prodIssuer certprov.Issuer
	if cfg.ACME.Mode == config.ACMEModeExec {
		prodIssuer = &certprov.ExecACMEIssuer{
			Command:         cfg.ACME.IssueCommand,
			Email:           cfg.ACME.Email,
			CADirURL:        cfg.ACME.CADirURL,
			DNSProvider:     cfg.ACME.DNSProvider,
			CredentialsFile: cfg.ACME.CredentialsFile,
			Timeout:         acmeTimeout,
		}
	} else {
		prodIssuer = &certprov.LegoIssuer{
			Email:           cfg.ACME.Email,
			CADirURL:        cfg.ACME.CADirURL,
			DNSProvider:     cfg.ACME.DNSProvider,
			CredentialsFile: cfg.ACME.CredentialsFile,
			AccountDir:      filepath.Join(cfg.Cert.RootDir, "acme"),
		}
	}

	provisioner := certprov.New(certStore, certprov.Options{
		DevelopmentDomain: cfg.Cert.DevelopmentDomain,
		ProductionDomain:  cfg.Cert.ProductionDomain,
		Development:       certprov.NewMkcertIssuer(cfg.ACME.MkcertCommand, acmeTimeout),
		Production:        prodIssuer,
		Logger:            logger,
	})

	// 5. Lifecycle service over the registry
	env := certstore.EnvDevelopment
	if cfg.Mode == config.ModeProduction {
		env = certstore.EnvProduction
	}
	store := registry.NewStore(db.Get())
	service := lifecycle.NewService(store, provisioner, resolveCache, cfg.DelegatedSuffix(), env, logger)

	// 6. Expiration sweeper
	sweeper := lifecycle.NewSweeper(service, lifecycle.SweeperConfig{
		Enabled:     cfg.Sweep.Enabled,
		IntervalSec: cfg.Sweep.IntervalSec,
	})
	sweeper.Start()
	defer sweeper.Stop()

	// 7. DNS responder on UDP and TCP
	dnsErrCh := make(chan error, 1)
	dnsHandler := dnsserver.NewHandler(cfg.DelegatedSuffix(), service, logger)
	dnsServer := dnsserver.NewServer(cfg.DNS.Addr, dnsHandler, time.Duration(cfg.DNS.TCPTimeout)*time.Second)
	dnsServer.Start(dnsErrCh)

	// 8. HTTP API
	if cfg.JWT.Secret != "" {
		auth.InitJWT(cfg.JWT.Secret)
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	v1.SetupRouter(r, service)

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	httpErrCh := make(chan error, 1)
	go func() {
		log.Printf("✓ HTTP API listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrCh <- err
		}
	}()

	// 9. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("Received %s, shutting down...", sig)
	case err := <-dnsErrCh:
		log.Printf("DNS server failed: %v, shutting down...", err)
	case err := <-httpErrCh:
		log.Printf("HTTP server failed: %v, shutting down...", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dnsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("DNS shutdown error: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
}
